package docstore

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption narrows or orders a collection query.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type optionFunc func(db *gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

func OrderBy(field string, desc bool) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: field}, Desc: desc})
	})
}

func Limit(n int) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if n <= 0 {
			return db
		}
		return db.Limit(n)
	})
}

// Since keeps documents whose field is at or after t.
func Since(field string, t time.Time) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Gte{Column: clause.Column{Name: field}, Value: t})
	})
}

// GreaterThan keeps documents whose field is strictly above value.
func GreaterThan(field string, value any) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Gt{Column: clause.Column{Name: field}, Value: value})
	})
}

// NotEqual excludes documents whose field equals value.
func NotEqual(field string, value any) QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Neq{Column: clause.Column{Name: field}, Value: value})
	})
}
