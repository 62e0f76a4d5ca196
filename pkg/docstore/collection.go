// Package docstore is the document store adapter: typed collections of
// documents keyed by opaque string ids, backed by gorm.
package docstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter matches documents by field equality. Keys are column names.
type Filter map[string]any

type Collection[T any] interface {
	Create(ctx context.Context, doc *T) error
	// Get returns nil, nil when no document has the id.
	Get(ctx context.Context, id string) (*T, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, filter Filter, opts ...QueryOption) (*T, error)
	Find(ctx context.Context, filter Filter, opts ...QueryOption) ([]*T, error)
	Count(ctx context.Context, filter Filter, opts ...QueryOption) (int64, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	UpdateWhere(ctx context.Context, filter Filter, fields map[string]any, opts ...QueryOption) (int64, error)
	// Increment adds delta to field in the store, returning the number of documents changed.
	Increment(ctx context.Context, filter Filter, field string, delta int64, opts ...QueryOption) (int64, error)
	Delete(ctx context.Context, id string) error
	WithTrx(tx *gorm.DB) Collection[T]
}

type collection[T any] struct {
	db *gorm.DB
}

func NewCollection[T any](db *gorm.DB) Collection[T] {
	return &collection[T]{db: db}
}

func (c *collection[T]) WithTrx(tx *gorm.DB) Collection[T] {
	return &collection[T]{db: tx}
}

func (c *collection[T]) Create(ctx context.Context, doc *T) error {
	return c.db.WithContext(ctx).Create(doc).Error
}

func (c *collection[T]) Get(ctx context.Context, id string) (*T, error) {
	return c.FindOne(ctx, Filter{"id": id})
}

func (c *collection[T]) FindOne(ctx context.Context, filter Filter, opts ...QueryOption) (*T, error) {
	var result T
	err := c.query(ctx, filter, opts...).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (c *collection[T]) Find(ctx context.Context, filter Filter, opts ...QueryOption) ([]*T, error) {
	var result []*T
	err := c.query(ctx, filter, opts...).Find(&result).Error
	return result, err
}

func (c *collection[T]) Count(ctx context.Context, filter Filter, opts ...QueryOption) (int64, error) {
	var count int64
	err := c.query(ctx, filter, opts...).Count(&count).Error
	return count, err
}

func (c *collection[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error
}

func (c *collection[T]) UpdateWhere(ctx context.Context, filter Filter, fields map[string]any, opts ...QueryOption) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	res := c.query(ctx, filter, opts...).Updates(fields)
	return res.RowsAffected, res.Error
}

func (c *collection[T]) Increment(ctx context.Context, filter Filter, field string, delta int64, opts ...QueryOption) (int64, error) {
	res := c.query(ctx, filter, opts...).Updates(map[string]any{
		field: gorm.Expr("? + ?", clause.Column{Name: field}, delta),
	})
	return res.RowsAffected, res.Error
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	return c.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}

func (c *collection[T]) query(ctx context.Context, filter Filter, opts ...QueryOption) *gorm.DB {
	db := c.db.WithContext(ctx).Model(new(T))
	if len(filter) > 0 {
		db = db.Where(map[string]any(filter))
	}
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
