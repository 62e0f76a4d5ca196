package domain

import (
	"time"

	"github.com/smallbiznis/kredible/internal/config"
	"gorm.io/datatypes"
)

// Plan tracks the subscription tier and remaining quota of one platform.
type Plan struct {
	ID               string                      `gorm:"primaryKey;type:varchar(32)" json:"id"`
	PlatformID       string                      `gorm:"column:platform_id;type:varchar(32);not null;index" json:"platformId"`
	PlanType         string                      `gorm:"column:plan_type;type:varchar(32);not null;index" json:"planType"`
	Features         datatypes.JSONSlice[string] `gorm:"column:features" json:"features"`
	Price            float64                     `gorm:"column:price;not null" json:"price"`
	MaxQueries       int64                       `gorm:"column:max_queries;not null" json:"maxQueries"`
	RemainingQueries int64                       `gorm:"column:remaining_queries;not null" json:"remainingQueries"`
	CreatedAt        time.Time                   `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time                   `gorm:"not null" json:"updatedAt"`
}

func (Plan) TableName() string { return "plans" }

func (p *Plan) Unlimited() bool {
	return p.MaxQueries == config.UnlimitedQueries
}

// Exhausted reports whether a metered plan has no queries left.
func (p *Plan) Exhausted() bool {
	return !p.Unlimited() && p.RemainingQueries <= 0
}
