package domain

import "time"

// Platform is a tenant consuming the score API. APIKey stays nil until the
// owner first requests it and never changes afterwards.
type Platform struct {
	ID           string    `gorm:"primaryKey;type:varchar(32)"`
	Name         string    `gorm:"type:varchar(255);not null;index"`
	Description  *string   `gorm:"type:text"`
	ContactEmail string    `gorm:"column:contact_email;type:varchar(255);not null"`
	OwnerAddress *string   `gorm:"column:owner_address;type:varchar(64);index"`
	PlanType     string    `gorm:"column:plan_type;type:varchar(32);not null"`
	APIKey       *string   `gorm:"column:api_key;type:varchar(64);uniqueIndex"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (Platform) TableName() string { return "platforms" }

func (p *Platform) HasAPIKey() bool {
	return p.APIKey != nil && *p.APIKey != ""
}
