package domain

import "time"

// QueryLog is an append-only record of one scored wallet lookup.
type QueryLog struct {
	ID            string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	PlatformID    string    `gorm:"column:platform_id;type:varchar(32);not null;index" json:"platformId"`
	WalletAddress string    `gorm:"column:wallet_address;type:varchar(64);not null;index" json:"walletAddress"`
	Timestamp     time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Score         *int      `gorm:"column:score" json:"score,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"createdAt"`
}

func (QueryLog) TableName() string { return "queries" }
