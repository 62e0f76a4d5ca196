package domain

import (
	"regexp"
	"time"

	"gorm.io/datatypes"
)

var walletAddressPattern = regexp.MustCompile(`^G[A-Z2-7]{55}$`)

// ValidWalletAddress reports whether v is a Stellar account address.
func ValidWalletAddress(v string) bool {
	return walletAddressPattern.MatchString(v)
}

type Document struct {
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type Activity struct {
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

const ActivityScoreQuery = "score_query"

// User is an end user identified by wallet. Documents and activity are
// append-only lists stored inline.
type User struct {
	ID            string                        `gorm:"primaryKey;type:varchar(32)" json:"id"`
	WalletAddress string                        `gorm:"column:wallet_address;type:varchar(56);not null;index" json:"walletAddress"`
	Name          *string                       `gorm:"type:varchar(255)" json:"name,omitempty"`
	Email         *string                       `gorm:"type:varchar(255)" json:"email,omitempty"`
	Documents     datatypes.JSONSlice[Document] `gorm:"type:json" json:"documents"`
	Activity      datatypes.JSONSlice[Activity] `gorm:"type:json" json:"activity"`
	IsActive      bool                          `gorm:"column:is_active;not null;default:true" json:"isActive"`
	CreatedAt     time.Time                     `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time                     `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
