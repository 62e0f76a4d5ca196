package domain

import (
	"context"
	"errors"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, user *User) error
	FindByWalletAddress(ctx context.Context, walletAddress string) (*User, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Count(ctx context.Context) (int64, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*User, error)
	// GetByWalletAddress returns nil, nil when the wallet is not registered.
	GetByWalletAddress(ctx context.Context, walletAddress string) (*User, error)
	Update(ctx context.Context, walletAddress string, req UpdateRequest) (*User, error)
	AddDocument(ctx context.Context, walletAddress string, req DocumentRequest) (*Document, error)
	AddActivity(ctx context.Context, walletAddress string, req ActivityRequest) (*Activity, error)
	ListActivity(ctx context.Context, walletAddress string) ([]Activity, error)
	Count(ctx context.Context) (int64, error)
}

type CreateRequest struct {
	WalletAddress string  `json:"walletAddress" binding:"required"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Name          *string `json:"name"`
}

type UpdateRequest struct {
	Email *string `json:"email" binding:"omitempty,email"`
	Name  *string `json:"name"`
}

type DocumentRequest struct {
	Type       string     `json:"type" binding:"required"`
	URL        string     `json:"url" binding:"required,url"`
	UploadedAt *time.Time `json:"uploadedAt"`
}

type ActivityRequest struct {
	Type    string         `json:"type" binding:"required"`
	Details map[string]any `json:"details"`
}

var (
	ErrNotFound             = errors.New("user_not_found")
	ErrAlreadyExists        = errors.New("user_already_exists")
	ErrInvalidWalletAddress = errors.New("invalid_wallet_address")
	ErrInvalidDocument      = errors.New("invalid_document")
	ErrInvalidActivity      = errors.New("invalid_activity")
)
