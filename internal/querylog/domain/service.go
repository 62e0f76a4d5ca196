package domain

import (
	"context"
	"errors"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, log *QueryLog) error
	CountByPlatform(ctx context.Context, platformID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListByPlatform(ctx context.Context, platformID string, limit int) ([]*QueryLog, error)
}

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*QueryLog, error)
	CountByPlatform(ctx context.Context, platformID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// ListByPlatform returns the newest entries first.
	ListByPlatform(ctx context.Context, platformID string, limit int) ([]*QueryLog, error)
}

type RecordRequest struct {
	PlatformID    string
	WalletAddress string
	Timestamp     time.Time
	Score         *int
}

var (
	ErrInvalidPlatformID    = errors.New("invalid_platform_id")
	ErrInvalidWalletAddress = errors.New("invalid_wallet_address")
)
