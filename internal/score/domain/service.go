package domain

import (
	"context"
	"errors"
	"time"
)

const (
	MinScore = 0
	MaxScore = 100
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

// Scorer computes a credit score for a wallet. Results outside
// [MinScore, MaxScore] are clamped by the caller.
type Scorer interface {
	Score(ctx context.Context, walletAddress string) (int, error)
}

type ScorerFunc func(ctx context.Context, walletAddress string) (int, error)

func (f ScorerFunc) Score(ctx context.Context, walletAddress string) (int, error) {
	return f(ctx, walletAddress)
}

type Service interface {
	// Lookup consumes one query from the platform's plan, scores the wallet
	// and records the lookup.
	Lookup(ctx context.Context, req LookupRequest) (*Result, error)
}

type LookupRequest struct {
	PlatformID    string
	PlanType      string
	WalletAddress string
}

type Result struct {
	Score         int       `json:"score"`
	WalletAddress string    `json:"walletAddress"`
	Timestamp     time.Time `json:"timestamp"`
}

var (
	ErrInvalidWalletAddress = errors.New("invalid_wallet_address")
	ErrQueryNotRecorded     = errors.New("query_not_recorded")
)

func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
