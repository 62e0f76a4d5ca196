package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kredible/internal/config"
)

type Repository interface {
	Insert(ctx context.Context, plan *Plan) error
	FindByPlatformID(ctx context.Context, platformID string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	// Decrement lowers remaining_queries by one in the store. When guarded is
	// true the write only applies while remaining_queries > 0.
	Decrement(ctx context.Context, id string, guarded bool) (bool, error)
	ResetRemaining(ctx context.Context, planType string, maxQueries int64) (int64, error)
}

type Service interface {
	Catalog() []config.PlanDefinition
	CreatePlan(ctx context.Context, platformID, planType string) (*Plan, error)
	// GetPlan returns nil, nil when the platform has no plan.
	GetPlan(ctx context.Context, platformID string) (*Plan, error)
	ChangePlan(ctx context.Context, platformID, planType string) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
	GetUsage(ctx context.Context, platformID string) (*Usage, error)
	CheckQuota(ctx context.Context, platformID string) error
	DecrementQueries(ctx context.Context, platformID string) (bool, error)
	ResetMonthlyQueries(ctx context.Context) (int, error)
}

type CreateRequest struct {
	PlatformID string `json:"platformId" binding:"required"`
	PlanType   string `json:"planType" binding:"required"`
}

type ChangeRequest struct {
	PlanType string `json:"planType" binding:"required"`
}

type Usage struct {
	PlanType         string `json:"planType"`
	MaxQueries       int64  `json:"maxQueries"`
	RemainingQueries int64  `json:"remainingQueries"`
	UsedQueries      int64  `json:"usedQueries"`
	UsagePercentage  int64  `json:"usagePercentage"`
}

type ResetResult struct {
	PlansReset int `json:"plansReset"`
}

var (
	ErrNotFound          = errors.New("plan_not_found")
	ErrAlreadyExists     = errors.New("plan_already_exists")
	ErrQuotaExceeded     = errors.New("quota_exceeded")
	ErrInvalidPlanType   = errors.New("invalid_plan_type")
	ErrInvalidPlatformID = errors.New("invalid_platform_id")
)
