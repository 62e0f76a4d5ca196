package domain

import (
	"context"

	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
)

// RecentQueryLimit bounds the queries listed in platform stats.
const RecentQueryLimit = 100

type Service interface {
	Global(ctx context.Context) (*Global, error)
	Platform(ctx context.Context, platformID string) (*Platform, error)
	Usage(ctx context.Context) (*Usage, error)
	Revenue(ctx context.Context) (*Revenue, error)
}

type Global struct {
	TotalPlatforms int64                     `json:"totalPlatforms"`
	TotalQueries   int64                     `json:"totalQueries"`
	TotalUsers     int64                     `json:"totalUsers"`
	Platforms      []platformdomain.Response `json:"platforms"`
}

type Platform struct {
	PlatformID   string                     `json:"platformId"`
	TotalQueries int64                      `json:"totalQueries"`
	Queries      []*querylogdomain.QueryLog `json:"queries"`
	Usage        *plandomain.Usage          `json:"usage,omitempty"`
}

type PlatformUsage struct {
	PlatformID      string `json:"platformId"`
	Name            string `json:"name"`
	PlanType        string `json:"planType"`
	UsedQueries     int64  `json:"usedQueries"`
	MaxQueries      int64  `json:"maxQueries"`
	UsagePercentage int64  `json:"usagePercentage"`
}

type Usage struct {
	TotalQueries              int64           `json:"totalQueries"`
	TotalPlatforms            int64           `json:"totalPlatforms"`
	ActivePlatforms           int64           `json:"activePlatforms"`
	TotalUsers                int64           `json:"totalUsers"`
	AverageQueriesPerPlatform float64         `json:"averageQueriesPerPlatform"`
	QueriesLast24h            int64           `json:"queriesLast24h"`
	Platforms                 []PlatformUsage `json:"platforms"`
}

type Revenue struct {
	TotalRevenue  float64            `json:"totalRevenue"`
	RevenueByPlan map[string]float64 `json:"revenueByPlan"`
	PlatformCount int64              `json:"platformCount"`
}
