package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	planservice "github.com/smallbiznis/kredible/internal/plan/service"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	statsdomain "github.com/smallbiznis/kredible/internal/stats/domain"
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Catalog   *config.PlanCatalogHolder
	Platforms platformdomain.Service
	Plans     plandomain.Service
	QueryLogs querylogdomain.Service
	Users     userdomain.Service
}

// Service recomputes every aggregate on each call.
type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	catalog   *config.PlanCatalogHolder
	platforms platformdomain.Service
	plans     plandomain.Service
	queryLogs querylogdomain.Service
	users     userdomain.Service
}

func New(p Params) statsdomain.Service {
	return &Service{
		log:       p.Log.Named("stats.service"),
		clock:     p.Clock,
		catalog:   p.Catalog,
		platforms: p.Platforms,
		plans:     p.Plans,
		queryLogs: p.QueryLogs,
		users:     p.Users,
	}
}

func (s *Service) Global(ctx context.Context) (*statsdomain.Global, error) {
	platforms, err := s.platforms.List(ctx)
	if err != nil {
		return nil, err
	}
	queries, err := s.queryLogs.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &statsdomain.Global{
		TotalPlatforms: int64(len(platforms)),
		TotalQueries:   queries,
		TotalUsers:     users,
		Platforms:      platforms,
	}, nil
}

func (s *Service) Platform(ctx context.Context, platformID string) (*statsdomain.Platform, error) {
	platform, err := s.platforms.GetByID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, platformdomain.ErrNotFound
	}

	total, err := s.queryLogs.CountByPlatform(ctx, platform.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.queryLogs.ListByPlatform(ctx, platform.ID, statsdomain.RecentQueryLimit)
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*querylogdomain.QueryLog{}
	}

	stats := &statsdomain.Platform{
		PlatformID:   platform.ID,
		TotalQueries: total,
		Queries:      recent,
	}

	usage, err := s.plans.GetUsage(ctx, platform.ID)
	switch {
	case err == nil:
		stats.Usage = usage
	case errors.Is(err, plandomain.ErrNotFound):
	default:
		return nil, err
	}
	return stats, nil
}

// Usage counts every registered platform as active.
func (s *Service) Usage(ctx context.Context) (*statsdomain.Usage, error) {
	platforms, err := s.platforms.List(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	totalQueries, err := s.queryLogs.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	lastDay, err := s.queryLogs.CountSince(ctx, s.clock.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	plansByPlatform := make(map[string]*plandomain.Plan, len(plans))
	for _, plan := range plans {
		plansByPlatform[plan.PlatformID] = plan
	}

	var active int64
	rows := make([]statsdomain.PlatformUsage, 0, len(platforms))
	for _, platform := range platforms {
		if !platform.CreatedAt.IsZero() {
			active++
		}
		used, err := s.queryLogs.CountByPlatform(ctx, platform.ID)
		if err != nil {
			return nil, err
		}
		row := statsdomain.PlatformUsage{
			PlatformID:  platform.ID,
			Name:        platform.Name,
			PlanType:    platform.PlanType,
			UsedQueries: used,
		}
		if plan, ok := plansByPlatform[platform.ID]; ok {
			row.PlanType = plan.PlanType
			row.MaxQueries = plan.MaxQueries
			row.UsagePercentage = planservice.UsagePercentage(used, plan.MaxQueries)
		}
		rows = append(rows, row)
	}

	divisor := active
	if divisor == 0 {
		divisor = 1
	}

	return &statsdomain.Usage{
		TotalQueries:              totalQueries,
		TotalPlatforms:            int64(len(platforms)),
		ActivePlatforms:           active,
		TotalUsers:                users,
		AverageQueriesPerPlatform: round2(float64(totalQueries) / float64(divisor)),
		QueriesLast24h:            lastDay,
		Platforms:                 rows,
	}, nil
}

// Revenue prices each platform at its current catalog tier. Platforms on a
// tier missing from the catalog contribute nothing.
func (s *Service) Revenue(ctx context.Context) (*statsdomain.Revenue, error) {
	platforms, err := s.platforms.List(ctx)
	if err != nil {
		return nil, err
	}

	catalog := s.catalog.Get()
	byPlan := make(map[string]float64, len(catalog.Plans))
	for _, def := range catalog.Plans {
		byPlan[def.Type] = 0
	}

	var total float64
	for _, platform := range platforms {
		def, ok := catalog.Lookup(platform.PlanType)
		if !ok {
			s.log.Debug("platform on unknown plan type", zap.String("platform_id", platform.ID), zap.String("plan_type", platform.PlanType))
			continue
		}
		byPlan[def.Type] += def.Price
		total += def.Price
	}

	return &statsdomain.Revenue{
		TotalRevenue:  round2(total),
		RevenueByPlan: byPlan,
		PlatformCount: int64(len(platforms)),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
