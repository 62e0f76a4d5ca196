package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Catalog   *config.PlanCatalogHolder
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      plandomain.Repository
	QueryLogs querylogdomain.Service
}

type Service struct {
	catalog   *config.PlanCatalogHolder
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      plandomain.Repository
	queryLogs querylogdomain.Service
	strict    bool
}

func New(p Params) plandomain.Service {
	return &Service{
		catalog:   p.Catalog,
		log:       p.Log.Named("plan.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		queryLogs: p.QueryLogs,
		strict:    p.Cfg.StrictDecrement,
	}
}

func (s *Service) Catalog() []config.PlanDefinition {
	return s.catalog.Get().Plans
}

func (s *Service) CreatePlan(ctx context.Context, platformID, planType string) (*plandomain.Plan, error) {
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return nil, plandomain.ErrInvalidPlatformID
	}
	def, err := s.lookup(planType)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, plandomain.ErrAlreadyExists
	}

	now := s.clock.Now()
	plan := &plandomain.Plan{
		ID:               s.genID.Generate().String(),
		PlatformID:       platformID,
		PlanType:         def.Type,
		Features:         datatypes.NewJSONSlice(append([]string{}, def.Features...)),
		Price:            def.Price,
		MaxQueries:       def.MaxQueries,
		RemainingQueries: def.MaxQueries,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, plan); err != nil {
		return nil, err
	}

	s.log.Info("plan created",
		zap.String("platform_id", platformID),
		zap.String("plan_type", plan.PlanType),
		zap.Int64("max_queries", plan.MaxQueries),
	)
	return plan, nil
}

func (s *Service) GetPlan(ctx context.Context, platformID string) (*plandomain.Plan, error) {
	return s.repo.FindByPlatformID(ctx, strings.TrimSpace(platformID))
}

// ChangePlan moves a platform to another tier and refills its quota. A
// platform without a plan gets one.
func (s *Service) ChangePlan(ctx context.Context, platformID, planType string) (*plandomain.Plan, error) {
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return nil, plandomain.ErrInvalidPlatformID
	}
	def, err := s.lookup(planType)
	if err != nil {
		return nil, err
	}

	plan, err := s.repo.FindByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return s.CreatePlan(ctx, platformID, def.Type)
	}

	now := s.clock.Now()
	features := datatypes.NewJSONSlice(append([]string{}, def.Features...))
	if err := s.repo.Update(ctx, plan.ID, map[string]any{
		"plan_type":         def.Type,
		"features":          features,
		"price":             def.Price,
		"max_queries":       def.MaxQueries,
		"remaining_queries": def.MaxQueries,
		"updated_at":        now,
	}); err != nil {
		return nil, err
	}

	s.log.Info("plan changed",
		zap.String("platform_id", platformID),
		zap.String("from", plan.PlanType),
		zap.String("to", def.Type),
	)

	plan.PlanType = def.Type
	plan.Features = features
	plan.Price = def.Price
	plan.MaxQueries = def.MaxQueries
	plan.RemainingQueries = def.MaxQueries
	plan.UpdatedAt = now
	return plan, nil
}

func (s *Service) List(ctx context.Context) ([]*plandomain.Plan, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetUsage(ctx context.Context, platformID string) (*plandomain.Usage, error) {
	platformID = strings.TrimSpace(platformID)
	plan, err := s.repo.FindByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrNotFound
	}

	used, err := s.queryLogs.CountByPlatform(ctx, platformID)
	if err != nil {
		return nil, err
	}

	return &plandomain.Usage{
		PlanType:         plan.PlanType,
		MaxQueries:       plan.MaxQueries,
		RemainingQueries: plan.RemainingQueries,
		UsedQueries:      used,
		UsagePercentage:  UsagePercentage(used, plan.MaxQueries),
	}, nil
}

// UsagePercentage is round(used/max*100), or 0 for unlimited and empty plans.
func UsagePercentage(used, maxQueries int64) int64 {
	if maxQueries <= 0 {
		return 0
	}
	return int64(math.Round(float64(used) / float64(maxQueries) * 100))
}

// CheckQuota rejects platforms whose plan is exhausted. A platform without a
// plan passes; consuming a query then fails with ErrNotFound.
func (s *Service) CheckQuota(ctx context.Context, platformID string) error {
	plan, err := s.repo.FindByPlatformID(ctx, strings.TrimSpace(platformID))
	if err != nil {
		return err
	}
	if plan != nil && plan.Exhausted() {
		return plandomain.ErrQuotaExceeded
	}
	return nil
}

// DecrementQueries consumes one query. In the default mode the read and the
// decrement are separate steps, so concurrent callers can both succeed on the
// last query and drive the counter negative.
func (s *Service) DecrementQueries(ctx context.Context, platformID string) (bool, error) {
	plan, err := s.repo.FindByPlatformID(ctx, strings.TrimSpace(platformID))
	if err != nil {
		return false, err
	}
	if plan == nil {
		return false, plandomain.ErrNotFound
	}
	if plan.Unlimited() {
		return true, nil
	}
	if plan.RemainingQueries <= 0 {
		return false, nil
	}

	return s.repo.Decrement(ctx, plan.ID, s.strict)
}

func (s *Service) ResetMonthlyQueries(ctx context.Context) (int, error) {
	total := 0
	for _, def := range s.catalog.Get().Plans {
		n, err := s.repo.ResetRemaining(ctx, def.Type, def.MaxQueries)
		if err != nil {
			return total, err
		}
		total += int(n)
	}

	s.log.Info("monthly queries reset", zap.Int("plans", total))
	return total, nil
}

func (s *Service) lookup(planType string) (config.PlanDefinition, error) {
	def, ok := s.catalog.Get().Lookup(strings.TrimSpace(planType))
	if !ok {
		return config.PlanDefinition{}, plandomain.ErrInvalidPlanType
	}
	return def, nil
}
