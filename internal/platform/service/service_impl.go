package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	obsmetrics "github.com/smallbiznis/kredible/internal/observability/metrics"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Catalog *config.PlanCatalogHolder
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    platformdomain.Repository
	Plans   plandomain.Service
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	catalog   *config.PlanCatalogHolder
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      platformdomain.Repository
	plans     plandomain.Service
	metrics   *obsmetrics.Metrics
	keyPrefix string
}

func New(p Params) platformdomain.Service {
	return &Service{
		catalog:   p.Catalog,
		log:       p.Log.Named("platform.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		plans:     p.Plans,
		metrics:   p.Metrics,
		keyPrefix: p.Cfg.APIKeyPrefix,
	}
}

// Create registers a platform and then its plan. Name uniqueness is checked
// by a read before the write, so two concurrent creates can both succeed.
func (s *Service) Create(ctx context.Context, req platformdomain.CreateRequest) (*platformdomain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, platformdomain.ErrInvalidName
	}
	email := strings.TrimSpace(req.ContactEmail)
	if email == "" {
		return nil, platformdomain.ErrInvalidContactEmail
	}
	planType := strings.TrimSpace(req.PlanType)
	if _, ok := s.catalog.Get().Lookup(planType); !ok {
		return nil, plandomain.ErrInvalidPlanType
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, platformdomain.ErrAlreadyExists
	}

	now := s.clock.Now()
	platform := &platformdomain.Platform{
		ID:           s.genID.Generate().String(),
		Name:         name,
		Description:  trimmedOrNil(req.Description),
		ContactEmail: email,
		OwnerAddress: trimmedOrNil(req.OwnerAddress),
		PlanType:     planType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, platform); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, platformdomain.ErrAlreadyExists
		}
		return nil, err
	}

	if _, err := s.plans.CreatePlan(ctx, platform.ID, planType); err != nil {
		s.log.Error("platform created without plan",
			zap.String("platform_id", platform.ID),
			zap.String("plan_type", planType),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("platform created",
		zap.String("platform_id", platform.ID),
		zap.String("plan_type", planType),
	)
	resp := toResponse(platform)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, id string, req platformdomain.UpdateRequest) (*platformdomain.Response, error) {
	platform, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, platformdomain.ErrInvalidName
		}
		if name != platform.Name {
			other, err := s.repo.FindByName(ctx, name)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != platform.ID {
				return nil, platformdomain.ErrAlreadyExists
			}
			fields["name"] = name
			platform.Name = name
		}
	}
	if req.Description != nil {
		platform.Description = trimmedOrNil(req.Description)
		fields["description"] = platform.Description
	}
	if req.ContactEmail != nil {
		email := strings.TrimSpace(*req.ContactEmail)
		if email == "" {
			return nil, platformdomain.ErrInvalidContactEmail
		}
		platform.ContactEmail = email
		fields["contact_email"] = email
	}
	if req.OwnerAddress != nil {
		platform.OwnerAddress = trimmedOrNil(req.OwnerAddress)
		fields["owner_address"] = platform.OwnerAddress
	}

	if len(fields) > 0 {
		platform.UpdatedAt = s.clock.Now()
		fields["updated_at"] = platform.UpdatedAt
		if err := s.repo.Update(ctx, platform.ID, fields); err != nil {
			return nil, err
		}
	}

	resp := toResponse(platform)
	return &resp, nil
}

// ChangePlan switches the platform's tier and keeps platform.planType in step
// with the plan document.
func (s *Service) ChangePlan(ctx context.Context, id, planType string) (*platformdomain.Response, error) {
	platform, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.ChangePlan(ctx, platform.ID, planType)
	if err != nil {
		return nil, err
	}

	platform.PlanType = plan.PlanType
	platform.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, platform.ID, map[string]any{
		"plan_type":  platform.PlanType,
		"updated_at": platform.UpdatedAt,
	}); err != nil {
		return nil, err
	}

	resp := toResponse(platform)
	return &resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*platformdomain.Platform, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetByAPIKey(ctx context.Context, apiKey string) (*platformdomain.Platform, error) {
	if apiKey == "" {
		return nil, nil
	}
	return s.repo.FindByAPIKey(ctx, apiKey)
}

func (s *Service) List(ctx context.Context) ([]platformdomain.Response, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]platformdomain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	return resp, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *Service) ListByOwner(ctx context.Context, ownerAddress string) ([]platformdomain.OwnedResponse, error) {
	owner := strings.TrimSpace(ownerAddress)
	if owner == "" {
		return nil, platformdomain.ErrInvalidOwnerAddress
	}

	items, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	resp := make([]platformdomain.OwnedResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, platformdomain.OwnedResponse{
			Response:  toResponse(item),
			HasAPIKey: item.HasAPIKey(),
		})
	}
	return resp, nil
}

// GetAPIKey returns the platform's key, issuing it on first use. Later calls
// return the same key.
func (s *Service) GetAPIKey(ctx context.Context, req platformdomain.APIKeyRequest) (*platformdomain.APIKeyResponse, error) {
	platform, err := s.mustGet(ctx, req.PlatformID)
	if err != nil {
		return nil, err
	}
	if platform.ContactEmail != req.ContactEmail {
		s.log.Warn("api key requested with mismatched contact email", zap.String("platform_id", platform.ID))
		return nil, platformdomain.ErrEmailMismatch
	}
	if platform.HasAPIKey() {
		return toAPIKeyResponse(platform), nil
	}

	key := platformdomain.NewAPIKey(s.keyPrefix)
	applied, err := s.repo.SetAPIKey(ctx, platform.ID, key)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another request issued the key first; serve the stored one.
		stored, err := s.mustGet(ctx, platform.ID)
		if err != nil {
			return nil, err
		}
		if !stored.HasAPIKey() {
			return nil, platformdomain.ErrAPIKeyNotFound
		}
		return toAPIKeyResponse(stored), nil
	}

	platform.APIKey = &key
	s.metrics.RecordAPIKeyIssued(ctx, platform.PlanType)
	s.log.Info("api key issued", zap.String("platform_id", platform.ID))
	return toAPIKeyResponse(platform), nil
}

func (s *Service) GetAPIKeyByID(ctx context.Context, id string) (*platformdomain.APIKeyResponse, error) {
	platform, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !platform.HasAPIKey() {
		return nil, platformdomain.ErrAPIKeyNotFound
	}
	return toAPIKeyResponse(platform), nil
}

func (s *Service) mustGet(ctx context.Context, id string) (*platformdomain.Platform, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, platformdomain.ErrInvalidPlatformID
	}
	platform, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, platformdomain.ErrNotFound
	}
	return platform, nil
}

func toResponse(p *platformdomain.Platform) platformdomain.Response {
	return platformdomain.Response{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		ContactEmail: p.ContactEmail,
		OwnerAddress: p.OwnerAddress,
		PlanType:     p.PlanType,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toAPIKeyResponse(p *platformdomain.Platform) *platformdomain.APIKeyResponse {
	return &platformdomain.APIKeyResponse{
		PlatformID:   p.ID,
		APIKey:       *p.APIKey,
		PlatformName: p.Name,
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
