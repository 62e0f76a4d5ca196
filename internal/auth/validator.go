// Package auth validates the admin and per-platform API credentials.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/smallbiznis/kredible/internal/config"
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	HeaderAdminKey = "x-admin-key"
	HeaderAPIKey   = "x-api-key"
)

var (
	ErrMissingAdminKey = errors.New("missing_admin_key")
	ErrInvalidAdminKey = errors.New("invalid_admin_key")
	ErrMissingAPIKey   = errors.New("missing_api_key")
	ErrInvalidAPIKey   = errors.New("invalid_api_key")
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Platforms platformdomain.Service
	Plans     plandomain.Service
}

type Validator struct {
	adminKey  string
	log       *zap.Logger
	platforms platformdomain.Service
	plans     plandomain.Service
}

func NewValidator(p Params) *Validator {
	adminKey := strings.TrimSpace(p.Cfg.AdminKey)
	log := p.Log.Named("auth.validator")
	if adminKey == "" {
		log.Warn("admin key not configured; admin routes will reject every request")
	}
	return &Validator{
		adminKey:  adminKey,
		log:       log,
		platforms: p.Platforms,
		plans:     p.Plans,
	}
}

// ValidateAdminKey fails closed when no admin key is configured.
func (v *Validator) ValidateAdminKey(presented string) error {
	if presented == "" {
		return ErrMissingAdminKey
	}
	if v.adminKey == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(v.adminKey)) != 1 {
		return ErrInvalidAdminKey
	}
	return nil
}

// ValidateAPIKey resolves the platform holding apiKey and rejects it when its
// plan has no queries left.
func (v *Validator) ValidateAPIKey(ctx context.Context, apiKey string) (*platformdomain.Platform, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	platform, err := v.platforms.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	if platform == nil {
		return nil, ErrInvalidAPIKey
	}

	if err := v.plans.CheckQuota(ctx, platform.ID); err != nil {
		return nil, err
	}
	return platform, nil
}

// IsUnauthorized reports whether err is a credential failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrMissingAdminKey) ||
		errors.Is(err, ErrInvalidAdminKey) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrInvalidAPIKey)
}
