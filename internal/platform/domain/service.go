package domain

import (
	"context"
	"errors"
	"time"
)

type Repository interface {
	Insert(ctx context.Context, platform *Platform) error
	FindByID(ctx context.Context, id string) (*Platform, error)
	FindByName(ctx context.Context, name string) (*Platform, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*Platform, error)
	ListByOwner(ctx context.Context, ownerAddress string) ([]*Platform, error)
	List(ctx context.Context) ([]*Platform, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	// SetAPIKey stores apiKey only while the platform has none. It reports
	// whether the write applied.
	SetAPIKey(ctx context.Context, id, apiKey string) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	ChangePlan(ctx context.Context, id, planType string) (*Response, error)
	// GetByID returns nil, nil when the platform does not exist.
	GetByID(ctx context.Context, id string) (*Platform, error)
	// GetByAPIKey returns nil, nil when no platform holds the key.
	GetByAPIKey(ctx context.Context, apiKey string) (*Platform, error)
	List(ctx context.Context) ([]Response, error)
	Count(ctx context.Context) (int64, error)
	ListByOwner(ctx context.Context, ownerAddress string) ([]OwnedResponse, error)
	GetAPIKey(ctx context.Context, req APIKeyRequest) (*APIKeyResponse, error)
	GetAPIKeyByID(ctx context.Context, id string) (*APIKeyResponse, error)
}

type CreateRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  *string `json:"description"`
	ContactEmail string  `json:"contactEmail" binding:"required,email"`
	OwnerAddress *string `json:"ownerAddress"`
	PlanType     string  `json:"planType" binding:"required"`
}

type UpdateRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	ContactEmail *string `json:"contactEmail" binding:"omitempty,email"`
	OwnerAddress *string `json:"ownerAddress"`
}

type APIKeyRequest struct {
	PlatformID   string `json:"platformId" binding:"required"`
	ContactEmail string `json:"contactEmail" binding:"required"`
}

// Response never carries the API key.
type Response struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	ContactEmail string    `json:"contactEmail"`
	OwnerAddress *string   `json:"ownerAddress,omitempty"`
	PlanType     string    `json:"planType"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type OwnedResponse struct {
	Response
	HasAPIKey bool `json:"hasApiKey"`
}

type APIKeyResponse struct {
	PlatformID   string `json:"platformId"`
	APIKey       string `json:"apiKey"`
	PlatformName string `json:"platformName"`
}

var (
	ErrNotFound            = errors.New("platform_not_found")
	ErrAPIKeyNotFound      = errors.New("api_key_not_found")
	ErrAlreadyExists       = errors.New("platform_already_exists")
	ErrEmailMismatch       = errors.New("contact_email_mismatch")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidContactEmail = errors.New("invalid_contact_email")
	ErrInvalidOwnerAddress = errors.New("invalid_owner_address")
	ErrInvalidPlatformID   = errors.New("invalid_platform_id")
)
