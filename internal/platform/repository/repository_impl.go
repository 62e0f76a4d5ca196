package repository

import (
	"context"

	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	"github.com/smallbiznis/kredible/pkg/docstore"
	"gorm.io/gorm"
)

type repo struct {
	platforms docstore.Collection[platformdomain.Platform]
}

func Provide(db *gorm.DB) platformdomain.Repository {
	return &repo{platforms: docstore.NewCollection[platformdomain.Platform](db)}
}

func (r *repo) Insert(ctx context.Context, platform *platformdomain.Platform) error {
	return r.platforms.Create(ctx, platform)
}

func (r *repo) FindByID(ctx context.Context, id string) (*platformdomain.Platform, error) {
	return r.platforms.Get(ctx, id)
}

func (r *repo) FindByName(ctx context.Context, name string) (*platformdomain.Platform, error) {
	return r.platforms.FindOne(ctx, docstore.Filter{"name": name})
}

func (r *repo) FindByAPIKey(ctx context.Context, apiKey string) (*platformdomain.Platform, error) {
	return r.platforms.FindOne(ctx, docstore.Filter{"api_key": apiKey})
}

func (r *repo) ListByOwner(ctx context.Context, ownerAddress string) ([]*platformdomain.Platform, error) {
	return r.platforms.Find(ctx, docstore.Filter{"owner_address": ownerAddress}, docstore.OrderBy("created_at", false))
}

func (r *repo) List(ctx context.Context) ([]*platformdomain.Platform, error) {
	return r.platforms.Find(ctx, nil, docstore.OrderBy("created_at", false))
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	return r.platforms.Count(ctx, nil)
}

func (r *repo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.platforms.Update(ctx, id, fields)
}

func (r *repo) SetAPIKey(ctx context.Context, id, apiKey string) (bool, error) {
	changed, err := r.platforms.UpdateWhere(ctx,
		docstore.Filter{"id": id, "api_key": nil},
		map[string]any{"api_key": apiKey},
	)
	if err != nil {
		return false, err
	}
	return changed > 0, nil
}
