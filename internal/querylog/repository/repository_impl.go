package repository

import (
	"context"
	"time"

	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	"github.com/smallbiznis/kredible/pkg/docstore"
	"gorm.io/gorm"
)

type repo struct {
	queries docstore.Collection[querylogdomain.QueryLog]
}

func Provide(db *gorm.DB) querylogdomain.Repository {
	return &repo{queries: docstore.NewCollection[querylogdomain.QueryLog](db)}
}

func (r *repo) Insert(ctx context.Context, log *querylogdomain.QueryLog) error {
	return r.queries.Create(ctx, log)
}

func (r *repo) CountByPlatform(ctx context.Context, platformID string) (int64, error) {
	return r.queries.Count(ctx, docstore.Filter{"platform_id": platformID})
}

func (r *repo) Count(ctx context.Context) (int64, error) {
	return r.queries.Count(ctx, nil)
}

func (r *repo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return r.queries.Count(ctx, nil, docstore.Since("timestamp", since))
}

func (r *repo) ListByPlatform(ctx context.Context, platformID string, limit int) ([]*querylogdomain.QueryLog, error) {
	return r.queries.Find(ctx,
		docstore.Filter{"platform_id": platformID},
		docstore.OrderBy("timestamp", true),
		docstore.Limit(limit),
	)
}
