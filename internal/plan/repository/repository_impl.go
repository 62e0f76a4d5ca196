package repository

import (
	"context"

	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	"github.com/smallbiznis/kredible/pkg/docstore"
	"gorm.io/gorm"
)

type repo struct {
	plans docstore.Collection[plandomain.Plan]
}

func Provide(db *gorm.DB) plandomain.Repository {
	return &repo{plans: docstore.NewCollection[plandomain.Plan](db)}
}

func (r *repo) Insert(ctx context.Context, plan *plandomain.Plan) error {
	return r.plans.Create(ctx, plan)
}

func (r *repo) FindByPlatformID(ctx context.Context, platformID string) (*plandomain.Plan, error) {
	return r.plans.FindOne(ctx, docstore.Filter{"platform_id": platformID}, docstore.OrderBy("created_at", false))
}

func (r *repo) List(ctx context.Context) ([]*plandomain.Plan, error) {
	return r.plans.Find(ctx, nil, docstore.OrderBy("created_at", false))
}

func (r *repo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.plans.Update(ctx, id, fields)
}

func (r *repo) Decrement(ctx context.Context, id string, guarded bool) (bool, error) {
	var opts []docstore.QueryOption
	if guarded {
		opts = append(opts, docstore.GreaterThan("remaining_queries", 0))
	}
	changed, err := r.plans.Increment(ctx, docstore.Filter{"id": id}, "remaining_queries", -1, opts...)
	if err != nil {
		return false, err
	}
	return changed > 0, nil
}

func (r *repo) ResetRemaining(ctx context.Context, planType string, maxQueries int64) (int64, error) {
	return r.plans.UpdateWhere(ctx,
		docstore.Filter{"plan_type": planType},
		map[string]any{"remaining_queries": maxQueries},
	)
}
