package plan

import (
	plandomain "github.com/smallbiznis/kredible/internal/plan/domain"
	"github.com/smallbiznis/kredible/internal/plan/repository"
	"github.com/smallbiznis/kredible/internal/plan/service"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	db.AsModel(&plandomain.Plan{}),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
