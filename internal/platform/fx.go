package platform

import (
	platformdomain "github.com/smallbiznis/kredible/internal/platform/domain"
	"github.com/smallbiznis/kredible/internal/platform/repository"
	"github.com/smallbiznis/kredible/internal/platform/service"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("platform.service",
	db.AsModel(&platformdomain.Platform{}),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
