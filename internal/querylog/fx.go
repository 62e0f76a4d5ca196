package querylog

import (
	querylogdomain "github.com/smallbiznis/kredible/internal/querylog/domain"
	"github.com/smallbiznis/kredible/internal/querylog/repository"
	"github.com/smallbiznis/kredible/internal/querylog/service"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("querylog.service",
	db.AsModel(&querylogdomain.QueryLog{}),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
