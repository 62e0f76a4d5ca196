package user

import (
	userdomain "github.com/smallbiznis/kredible/internal/user/domain"
	"github.com/smallbiznis/kredible/internal/user/repository"
	"github.com/smallbiznis/kredible/internal/user/service"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	db.AsModel(&userdomain.User{}),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
