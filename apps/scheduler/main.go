package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	"github.com/smallbiznis/kredible/internal/observability"
	"github.com/smallbiznis/kredible/internal/plan"
	"github.com/smallbiznis/kredible/internal/querylog"
	"github.com/smallbiznis/kredible/internal/ratelimit"
	"github.com/smallbiznis/kredible/internal/scheduler"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		querylog.Module,
		plan.Module,
		ratelimit.Module,

		// No server module.
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
