package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	"github.com/smallbiznis/kredible/internal/migration"
	"github.com/smallbiznis/kredible/internal/observability"
	"github.com/smallbiznis/kredible/internal/server"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Quota resets run in apps/scheduler; POST /plans/reset falls back to the plan tracker.
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
