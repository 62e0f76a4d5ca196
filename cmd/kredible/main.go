package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredible/internal/clock"
	"github.com/smallbiznis/kredible/internal/config"
	"github.com/smallbiznis/kredible/internal/migration"
	"github.com/smallbiznis/kredible/internal/observability"
	"github.com/smallbiznis/kredible/internal/scheduler"
	"github.com/smallbiznis/kredible/internal/server"
	"github.com/smallbiznis/kredible/pkg/db"
	"go.uber.org/fx"
)

// kredible runs the HTTP API and the quota reset scheduler in one process.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
