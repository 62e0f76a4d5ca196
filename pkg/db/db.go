package db

import (
	"context"
	"fmt"

	"github.com/smallbiznis/kredible/internal/config"
	obslogger "github.com/smallbiznis/kredible/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

const modelsGroup = `group:"db.models"`

var Module = fx.Module("db",
	fx.Provide(ConfigFrom),
	fx.Provide(New),
	fx.Invoke(Migrate),
)

// AsModel registers a gorm model for auto-migration.
func AsModel(model any) fx.Option {
	return fx.Provide(fx.Annotate(
		func() any { return model },
		fx.ResultTags(modelsGroup),
	))
}

// New opens the database, applies pool settings and installs the tracing and metrics plugins.
func New(lc fx.Lifecycle, cfg Config, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Type, err)
	}

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprom.New(gormprom.Config{
		DBName:          cfg.Name,
		RefreshInterval: 15,
	})); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return sqlDB.PingContext(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return sqlDB.Close()
			},
		})
	}

	log.Named("db").Info("database configured",
		zap.String("type", cfg.Type),
		zap.String("name", cfg.Name),
	)

	return conn, nil
}

type MigrateParams struct {
	fx.In

	DB     *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	Models []any `group:"db.models"`
}

func Migrate(p MigrateParams) error {
	if !p.Cfg.DBAutoMigrate || p.Cfg.DBMigrations == config.MigrationsVersioned || len(p.Models) == 0 {
		return nil
	}
	if err := p.DB.AutoMigrate(p.Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	p.Log.Named("db").Info("schema migrated", zap.Int("models", len(p.Models)))
	return nil
}
