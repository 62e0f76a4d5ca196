package migration

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/kredible/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrUnsupportedDialect = errors.New("versioned_migrations_require_postgres")

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply runs the embedded migrations when the schema is managed by version.
// In auto mode gorm AutoMigrate owns the schema and this is a no-op.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if cfg.DBMigrations != config.MigrationsVersioned {
		return nil
	}
	if cfg.DBType != "postgres" {
		return fmt.Errorf("%w: got %q", ErrUnsupportedDialect, cfg.DBType)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}

	log.Named("migrations").Info("schema migrations applied")
	return nil
}
