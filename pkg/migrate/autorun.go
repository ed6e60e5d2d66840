package migrate

import (
	"context"
	"database/sql"

	"github.com/velara-labs/cryptomart-backend/pkg/config"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations in dev environments when the
// auto-migrate feature flag is set. It is a no-op everywhere else.
func MaybeRunDev(ctx context.Context, cfg *config.Config, db *sql.DB, logg *logger.Logger) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	logCtx := logg.WithField(ctx, "dir", DefaultDir)
	logg.Info(logCtx, "auto-migrate enabled, applying pending migrations")
	if err := Run(ctx, db, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(logCtx, "auto-migrate complete")
	return nil
}
