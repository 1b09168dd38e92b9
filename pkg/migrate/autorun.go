package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bookstore-storefront/pkg/config"
	"github.com/angelmondragon/bookstore-storefront/pkg/db"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
)

// MaybeAutoRun applies the embedded migrations when auto-migrate is enabled and the
// service runs in dev or against the local sqlite ledger.
func MaybeAutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if !cfg.App.IsDev() && !cfg.FeatureFlags.UseSQLite {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, client.Dialect(), "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
