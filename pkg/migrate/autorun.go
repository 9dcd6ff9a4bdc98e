package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/adoniasgoesw/filazero/pkg/config"
	"github.com/adoniasgoesw/filazero/pkg/db"
	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/logger"
)

// MaybeRunDev prepares the schema at boot. With the auto-migrate flag, Postgres in dev runs
// the embedded goose migrations and sqlite always uses AutoMigrate. The seed flag then fills
// an empty catalog.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})

	if cfg.FeatureFlags.AutoMigrate {
		if err := autoMigrate(ctx, cfg, logg, client); err != nil {
			return err
		}
	}
	if !cfg.FeatureFlags.SeedCatalog {
		return nil
	}
	report, err := SeedDemoCatalog(ctx, client.DB())
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"products":        report.Products,
		"complements":     report.Complements,
		"payment_methods": report.PaymentMethods,
	}), "catalog seed finished")
	return nil
}

func autoMigrate(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client.Driver() == db.DriverSQLite {
		logg.Info(ctx, "running gorm auto-migrate")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	}
	if !cfg.App.IsDev() {
		logg.Warn(ctx, "auto-migrate ignored outside dev; run cmd/migrate")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	var out strings.Builder
	if err := Run(ctx, sqlDB, "", "up", &out); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", strings.TrimSpace(out.String())), "goose migrations completed")
	return nil
}
