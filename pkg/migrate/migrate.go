package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db/models"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

// AllModels lists every table in dependency order.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.UserAddress{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductMedia{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.WishlistItem{},
		&models.UserImage{},
		&models.VtonJob{},
	}
}

// Run synchronizes the schema with the model definitions.
func Run(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("migrate: db connection is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

// MaybeRunDev synchronizes the schema automatically when the app is running
// in dev mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, conn *gorm.DB) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "running schema sync (dev auto-run)")

	if err := Run(ctx, conn); err != nil {
		return err
	}

	logg.Info(ctx, "schema sync completed")
	return nil
}
