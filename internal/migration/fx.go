package migration

import (
	"context"

	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Run(conn, cfg.DBType); err != nil {
			return err
		}
		if !cfg.SeedCatalog {
			return nil
		}
		log.Info("seeding demo catalog")
		return seed.EnsureDemoCatalog(context.Background(), conn)
	}),
)
