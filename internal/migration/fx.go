package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	businessdomain "github.com/sokobiz/sokobiz/internal/business/domain"
	"github.com/sokobiz/sokobiz/internal/config"
	creditdomain "github.com/sokobiz/sokobiz/internal/credit/domain"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	paymentdomain "github.com/sokobiz/sokobiz/internal/payment/domain"
	"github.com/sokobiz/sokobiz/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, businesses businessdomain.Repository, packs packdomain.Repository) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			err := conn.AutoMigrate(
				&businessdomain.Business{},
				&packdomain.CreditPack{},
				&creditdomain.LedgerEntry{},
				&paymentdomain.Payment{},
			)
			if err != nil {
				return err
			}
		}

		if err := seed.EnsurePackCatalog(conn, packs); err != nil {
			return err
		}
		if cfg.SeedDemoBusiness {
			return seed.EnsureDemoBusiness(conn, businesses)
		}
		return nil
	}),
)
