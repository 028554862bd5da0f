package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	businessdomain "github.com/sokobiz/sokobiz/internal/business/domain"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	pkgdb "github.com/sokobiz/sokobiz/pkg/db"
)

const (
	demoBusinessName  = "Demo Business"
	demoBusinessPhone = "+255700000001"
)

// EnsurePackCatalog seeds the purchasable pack catalog. Existing rows are
// left untouched so operators can retune prices without the seed fighting
// them on restart.
func EnsurePackCatalog(db *gorm.DB, packs packdomain.Repository) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	now := time.Now().UTC()
	catalog := []packdomain.CreditPack{
		{
			Code:          "STARTER_20",
			Name:          "Starter",
			Credits:       20,
			BonusPercent:  0,
			PriceCurrency: "USD",
			PriceValue:    decimal.RequireFromString("3.00"),
			SortOrder:     1,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			Code:          "GROWTH_60",
			Name:          "Growth",
			Credits:       60,
			BonusPercent:  10,
			PriceCurrency: "USD",
			PriceValue:    decimal.RequireFromString("8.00"),
			SortOrder:     2,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			Code:          "SCALE_150",
			Name:          "Scale",
			Credits:       150,
			BonusPercent:  20,
			PriceCurrency: "USD",
			PriceValue:    decimal.RequireFromString("18.00"),
			SortOrder:     3,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	ctx := context.Background()
	for i := range catalog {
		err := packs.Insert(ctx, db, &catalog[i])
		if err != nil && !pkgdb.IsDuplicateKeyErr(err) {
			return err
		}
	}
	return nil
}

// EnsureDemoBusiness seeds one business with a small overdraft allowance for
// local development and smoke tests.
func EnsureDemoBusiness(db *gorm.DB, businesses businessdomain.Repository) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var existing businessdomain.Business
	err = db.WithContext(ctx).Where("phone = ?", demoBusinessPhone).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	business := businessdomain.Business{
		ID:             node.Generate(),
		Name:           demoBusinessName,
		Phone:          demoBusinessPhone,
		Country:        "TZ",
		Currency:       "USD",
		OverdraftLimit: 2,
		Metadata:       datatypes.JSONMap{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return businesses.Insert(ctx, db, &business)
}
