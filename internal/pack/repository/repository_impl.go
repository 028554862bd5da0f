package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/internal/pack/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pack *domain.CreditPack) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO credit_packs (code, name, credits, bonus_percent, price_currency, price_value, region, sort_order, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pack.Code,
		pack.Name,
		pack.Credits,
		pack.BonusPercent,
		pack.PriceCurrency,
		pack.PriceValue,
		pack.Region,
		pack.SortOrder,
		pack.IsActive,
		pack.CreatedAt,
		pack.UpdatedAt,
	).Error
}

func (r *repo) FindActiveByCode(ctx context.Context, db *gorm.DB, code string) (*domain.CreditPack, error) {
	var pack domain.CreditPack
	err := db.WithContext(ctx).Raw(
		`SELECT code, name, credits, bonus_percent, price_currency, price_value, region, sort_order, is_active, created_at, updated_at
		 FROM credit_packs WHERE code = ? AND is_active`,
		code,
	).Scan(&pack).Error
	if err != nil {
		return nil, err
	}
	if pack.Code == "" {
		return nil, nil
	}
	return &pack, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.CreditPack, error) {
	var packs []*domain.CreditPack
	err := db.WithContext(ctx).
		Model(&domain.CreditPack{}).
		Where("is_active").
		Order("sort_order asc, code asc").
		Find(&packs).Error
	if err != nil {
		return nil, err
	}
	return packs, nil
}
