package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/internal/business/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, business *domain.Business) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO businesses (id, name, phone, country, currency, credits_total, credits_used, overdraft_limit, version, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		business.ID,
		business.Name,
		business.Phone,
		business.Country,
		business.Currency,
		business.CreditsTotal,
		business.CreditsUsed,
		business.OverdraftLimit,
		business.Version,
		business.Metadata,
		business.CreatedAt,
		business.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Business, error) {
	var business domain.Business
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone, country, currency, credits_total, credits_used, overdraft_limit, version, metadata, created_at, updated_at
		 FROM businesses WHERE id = ?`,
		id,
	).Scan(&business).Error
	if err != nil {
		return nil, err
	}
	if business.ID == 0 {
		return nil, nil
	}
	return &business, nil
}

func (r *repo) UpdateCredits(ctx context.Context, db *gorm.DB, id snowflake.ID, creditsTotal, creditsUsed, expectedVersion int64, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE businesses
		 SET credits_total = ?, credits_used = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		creditsTotal,
		creditsUsed,
		now,
		id,
		expectedVersion,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
