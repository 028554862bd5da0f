package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pack *CreditPack) error
	FindActiveByCode(ctx context.Context, db *gorm.DB, code string) (*CreditPack, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]*CreditPack, error)
}
