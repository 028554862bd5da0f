package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/internal/credit/domain"
	pkgdb "github.com/sokobiz/sokobiz/pkg/db"
	"github.com/sokobiz/sokobiz/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) (bool, error) {
	stmt := `INSERT INTO credit_ledger_entries (id, business_id, entry_type, credits_delta, balance_after, source, order_id, pack_code, amount_currency, amount_value, idempotency_key, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	// MySQL has no ON CONFLICT; the unique index rejects the duplicate instead.
	if db.Dialector.Name() != "mysql" {
		stmt += ` ON CONFLICT (business_id, idempotency_key) DO NOTHING`
	}
	result := db.WithContext(ctx).Exec(
		stmt,
		entry.ID,
		entry.BusinessID,
		entry.EntryType,
		entry.CreditsDelta,
		entry.BalanceAfter,
		entry.Source,
		entry.OrderID,
		entry.PackCode,
		entry.AmountCurrency,
		entry.AmountValue,
		entry.IdempotencyKey,
		entry.Metadata,
		entry.CreatedAt,
	)
	if result.Error != nil {
		if pkgdb.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, businessID snowflake.ID, idempotencyKey string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, entry_type, credits_delta, balance_after, source, order_id, pack_code, amount_currency, amount_value, idempotency_key, metadata, created_at
		 FROM credit_ledger_entries WHERE business_id = ? AND idempotency_key = ?`,
		businessID,
		idempotencyKey,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, cursor *pagination.Cursor, limit int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	stmt := db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("business_id = ?", businessID)
	if cursor != nil {
		cursorID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ledger cursor id %q: %w", cursor.ID, err)
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursorID)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) SumDeltas(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(credits_delta), 0) FROM credit_ledger_entries WHERE business_id = ?`,
		businessID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
