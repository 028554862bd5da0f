package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/pkg/db/pagination"
)

type Repository interface {
	// InsertEntry appends the entry. It reports false without error when an
	// entry with the same (business_id, idempotency_key) already exists.
	InsertEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) (bool, error)
	FindByKey(ctx context.Context, db *gorm.DB, businessID snowflake.ID, idempotencyKey string) (*LedgerEntry, error)
	// List returns up to limit+1 entries newest first, resuming after cursor.
	List(ctx context.Context, db *gorm.DB, businessID snowflake.ID, cursor *pagination.Cursor, limit int) ([]*LedgerEntry, error)
	SumDeltas(ctx context.Context, db *gorm.DB, businessID snowflake.ID) (int64, error)
}
