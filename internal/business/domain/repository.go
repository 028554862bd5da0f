package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, business *Business) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Business, error)
	// UpdateCredits applies new counter values only when the stored version
	// still matches expectedVersion. It reports whether the row was updated.
	UpdateCredits(ctx context.Context, db *gorm.DB, id snowflake.ID, creditsTotal, creditsUsed, expectedVersion int64, now time.Time) (bool, error)
}
