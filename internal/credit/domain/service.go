package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/pkg/db/pagination"
	"github.com/sokobiz/sokobiz/pkg/money"
)

type Service interface {
	GetBalance(ctx context.Context, businessID snowflake.ID) (*Balance, error)

	// PurchaseCredits grants the effective credits of the active pack named
	// by packCode. The idempotency key ties the grant to its payment;
	// repeating the same key is a no-op returning the original entry.
	PurchaseCredits(ctx context.Context, businessID snowflake.ID, packCode string, amount money.Money, source Source, idempotencyKey string) (*LedgerEntry, error)

	// PurchaseCreditsTx is PurchaseCredits running inside the caller's
	// transaction, so a payment completion and its grant commit atomically.
	PurchaseCreditsTx(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, packCode string, amount money.Money, source Source, idempotencyKey string) (*LedgerEntry, error)

	// ConsumeOneForOrder burns one credit for the order. Repeating the same
	// order returns the original entry without burning again.
	ConsumeOneForOrder(ctx context.Context, businessID snowflake.ID, orderID string, source Source) (*LedgerEntry, error)

	// ReverseConsume returns the credit burned for the order. A reversal
	// happens at most once per order.
	ReverseConsume(ctx context.Context, businessID snowflake.ID, orderID string) (*LedgerEntry, error)

	// AdjustCredits applies a manual signed correction to the grant total.
	AdjustCredits(ctx context.Context, businessID snowflake.ID, delta int64, entryType EntryType, idempotencyKey, note string) (*LedgerEntry, error)

	ListLedger(ctx context.Context, businessID snowflake.ID, page pagination.Pagination) ([]*LedgerEntry, *pagination.PageInfo, error)
}
