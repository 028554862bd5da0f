package domain

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/pkg/money"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByDepositID(ctx context.Context, db *gorm.DB, depositID string) (*Payment, error)
	// RecordCallback stores the callback's reported status, amount and raw
	// payload for audit. Completed payments are left untouched.
	RecordCallback(ctx context.Context, db *gorm.DB, depositID, rawStatus string, amount money.Money, payload []byte, at time.Time) error
	// MarkTerminal moves a non-completed payment to a terminal status.
	MarkTerminal(ctx context.Context, db *gorm.DB, depositID string, status Status, failureReason string, at time.Time) error
	// CompleteGate flips the payment to COMPLETED only if it is not already.
	// It reports false when an earlier delivery won, making the completion
	// transition exactly-once.
	CompleteGate(ctx context.Context, db *gorm.DB, depositID string, at time.Time) (bool, error)
}
