package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/internal/payment/domain"
	"github.com/sokobiz/sokobiz/pkg/money"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, provider, deposit_id, business_id, pack_code, status, expected_currency, expected_value, callback_currency, callback_value, callback_status, idempotency_key, failure_reason, raw_payload, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.Provider,
		payment.DepositID,
		payment.BusinessID,
		payment.PackCode,
		payment.Status,
		payment.ExpectedCurrency,
		payment.ExpectedValue,
		payment.CallbackCurrency,
		payment.CallbackValue,
		payment.CallbackStatus,
		payment.IdempotencyKey,
		payment.FailureReason,
		payment.RawPayload,
		payment.CreatedAt,
		payment.UpdatedAt,
		payment.CompletedAt,
	).Error
}

func (r *repo) FindByDepositID(ctx context.Context, db *gorm.DB, depositID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, deposit_id, business_id, pack_code, status, expected_currency, expected_value, callback_currency, callback_value, callback_status, idempotency_key, failure_reason, raw_payload, created_at, updated_at, completed_at
		 FROM payments WHERE deposit_id = ?`,
		depositID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) RecordCallback(ctx context.Context, db *gorm.DB, depositID, rawStatus string, amount money.Money, payload []byte, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET callback_status = ?, callback_currency = ?, callback_value = ?, raw_payload = ?, updated_at = ?
		 WHERE deposit_id = ? AND status <> ?`,
		rawStatus,
		amount.Currency,
		amount.Value.String(),
		payload,
		at,
		depositID,
		domain.StatusCompleted,
	).Error
}

func (r *repo) MarkTerminal(ctx context.Context, db *gorm.DB, depositID string, status domain.Status, failureReason string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE deposit_id = ? AND status <> ?`,
		status,
		failureReason,
		at,
		depositID,
		domain.StatusCompleted,
	).Error
}

func (r *repo) CompleteGate(ctx context.Context, db *gorm.DB, depositID string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = '', completed_at = ?, updated_at = ?
		 WHERE deposit_id = ? AND status <> ?`,
		domain.StatusCompleted,
		at,
		at,
		depositID,
		domain.StatusCompleted,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
