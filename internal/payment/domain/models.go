package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/sokobiz/sokobiz/pkg/money"
)

var (
	ErrVerificationFailed = errors.New("webhook verification failed")
	ErrInvalidPayload     = errors.New("invalid webhook payload")
	ErrUnknownDeposit     = errors.New("unknown deposit id")
	ErrBusinessNotFound   = errors.New("payment business not found")
	ErrPackUnavailable    = errors.New("payment pack inactive or missing")
	ErrAmountMismatch     = errors.New("callback amount does not match expected amount")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
	StatusExpired   Status = "EXPIRED"
)

// Failure reasons recorded on FAILED payments.
const (
	FailureBusinessNotFound      = "BUSINESS_NOT_FOUND"
	FailurePackInactiveOrMissing = "PACK_INACTIVE_OR_MISSING"
	FailureAmountMismatch        = "AMOUNT_MISMATCH"
)

// Payment tracks one external deposit attempt through its lifecycle. Rows
// are created PENDING by the checkout flow with business, pack and expected
// amount already bound; the webhook never creates or rebinds them.
type Payment struct {
	ID               snowflake.ID     `gorm:"primaryKey" json:"id"`
	Provider         string           `gorm:"not null" json:"provider"`
	DepositID        string           `gorm:"column:deposit_id;not null;uniqueIndex" json:"deposit_id"`
	BusinessID       snowflake.ID     `gorm:"not null;index" json:"business_id"`
	PackCode         string           `gorm:"column:pack_code" json:"pack_code,omitempty"`
	Status           Status           `gorm:"not null;default:'PENDING'" json:"status"`
	ExpectedCurrency string           `gorm:"column:expected_currency" json:"expected_currency,omitempty"`
	ExpectedValue    *decimal.Decimal `gorm:"column:expected_value;type:text" json:"expected_value,omitempty"`
	CallbackCurrency string           `gorm:"column:callback_currency" json:"callback_currency,omitempty"`
	CallbackValue    *decimal.Decimal `gorm:"column:callback_value;type:text" json:"callback_value,omitempty"`
	CallbackStatus   string           `gorm:"column:callback_status" json:"callback_status,omitempty"`
	IdempotencyKey   string           `gorm:"column:idempotency_key" json:"idempotency_key,omitempty"`
	FailureReason    string           `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	RawPayload       datatypes.JSON   `gorm:"type:jsonb" json:"-"`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	CompletedAt      *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

// HasExpectedAmount reports whether checkout bound an authoritative amount.
func (p *Payment) HasExpectedAmount() bool {
	return p.ExpectedCurrency != "" && p.ExpectedValue != nil
}

func (p *Payment) ExpectedAmount() money.Money {
	if !p.HasExpectedAmount() {
		return money.Money{}
	}
	return money.New(p.ExpectedCurrency, *p.ExpectedValue)
}

// SetExpectedAmount binds the authoritative amount at initiation time.
func (p *Payment) SetExpectedAmount(m money.Money) {
	value := m.Value
	p.ExpectedCurrency = m.Currency
	p.ExpectedValue = &value
}

// NormalizeStatus folds provider status spellings onto the state machine.
// Unrecognized values return "" and are recorded verbatim without a
// transition.
func NormalizeStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETED", "SUCCESS", "SUCCESSFUL", "SUCCEEDED":
		return StatusCompleted
	case "FAILED", "FAILURE", "REJECTED":
		return StatusFailed
	case "CANCELED", "CANCELLED":
		return StatusCanceled
	case "EXPIRED":
		return StatusExpired
	default:
		return ""
	}
}

// DepositCallback is the validated shape of a provider deposit callback.
type DepositCallback struct {
	DepositID string
	Status    string
	Amount    money.Money
	Metadata  json.RawMessage
}

type rawCallback struct {
	DepositID string `json:"depositId"`
	Status    string `json:"status"`
	Amount    struct {
		Currency string          `json:"currency"`
		Value    json.RawMessage `json:"value"`
	} `json:"amount"`
	Metadata json.RawMessage `json:"metadata"`
}

// ParseDepositCallback validates the raw body into a DepositCallback.
// depositId, status and amount are all required.
func ParseDepositCallback(payload []byte) (*DepositCallback, error) {
	if !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	var raw rawCallback
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(raw.DepositID) == "" || strings.TrimSpace(raw.Status) == "" {
		return nil, ErrInvalidPayload
	}

	value, err := parseDecimalField(raw.Amount.Value)
	if err != nil {
		return nil, ErrInvalidPayload
	}
	amount, err := money.Parse(raw.Amount.Currency, value)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	return &DepositCallback{
		DepositID: strings.TrimSpace(raw.DepositID),
		Status:    strings.TrimSpace(raw.Status),
		Amount:    amount,
		Metadata:  raw.Metadata,
	}, nil
}

// parseDecimalField accepts the amount value as a JSON number or a quoted
// decimal string, preserving the exact digits either way.
func parseDecimalField(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", ErrInvalidPayload
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
