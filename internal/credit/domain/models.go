package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/sokobiz/sokobiz/pkg/money"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoConsumeToReverse  = errors.New("no consume entry to reverse")
	ErrNoUsageToReverse    = errors.New("no recorded usage to reverse")
	ErrAlreadyReversed     = errors.New("consume already reversed")
	ErrConflict            = errors.New("credit balance was modified concurrently")
)

type EntryType string

const (
	EntryPurchase   EntryType = "purchase"
	EntryConsume    EntryType = "consume"
	EntryReversal   EntryType = "reversal"
	EntryRefund     EntryType = "refund"
	EntryBonus      EntryType = "bonus"
	EntryAdjustment EntryType = "adjustment"
)

type Source string

const (
	SourceWeb         Source = "web"
	SourceWhatsapp    Source = "whatsapp"
	SourceMobileMoney Source = "mobile_money"
	SourceAdmin       Source = "admin"
	SourceSystem      Source = "system"
)

// LedgerEntry is one immutable movement on a business credit balance.
// Entries are append-only; corrections are new entries, never updates.
type LedgerEntry struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	BusinessID     snowflake.ID      `gorm:"not null;index;uniqueIndex:uq_ledger_business_key" json:"business_id"`
	EntryType      EntryType         `gorm:"not null" json:"entry_type"`
	CreditsDelta   int64             `gorm:"not null" json:"credits_delta"`
	BalanceAfter   int64             `gorm:"not null" json:"balance_after"`
	Source         Source            `gorm:"not null" json:"source"`
	OrderID        string            `gorm:"column:order_id;index" json:"order_id,omitempty"`
	PackCode       string            `gorm:"column:pack_code" json:"pack_code,omitempty"`
	AmountCurrency string            `gorm:"column:amount_currency" json:"amount_currency,omitempty"`
	AmountValue    *decimal.Decimal  `gorm:"column:amount_value;type:text" json:"amount_value,omitempty"`
	IdempotencyKey string            `gorm:"not null;uniqueIndex:uq_ledger_business_key" json:"idempotency_key"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName pins the gorm mapping to the table the raw SQL and migrations use.
func (LedgerEntry) TableName() string { return "credit_ledger_entries" }

// SetAmount stamps the monetary amount the entry settles.
func (e *LedgerEntry) SetAmount(m money.Money) {
	value := m.Value
	e.AmountCurrency = m.Currency
	e.AmountValue = &value
}

// Balance is the read-model projection of a business credit position.
type Balance struct {
	BusinessID         snowflake.ID `json:"business_id"`
	CreditsTotal       int64        `json:"credits_total"`
	CreditsUsed        int64        `json:"credits_used"`
	Available          int64        `json:"available"`
	OverdraftLimit     int64        `json:"overdraft_limit"`
	EffectiveAvailable int64        `json:"effective_available"`
}

// ConsumeKey is the idempotency key guarding one unit of usage per order.
func ConsumeKey(orderID string) string { return "consume:" + orderID }

// ReversalKey is the idempotency key guarding the single reversal per order.
func ReversalKey(orderID string) string { return "reversal:" + orderID }

// PurchaseKey is the idempotency key tying a credit grant to its deposit.
func PurchaseKey(depositID string) string { return "purchase:" + depositID }
