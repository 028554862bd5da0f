package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrPackNotFound = errors.New("credit pack not found")

// CreditPack is a purchasable bundle of credits at a fixed price point.
type CreditPack struct {
	Code          string          `gorm:"primaryKey" json:"code"`
	Name          string          `gorm:"not null" json:"name"`
	Credits       int64           `gorm:"not null" json:"credits"`
	BonusPercent  int64           `gorm:"not null;default:0" json:"bonus_percent"`
	PriceCurrency string          `gorm:"not null" json:"price_currency"`
	PriceValue    decimal.Decimal `gorm:"type:text;not null" json:"price_value"`
	Region        string          `gorm:"column:region" json:"region,omitempty"`
	SortOrder     int             `gorm:"not null;default:0" json:"sort_order"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// EffectiveCredits is the credit grant including the bonus, rounded down.
func (p *CreditPack) EffectiveCredits() int64 {
	return p.Credits + p.Credits*p.BonusPercent/100
}
