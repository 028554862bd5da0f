package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrNotFound        = errors.New("business not found")
	ErrVersionConflict = errors.New("business was modified concurrently")
)

// Business is a tenant account holding a prepaid credit balance.
type Business struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name           string            `gorm:"not null" json:"name"`
	Phone          string            `gorm:"column:phone" json:"phone,omitempty"`
	Country        string            `gorm:"column:country" json:"country,omitempty"`
	Currency       string            `gorm:"column:currency;not null;default:'USD'" json:"currency"`
	CreditsTotal   int64             `gorm:"not null;default:0" json:"credits_total"`
	CreditsUsed    int64             `gorm:"not null;default:0" json:"credits_used"`
	OverdraftLimit int64             `gorm:"not null;default:0" json:"overdraft_limit"`
	Version        int64             `gorm:"not null;default:0" json:"-"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Available reports the credits remaining before the balance reaches zero.
func (b *Business) Available() int64 {
	return b.CreditsTotal - b.CreditsUsed
}

// CanConsume reports whether one more unit may be admitted. A business in
// the overdraft band is allowed through until used exceeds total by the
// overdraft limit.
func (b *Business) CanConsume() bool {
	if b.Available() > 0 {
		return true
	}
	return b.CreditsUsed-b.CreditsTotal < b.OverdraftLimit
}
