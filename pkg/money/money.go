package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount in a single currency. Values are decimal,
// never floats; two amounts are equal only when both the currency code and the
// numeric value match exactly.
type Money struct {
	Currency string          `json:"currency"`
	Value    decimal.Decimal `json:"value"`
}

func New(currency string, value decimal.Decimal) Money {
	return Money{Currency: normalizeCurrency(currency), Value: value}
}

// Parse builds a Money from a currency code and a decimal string.
func Parse(currency, value string) (Money, error) {
	currency = normalizeCurrency(currency)
	if currency == "" {
		return Money{}, fmt.Errorf("money: empty currency")
	}
	dec, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", value, err)
	}
	return Money{Currency: currency, Value: dec}, nil
}

// Equal reports exact currency and numeric equality. 3.00 equals 3.
func (m Money) Equal(other Money) bool {
	return m.Currency == normalizeCurrency(other.Currency) && m.Value.Equal(other.Value)
}

func (m Money) IsZero() bool {
	return m.Currency == "" && m.Value.IsZero()
}

func (m Money) String() string {
	return m.Currency + " " + m.Value.String()
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
