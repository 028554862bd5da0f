package amounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokobiz/sokobiz/pkg/money"
)

func TestTableResolve(t *testing.T) {
	table, err := NewFromEntries(DefaultAmountEntries())
	require.NoError(t, err)

	amount, err := money.Parse("USD", "3.00")
	require.NoError(t, err)

	code, ok := table.Resolve(amount)
	require.True(t, ok)
	assert.Equal(t, "STARTER_20", code)

	// Equivalent decimal spelling hits the same entry.
	amount, err = money.Parse("USD", "3")
	require.NoError(t, err)
	code, ok = table.Resolve(amount)
	require.True(t, ok)
	assert.Equal(t, "STARTER_20", code)

	amount, err = money.Parse("USD", "4.00")
	require.NoError(t, err)
	_, ok = table.Resolve(amount)
	assert.False(t, ok)

	amount, err = money.Parse("TZS", "3.00")
	require.NoError(t, err)
	_, ok = table.Resolve(amount)
	assert.False(t, ok)
}

func TestCompileAmountEntries_Invalid(t *testing.T) {
	_, err := NewFromEntries(nil)
	assert.Error(t, err)

	_, err = NewFromEntries([]AmountEntry{{Pack: "", Currency: "USD", Amount: "3.00"}})
	assert.Error(t, err)

	_, err = NewFromEntries([]AmountEntry{{Pack: "A", Currency: "USD", Amount: "nope"}})
	assert.Error(t, err)

	_, err = NewFromEntries([]AmountEntry{
		{Pack: "A", Currency: "USD", Amount: "3.00"},
		{Pack: "B", Currency: "USD", Amount: "3"},
	})
	assert.Error(t, err)
}

func TestCompileAmountEntries_DuplicateSamePack(t *testing.T) {
	table, err := NewFromEntries([]AmountEntry{
		{Pack: "A", Currency: "USD", Amount: "3.00"},
		{Pack: "A", Currency: "USD", Amount: "3"},
	})
	require.NoError(t, err)

	amount, err := money.Parse("USD", "3.00")
	require.NoError(t, err)
	code, ok := table.Resolve(amount)
	require.True(t, ok)
	assert.Equal(t, "A", code)
}
