package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse(" usd ", " 3.00 ")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, "3", m.Value.String())

	_, err = Parse("", "3.00")
	assert.Error(t, err)

	_, err = Parse("USD", "three")
	assert.Error(t, err)
}

func TestEqual_TrailingZeros(t *testing.T) {
	a, err := Parse("USD", "3.00")
	require.NoError(t, err)
	b, err := Parse("USD", "3")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))

	c, err := Parse("TZS", "3.00")
	require.NoError(t, err)
	assert.False(t, a.Equal(c))

	d, err := Parse("USD", "3.01")
	require.NoError(t, err)
	assert.False(t, a.Equal(d))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Money{}.IsZero())

	m, err := Parse("USD", "0")
	require.NoError(t, err)
	assert.False(t, m.IsZero())
}
