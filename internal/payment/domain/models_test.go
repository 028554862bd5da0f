package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, NormalizeStatus("completed"))
	assert.Equal(t, StatusCompleted, NormalizeStatus(" SUCCESSFUL "))
	assert.Equal(t, StatusFailed, NormalizeStatus("REJECTED"))
	assert.Equal(t, StatusCanceled, NormalizeStatus("CANCELLED"))
	assert.Equal(t, StatusExpired, NormalizeStatus("expired"))
	assert.Equal(t, Status(""), NormalizeStatus("IN_RECONCILIATION"))
}

func TestParseDepositCallback(t *testing.T) {
	callback, err := ParseDepositCallback([]byte(`{
		"depositId": " dep-1 ",
		"status": "COMPLETED",
		"amount": {"currency": "usd", "value": "3.00"},
		"metadata": {"orderId": "o-1"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "dep-1", callback.DepositID)
	assert.Equal(t, "COMPLETED", callback.Status)
	assert.Equal(t, "USD", callback.Amount.Currency)
	assert.Equal(t, "3.00", callback.Amount.Value.StringFixed(2))
	assert.NotEmpty(t, callback.Metadata)
}

func TestParseDepositCallback_NumericAmount(t *testing.T) {
	callback, err := ParseDepositCallback([]byte(`{"depositId":"dep-1","status":"COMPLETED","amount":{"currency":"USD","value":3.5}}`))
	require.NoError(t, err)
	assert.Equal(t, "3.5", callback.Amount.Value.String())
}

func TestParseDepositCallback_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{}`,
		`{"depositId":"dep-1","amount":{"currency":"USD","value":"3"}}`,
		`{"depositId":"dep-1","status":"COMPLETED"}`,
		`{"depositId":"dep-1","status":"COMPLETED","amount":{"currency":"","value":"3"}}`,
		`{"depositId":"dep-1","status":"COMPLETED","amount":{"currency":"USD","value":""}}`,
	}
	for _, payload := range cases {
		_, err := ParseDepositCallback([]byte(payload))
		assert.ErrorIs(t, err, ErrInvalidPayload, payload)
	}
}
