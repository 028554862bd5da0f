package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New(`duplicate key value violates unique constraint "uq_ledger_business_key"`)))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062 (23000): Duplicate entry 'x' for key 'PRIMARY'")))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: credit_ledger_entries.idempotency_key")))
	assert.False(t, IsDuplicateKeyErr(errors.New("no such table: businesses")))
}
