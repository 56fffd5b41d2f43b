package database

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starbids/starbids/starbids/store"
)

// Wallet mutations write absolute balance/hold values, so units of work must
// run serializable: under read committed two concurrent holds on one wallet
// would overwrite each other and lose money.
func TestTxOptionsSerializable(t *testing.T) {
	assert.Equal(t, sql.LevelSerializable, txOptions.Isolation)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	// Serialization failures must come back retryable for the engines'
	// bounded retry loops.
	err := translate(fmt.Errorf("commit: %w", store.ErrTxConflict))
	assert.True(t, store.IsRetryable(err))

	assert.ErrorIs(t, translate(sql.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", sql.ErrNoRows)), store.ErrNotFound)

	// Sentinels already applied pass through unchanged.
	assert.ErrorIs(t, translate(store.ErrNotFound), store.ErrNotFound)
	assert.ErrorIs(t, translate(store.ErrDuplicate), store.ErrDuplicate)

	// Unknown errors are left as-is.
	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, translate(plain))
}
