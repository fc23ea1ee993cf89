package migration

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestLockSessionReturnsConnectionOnFailure(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// SQLite has no advisory locks, so acquiring fails on the first query.
	lock, err := lockSession(ctx, sqlDB, migrateLockName, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, lock)
	assert.Contains(t, err.Error(), migrateLockName)
	assert.Zero(t, sqlDB.Stats().InUse)
}
