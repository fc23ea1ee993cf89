package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// migrateLockName names the session lock concurrent migrate runs contend on.
// Store writers take transaction locks keyed by node path in the same
// hashtext space, so the prefix keeps the two apart.
const migrateLockName = "roomledger:migrate"

const lockPollInterval = 500 * time.Millisecond

type sessionLock struct {
	conn *sql.Conn
	name string
}

// lockSession waits for the named postgres session lock until ctx expires.
// The lock lives on one pooled connection, which is held until release.
func lockSession(ctx context.Context, db *sql.DB, name string, log *zap.Logger) (*sessionLock, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve lock connection: %w", err)
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for attempt := 1; ; attempt++ {
		var locked bool
		if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", name).Scan(&locked); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if locked {
			return &sessionLock{conn: conn, name: name}, nil
		}
		if attempt == 1 {
			log.Info("waiting for lock", zap.String("lock", name))
		}
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return nil, fmt.Errorf("lock %s held elsewhere: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *sessionLock) release(ctx context.Context) error {
	defer l.conn.Close()
	var released bool
	if err := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock(hashtext($1))", l.name).Scan(&released); err != nil {
		return fmt.Errorf("release lock %s: %w", l.name, err)
	}
	if !released {
		return fmt.Errorf("lock %s was not held by this session", l.name)
	}
	return nil
}
