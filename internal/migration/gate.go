package migration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

const StatusActive = "active"

var (
	ErrSchemaNotMigrated     = errors.New("schema_not_migrated")
	ErrSchemaInactive        = errors.New("schema_inactive")
	ErrSchemaVersionMismatch = errors.New("schema_version_mismatch")
	ErrSchemaChecksumChanged = errors.New("schema_checksum_mismatch")
)

type schemaState struct {
	Status        string     `gorm:"column:status"`
	SchemaVersion string     `gorm:"column:schema_version"`
	Checksum      *string    `gorm:"column:checksum"`
	ActivatedAt   *time.Time `gorm:"column:activated_at"`
}

// SchemaGate verifies that the database was migrated to exactly the schema
// embedded in this binary.
type SchemaGate struct {
	db               *gorm.DB
	expectedVersion  string
	expectedChecksum string
}

func NewSchemaGate(db *gorm.DB) (*SchemaGate, error) {
	latest, err := LatestMigrationVersion()
	if err != nil {
		return nil, err
	}
	checksum, err := MigrationsChecksum()
	if err != nil {
		return nil, err
	}
	return &SchemaGate{
		db:               db,
		expectedVersion:  strconv.FormatUint(uint64(latest), 10),
		expectedChecksum: checksum,
	}, nil
}

func (g *SchemaGate) MustBeActive(ctx context.Context) error {
	var state schemaState
	res := g.db.WithContext(ctx).Table("system_bootstrap_state").
		Select("status, schema_version, checksum, activated_at").
		Where("id = TRUE").
		Limit(1).
		Scan(&state)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrSchemaNotMigrated, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSchemaNotMigrated
	}

	if status := strings.ToLower(strings.TrimSpace(state.Status)); status != StatusActive {
		return fmt.Errorf("%w: status=%s", ErrSchemaInactive, status)
	}
	if v := strings.TrimSpace(state.SchemaVersion); v != g.expectedVersion {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, v, g.expectedVersion)
	}
	if state.Checksum != nil && *state.Checksum != "" && *state.Checksum != g.expectedChecksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumChanged, *state.Checksum, g.expectedChecksum)
	}
	return nil
}

// EnforceSchemaGate fails application start when the schema is not active.
func EnforceSchemaGate(lc fx.Lifecycle, gate *SchemaGate) {
	lc.Append(fx.Hook{
		OnStart: gate.MustBeActive,
	})
}
