package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/railzwaylabs/roomledger/internal/layout"
	"github.com/railzwaylabs/roomledger/internal/observability"
	roomdomain "github.com/railzwaylabs/roomledger/internal/room/domain"
	storedomain "github.com/railzwaylabs/roomledger/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const paidStatus = "PAID"

// DataMigrations rewrites building data written by older clients into the
// current shapes.
type DataMigrations struct {
	store storedomain.Store
	log   *zap.Logger
}

type DataMigrationsParam struct {
	fx.In

	Store storedomain.Store
	Log   *zap.Logger
}

func NewDataMigrations(p DataMigrationsParam) *DataMigrations {
	return &DataMigrations{
		store: p.Store,
		log:   p.Log.Named("migration.data"),
	}
}

type SweepReport struct {
	Building string `json:"building"`
	Rooms    int    `json:"rooms"`
	Legacy   int    `json:"legacy"`
	Copied   int    `json:"copied"`
	// Remaining counts legacy records that still have no canonical copy.
	Remaining int  `json:"remaining"`
	DryRun    bool `json:"dry_run"`
}

// SweepLegacyPayments copies records stored under the singular payment key
// to the canonical key. Legacy records are left in place so older readers
// keep working.
func (m *DataMigrations) SweepLegacyPayments(ctx context.Context, buildingID string, dryRun bool) (*SweepReport, error) {
	if err := layout.ValidID(buildingID); err != nil {
		return nil, roomdomain.ErrInvalidBuilding
	}
	rooms, err := m.store.Shallow(ctx, layout.Rooms(buildingID))
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Building: buildingID, Rooms: len(rooms), DryRun: dryRun}
	for _, roomID := range rooms {
		legacy, err := m.store.Read(ctx, layout.LegacyPayments(buildingID, roomID))
		if err != nil {
			return nil, err
		}
		for _, record := range legacy.Children() {
			report.Legacy++
			needed, err := m.sweepRecord(ctx, buildingID, roomID, record, dryRun)
			if err != nil {
				return nil, fmt.Errorf("sweep %s/%s: %w", roomID, record.Key(), err)
			}
			if !needed {
				continue
			}
			if dryRun {
				report.Remaining++
			} else {
				report.Copied++
			}
		}
	}

	observability.SetLegacyPayments(buildingID, report.Remaining)
	m.log.Info("legacy payment sweep finished",
		zap.String("building", buildingID),
		zap.Int("legacy", report.Legacy),
		zap.Int("copied", report.Copied),
		zap.Int("remaining", report.Remaining),
		zap.Bool("dry_run", dryRun),
	)
	return report, nil
}

// sweepRecord reports whether the legacy record lacked a canonical copy. The
// copy is written unless dryRun is set.
func (m *DataMigrations) sweepRecord(ctx context.Context, buildingID, roomID string, legacy storedomain.Snapshot, dryRun bool) (bool, error) {
	month := legacy.Key()
	target := layout.Payment(buildingID, roomID, month)

	current, err := m.store.Read(ctx, target)
	if err != nil {
		return false, err
	}
	if current.Exists() {
		// A PAID legacy record outranks an unsettled canonical one.
		if isPaid(current) || !isPaid(legacy) {
			return false, nil
		}
		if dryRun {
			return true, nil
		}
		return m.store.ReplaceIf(ctx, target, legacy.Value(), unpaid)
	}

	if dryRun {
		return true, nil
	}
	created, err := m.store.CreateIfAbsent(ctx, target, legacy.Value())
	if err != nil {
		return false, err
	}
	return created, nil
}

func unpaid(record storedomain.Snapshot) bool { return !isPaid(record) }

func isPaid(record storedomain.Snapshot) bool {
	status, _ := record.Child("status").String()
	return strings.EqualFold(status, paidStatus)
}
