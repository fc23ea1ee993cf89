// Package scheduler refreshes per-building arrears and legacy-record gauges
// on a fixed interval.
package scheduler

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	arrearsdomain "github.com/railzwaylabs/roomledger/internal/arrears/domain"
	"github.com/railzwaylabs/roomledger/internal/clock"
	"github.com/railzwaylabs/roomledger/internal/config"
	"github.com/railzwaylabs/roomledger/internal/migration"
	"github.com/railzwaylabs/roomledger/internal/observability"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultInterval = time.Hour

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(RegisterLifecycle),
)

type Scheduler struct {
	cfg     config.SchedulerConfig
	log     *zap.Logger
	clock   clock.Clock
	arrears arrearsdomain.Service
	data    *migration.DataMigrations
}

type Param struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Clock   clock.Clock
	Arrears arrearsdomain.Service
	Data    *migration.DataMigrations
}

func New(p Param) *Scheduler {
	return &Scheduler{
		cfg:     p.Config.Scheduler,
		log:     p.Log.Named("scheduler"),
		clock:   p.Clock,
		arrears: p.Arrears,
		data:    p.Data,
	}
}

// RunReport summarizes one pass over the configured buildings.
type RunReport struct {
	RunID     string
	Buildings int
	Failed    int
	// Arrears maps building to month key to room count.
	Arrears map[string]map[string]int
}

// RunOnce scans every configured building. A failing building is logged and
// skipped so the others still refresh.
func (s *Scheduler) RunOnce(ctx context.Context) RunReport {
	runID := ulid.MustNew(ulid.Timestamp(s.clock.Now(ctx)), rand.Reader).String()
	log := s.log.With(zap.String("run_id", runID))
	report := RunReport{RunID: runID, Arrears: map[string]map[string]int{}}

	start := time.Now()
	for _, building := range s.cfg.Buildings {
		if ctx.Err() != nil {
			break
		}
		report.Buildings++

		months, err := s.arrears.Scan(ctx, building, 0)
		if err != nil {
			report.Failed++
			log.Warn("arrears scan failed", zap.String("building", building), zap.Error(err))
			continue
		}
		counts := make(map[string]int, len(months))
		for _, m := range months {
			counts[m.Month.String()] = m.Count
		}
		observability.SetArrearsRooms(building, counts)
		report.Arrears[building] = counts

		if s.data != nil {
			sweep, err := s.data.SweepLegacyPayments(ctx, building, true)
			if err != nil {
				log.Warn("legacy payment count failed", zap.String("building", building), zap.Error(err))
			} else if sweep.Remaining > 0 {
				log.Info("legacy payment records pending", zap.String("building", building), zap.Int("remaining", sweep.Remaining))
			}
		}
	}

	log.Info("scheduler run finished",
		zap.Int("buildings", report.Buildings),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report
}

// Start runs RunOnce immediately and then on every tick until ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func RegisterLifecycle(lc fx.Lifecycle, s *Scheduler) {
	if !s.cfg.Enabled || len(s.cfg.Buildings) == 0 {
		s.log.Debug("scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Start(ctx)
			}()
			s.log.Info("scheduler started",
				zap.Duration("interval", s.cfg.Interval),
				zap.Strings("buildings", s.cfg.Buildings),
			)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
