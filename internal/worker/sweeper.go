package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/metrics"
	"placement-engine/internal/pkg/clock"

	"github.com/google/uuid"
)

//go:generate mockgen -source=sweeper.go -destination=../../tests/mock/worker/sweeper.go -package=workermock

// Lifecycle is the part of the allocation service the sweeper drives.
type Lifecycle interface {
	ExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	AbandonedIDs(ctx context.Context, state placement.State, before time.Time, limit int) ([]uuid.UUID, error)
	Expire(ctx context.Context, placementID uuid.UUID) (bool, error)
	CancelAbandoned(ctx context.Context, placementID uuid.UUID, cutoff time.Time) (bool, error)
	PurgeIdempotencyKeys(ctx context.Context, now time.Time) (int64, error)
}

type SweeperSettings struct {
	Interval        time.Duration
	CheckoutGrace   time.Duration
	AssignmentGrace time.Duration // 0 disables the assignment sweep
	BatchSize       int
}

type SweepReport struct {
	Expired              int
	CancelledCheckouts   int
	CancelledAssignments int
	PurgedKeys           int64
	Failures             int
}

// Sweeper expires active placements and closes abandoned checkouts on a
// fixed interval. Several instances may run at once; every close is a CAS.
type Sweeper struct {
	lifecycle Lifecycle
	clock     clock.Clock
	settings  SweeperSettings

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(lifecycle Lifecycle, clk clock.Clock, settings SweeperSettings) *Sweeper {
	if settings.Interval <= 0 {
		settings.Interval = 2 * time.Minute
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = 100
	}
	return &Sweeper{lifecycle: lifecycle, clock: clk, settings: settings}
}

// Start runs the loop in a background goroutine until Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(loopCtx)
	}()
	slog.Info("expiration sweeper started", "interval", s.settings.Interval.String())
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	slog.Info("expiration sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context) {
	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures on one placement never stop the
// rest of the batch.
func (s *Sweeper) RunOnce(ctx context.Context) SweepReport {
	started := time.Now()
	now := s.clock.Now()
	var report SweepReport

	if ids, err := s.lifecycle.ExpiredIDs(ctx, now, s.settings.BatchSize); err != nil {
		slog.Error("failed to list expired placements", "error", err.Error())
		report.Failures++
	} else {
		for _, id := range ids {
			expired, expireErr := s.lifecycle.Expire(ctx, id)
			if expireErr != nil {
				slog.Warn("failed to expire placement", "placement_id", id.String(), "error", expireErr.Error())
				report.Failures++
				continue
			}
			if expired {
				report.Expired++
			}
		}
	}

	report.CancelledCheckouts = s.cancelAbandoned(ctx, placement.StatePendingPayment, now.Add(-s.settings.CheckoutGrace), &report)
	if s.settings.AssignmentGrace > 0 {
		report.CancelledAssignments = s.cancelAbandoned(ctx, placement.StateAssigned, now.Add(-s.settings.AssignmentGrace), &report)
	}

	purged, err := s.lifecycle.PurgeIdempotencyKeys(ctx, now)
	if err != nil {
		slog.Warn("failed to purge idempotency keys", "error", err.Error())
		report.Failures++
	}
	report.PurgedKeys = purged

	status := "success"
	if report.Failures > 0 {
		status = "failure"
	}
	metrics.RecordSweep(status, time.Since(started).Seconds())
	metrics.RecordSwept("expired", report.Expired)
	metrics.RecordSwept("cancelled", report.CancelledCheckouts+report.CancelledAssignments)
	metrics.RecordSwept("purged", int(report.PurgedKeys))

	if report.Expired+report.CancelledCheckouts+report.CancelledAssignments > 0 || report.Failures > 0 {
		slog.Info("sweep finished",
			"expired", report.Expired,
			"cancelled_checkouts", report.CancelledCheckouts,
			"cancelled_assignments", report.CancelledAssignments,
			"purged_keys", report.PurgedKeys,
			"failures", report.Failures)
	}
	return report
}

func (s *Sweeper) cancelAbandoned(ctx context.Context, state placement.State, cutoff time.Time, report *SweepReport) int {
	ids, err := s.lifecycle.AbandonedIDs(ctx, state, cutoff, s.settings.BatchSize)
	if err != nil {
		slog.Error("failed to list abandoned placements", "state", state.String(), "error", err.Error())
		report.Failures++
		return 0
	}

	var cancelled int
	for _, id := range ids {
		ok, cancelErr := s.lifecycle.CancelAbandoned(ctx, id, cutoff)
		if cancelErr != nil {
			slog.Warn("failed to cancel abandoned placement",
				"placement_id", id.String(),
				"state", state.String(),
				"error", cancelErr.Error())
			report.Failures++
			continue
		}
		if ok {
			cancelled++
		}
	}
	return cancelled
}
