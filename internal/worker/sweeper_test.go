//go:build unit

package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"placement-engine/internal/domain/placement"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/worker"
	workermock "placement-engine/tests/mock/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

var sweepTime = time.Date(2025, 3, 8, 9, 0, 0, 0, time.UTC)

func newSweeper(t *testing.T, settings worker.SweeperSettings) (*worker.Sweeper, *workermock.MockLifecycle) {
	t.Helper()
	ctrl := gomock.NewController(t)
	lifecycle := workermock.NewMockLifecycle(ctrl)
	return worker.NewSweeper(lifecycle, clock.NewMockClock(sweepTime), settings), lifecycle
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	settings := worker.SweeperSettings{
		Interval:      time.Minute,
		CheckoutGrace: 30 * time.Minute,
		BatchSize:     50,
	}

	t.Run("expires, cancels and purges", func(t *testing.T) {
		sweeper, lifecycle := newSweeper(t, settings)
		due := []uuid.UUID{uuid.New(), uuid.New()}
		abandoned := uuid.New()
		cutoff := sweepTime.Add(-30 * time.Minute)

		lifecycle.EXPECT().ExpiredIDs(ctx, sweepTime, 50).Return(due, nil)
		lifecycle.EXPECT().Expire(ctx, due[0]).Return(true, nil)
		// lost the CAS to another instance
		lifecycle.EXPECT().Expire(ctx, due[1]).Return(false, nil)
		lifecycle.EXPECT().AbandonedIDs(ctx, placement.StatePendingPayment, cutoff, 50).Return([]uuid.UUID{abandoned}, nil)
		lifecycle.EXPECT().CancelAbandoned(ctx, abandoned, cutoff).Return(true, nil)
		lifecycle.EXPECT().PurgeIdempotencyKeys(ctx, sweepTime).Return(int64(3), nil)

		report := sweeper.RunOnce(ctx)

		assert.Equal(t, worker.SweepReport{Expired: 1, CancelledCheckouts: 1, PurgedKeys: 3}, report)
	})

	t.Run("one failing placement does not stop the batch", func(t *testing.T) {
		sweeper, lifecycle := newSweeper(t, settings)
		ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

		lifecycle.EXPECT().ExpiredIDs(gomock.Any(), gomock.Any(), gomock.Any()).Return(ids, nil)
		lifecycle.EXPECT().Expire(gomock.Any(), ids[0]).Return(true, nil)
		lifecycle.EXPECT().Expire(gomock.Any(), ids[1]).Return(false, errors.New("connection reset"))
		lifecycle.EXPECT().Expire(gomock.Any(), ids[2]).Return(true, nil)
		lifecycle.EXPECT().AbandonedIDs(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
		lifecycle.EXPECT().PurgeIdempotencyKeys(gomock.Any(), gomock.Any()).Return(int64(0), nil)

		report := sweeper.RunOnce(ctx)

		assert.Equal(t, 2, report.Expired)
		assert.Equal(t, 2, report.Failures)
	})

	t.Run("assignment sweep runs only when a grace is configured", func(t *testing.T) {
		withAssignments := settings
		withAssignments.AssignmentGrace = 48 * time.Hour
		sweeper, lifecycle := newSweeper(t, withAssignments)
		stale := uuid.New()
		assignCutoff := sweepTime.Add(-48 * time.Hour)

		lifecycle.EXPECT().ExpiredIDs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		lifecycle.EXPECT().AbandonedIDs(gomock.Any(), placement.StatePendingPayment, gomock.Any(), gomock.Any()).Return(nil, nil)
		lifecycle.EXPECT().AbandonedIDs(gomock.Any(), placement.StateAssigned, assignCutoff, 50).Return([]uuid.UUID{stale}, nil)
		lifecycle.EXPECT().CancelAbandoned(gomock.Any(), stale, assignCutoff).Return(true, nil)
		lifecycle.EXPECT().PurgeIdempotencyKeys(gomock.Any(), gomock.Any()).Return(int64(0), nil)

		report := sweeper.RunOnce(ctx)

		assert.Equal(t, 1, report.CancelledAssignments)
		assert.Zero(t, report.CancelledCheckouts)
	})
}

func TestSweeper_StartStop(t *testing.T) {
	sweeper, lifecycle := newSweeper(t, worker.SweeperSettings{Interval: 5 * time.Millisecond, CheckoutGrace: time.Minute})

	swept := make(chan struct{}, 1)
	lifecycle.EXPECT().ExpiredIDs(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	lifecycle.EXPECT().AbandonedIDs(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	lifecycle.EXPECT().PurgeIdempotencyKeys(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, time.Time) (int64, error) {
		select {
		case swept <- struct{}{}:
		default:
		}
		return 0, nil
	}).AnyTimes()

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ran")
	}

	sweeper.Stop()
	sweeper.Stop()
}
