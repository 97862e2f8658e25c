//go:build unit

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"placement-engine/internal/infra/memstore"
	"placement-engine/internal/infra/notify"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutbox_Send(t *testing.T) {
	store := memstore.New()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	outbox := notify.NewOutbox(store, clock.NewMockClock(now))
	tenant := uuid.New()

	err := outbox.Send(context.Background(), commands.Notification{
		TenantID: tenant,
		Topic:    "placement.capacity_available",
		Payload:  map[string]any{"kind": "banner"},
	})
	require.NoError(t, err)

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, notify.JobKind, jobs[0].Kind)
	assert.Equal(t, "placement.capacity_available", jobs[0].Topic)
	assert.Equal(t, now, jobs[0].RunAt)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
	assert.Equal(t, map[string]string{"kind": "banner", "tenant_id": tenant.String()}, payload)
}

func TestOutbox_SendCancelled(t *testing.T) {
	store := memstore.New()
	outbox := notify.NewOutbox(store, clock.NewMockClock(time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := outbox.Send(ctx, commands.Notification{TenantID: uuid.New(), Topic: "t"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.Jobs())
}
