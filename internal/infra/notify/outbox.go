package notify

import (
	"context"
	"encoding/json"

	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/shared"
)

// JobKind is the delivery channel the platform worker routes outbox rows to.
const JobKind = "tenant_message"

// Outbox implements commands.Notifier by queueing a notification_jobs row.
// Delivery happens outside this service.
type Outbox struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewOutbox(uow shared.UnitOfWork, clk clock.Clock) *Outbox {
	return &Outbox{uow: uow, clock: clk}
}

func (o *Outbox) Send(ctx context.Context, n commands.Notification) error {
	body := make(map[string]any, len(n.Payload)+1)
	for k, v := range n.Payload {
		body[k] = v
	}
	body["tenant_id"] = n.TenantID.String()

	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(err, "failed to encode notification payload")
	}

	runAt := o.clock.Now()
	return o.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Notifications().CreateJob(ctx, JobKind, n.Topic, payload, runAt)
	})
}

var _ commands.Notifier = (*Outbox)(nil)
