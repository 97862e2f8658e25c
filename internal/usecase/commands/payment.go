package commands

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/infra"
	"placement-engine/internal/pkg/backoff"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type PaymentSettings struct {
	MaxAttempts   int
	BaseBackoff   time.Duration
	WebhookSecret string
}

// PaymentCoordinator owns every conversation with the gateway and the
// intent -> placement mapping. It never runs inside a store transaction.
type PaymentCoordinator struct {
	gateway       PaymentGateway
	uow           shared.UnitOfWork
	clock         clock.Clock
	maxAttempts   int
	baseBackoff   time.Duration
	webhookSecret []byte
}

func NewPaymentCoordinator(gateway PaymentGateway, uow shared.UnitOfWork, clk clock.Clock, settings PaymentSettings) *PaymentCoordinator {
	attempts := settings.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &PaymentCoordinator{
		gateway:       gateway,
		uow:           uow,
		clock:         clk,
		maxAttempts:   attempts,
		baseBackoff:   settings.BaseBackoff,
		webhookSecret: []byte(settings.WebhookSecret),
	}
}

func (c *PaymentCoordinator) CreateIntent(ctx context.Context, p *placement.Placement) (*payment.Intent, error) {
	req := c.intentRequest(p)
	gi, err := c.withRetry(ctx, "create_intent", func(ctx context.Context) (*GatewayIntent, error) {
		return c.gateway.CreateIntent(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return c.persist(ctx, p, gi)
}

// ChargeSaved charges a stored payment method off-session.
func (c *PaymentCoordinator) ChargeSaved(ctx context.Context, p *placement.Placement, paymentMethodRef string) (*payment.Intent, error) {
	req := c.intentRequest(p)
	gi, err := c.withRetry(ctx, "charge_saved", func(ctx context.Context) (*GatewayIntent, error) {
		return c.gateway.ChargeSaved(ctx, req, paymentMethodRef)
	})
	if err != nil {
		return nil, err
	}
	return c.persist(ctx, p, gi)
}

// Reconcile asks the gateway for the authoritative status of an intent and
// records it. Client confirmation and webhooks both land here.
func (c *PaymentCoordinator) Reconcile(ctx context.Context, intentID string) (*payment.Intent, error) {
	stored, err := c.uow.CommandReads().IntentByID(ctx, intentID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	gi, err := c.withRetry(ctx, "retrieve_intent", func(ctx context.Context) (*GatewayIntent, error) {
		return c.gateway.RetrieveIntent(ctx, intentID)
	})
	if err != nil {
		return nil, err
	}

	if gi.Status != stored.Status {
		now := c.clock.Now()
		err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
			return tx.Intents().UpdateStatus(ctx, intentID, gi.Status, now)
		})
		if err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperation)
		}
		stored.Status = gi.Status
		stored.UpdatedAt = now
	}
	return stored, nil
}

// VerifySignature checks an HMAC-SHA256 of the raw webhook body. The header
// may carry the bare hex digest or a "sha256=" prefix.
func (c *PaymentCoordinator) VerifySignature(body []byte, signature string) bool {
	if len(c.webhookSecret) == 0 || signature == "" {
		return false
	}
	given, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}

func (c *PaymentCoordinator) intentRequest(p *placement.Placement) IntentRequest {
	return IntentRequest{
		AmountMinor:    p.Price().MinorUnits(),
		Currency:       p.Price().Currency(),
		IdempotencyKey: uuid.NewString(),
		Metadata: map[string]string{
			"placement_id": p.ID().String(),
			"tenant_id":    p.TenantID().String(),
			"kind":         p.Kind().String(),
		},
	}
}

func (c *PaymentCoordinator) persist(ctx context.Context, p *placement.Placement, gi *GatewayIntent) (*payment.Intent, error) {
	intent, err := payment.NewIntent(gi.ID, p.ID(), p.Price().MinorUnits(), p.Price().Currency(), gi.Status, gi.ClientSecret, c.clock.Now())
	if err != nil {
		return nil, errs.Mark(err, ErrValidation)
	}
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Intents().Create(ctx, intent)
	})
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	return intent, nil
}

func (c *PaymentCoordinator) withRetry(ctx context.Context, op string, fn func(ctx context.Context) (*GatewayIntent, error)) (*GatewayIntent, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		gi, err := fn(ctx)
		if err == nil {
			return gi, nil
		}
		if !errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		lastErr = err
		if attempt == c.maxAttempts-1 {
			break
		}

		wait := backoff.Exponential(attempt, c.baseBackoff)
		slog.Warn("payment gateway unavailable, retrying",
			"op", op,
			"attempt", attempt+1,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error())
		if sleepErr := backoff.Sleep(ctx, wait); sleepErr != nil {
			return nil, errs.Mark(sleepErr, ErrGatewayUnavailable)
		}
	}

	slog.Error("payment gateway unavailable after retries", "op", op, "attempts", c.maxAttempts)
	return nil, errs.Mark(lastErr, ErrGatewayUnavailable)
}
