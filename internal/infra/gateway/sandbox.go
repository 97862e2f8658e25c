package gateway

import (
	"context"
	"sync"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/commands"

	"github.com/google/uuid"
)

// DeclinedMethodRef is a saved payment method the sandbox always declines.
const DeclinedMethodRef = "pm_card_declined"

var errSandboxOutage = errs.New("sandbox gateway outage")

// Sandbox is an in-process gateway. Intents created for client checkout stay
// in requires_action until Settle is called.
type Sandbox struct {
	mu          sync.Mutex
	intents     map[string]*sandboxIntent
	byKey       map[string]string
	unavailable bool
	failNext    int
	calls       int
}

type sandboxIntent struct {
	id           string
	status       payment.Status
	clientSecret string
	amountMinor  int64
	currency     string
	metadata     map[string]string
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		intents: make(map[string]*sandboxIntent),
		byKey:   make(map[string]string),
	}
}

func (s *Sandbox) CreateIntent(_ context.Context, req commands.IntentRequest) (*commands.GatewayIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.callLocked(); err != nil {
		return nil, err
	}
	return s.createLocked(req, payment.StatusRequiresAction), nil
}

func (s *Sandbox) RetrieveIntent(_ context.Context, intentID string) (*commands.GatewayIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.callLocked(); err != nil {
		return nil, err
	}
	in, ok := s.intents[intentID]
	if !ok {
		return nil, errs.Mark(errs.New("no such intent: "+intentID), commands.ErrNotFound)
	}
	return in.view(), nil
}

func (s *Sandbox) ChargeSaved(_ context.Context, req commands.IntentRequest, paymentMethodRef string) (*commands.GatewayIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.callLocked(); err != nil {
		return nil, err
	}
	status := payment.StatusSucceeded
	if paymentMethodRef == DeclinedMethodRef {
		status = payment.StatusFailed
	}
	return s.createLocked(req, status), nil
}

// Settle moves an intent to its final status, as the card holder completing
// (or abandoning) the checkout would.
func (s *Sandbox) Settle(intentID string, status payment.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[intentID]
	if !ok {
		return errs.Mark(errs.New("no such intent: "+intentID), commands.ErrNotFound)
	}
	if !status.IsValid() {
		return payment.ErrInvalidStatus
	}
	in.status = status
	return nil
}

// Charged reports the amount an intent was opened for.
func (s *Sandbox) Charged(intentID string) (amountMinor int64, currency string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[intentID]
	if !ok {
		return 0, "", false
	}
	return in.amountMinor, in.currency, true
}

// Metadata returns the metadata the intent was created with.
func (s *Sandbox) Metadata(intentID string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.intents[intentID]; ok {
		return in.metadata
	}
	return nil
}

// SetUnavailable makes every call fail until it is switched back.
func (s *Sandbox) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// FailNext makes the next n calls fail with a transport error.
func (s *Sandbox) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Calls counts every request the sandbox received, failed ones included.
func (s *Sandbox) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Sandbox) callLocked() error {
	s.calls++
	if s.unavailable {
		return errs.Mark(errSandboxOutage, commands.ErrGatewayUnavailable)
	}
	if s.failNext > 0 {
		s.failNext--
		return errs.Mark(errSandboxOutage, commands.ErrGatewayUnavailable)
	}
	return nil
}

func (s *Sandbox) createLocked(req commands.IntentRequest, status payment.Status) *commands.GatewayIntent {
	if req.IdempotencyKey != "" {
		if id, ok := s.byKey[req.IdempotencyKey]; ok {
			return s.intents[id].view()
		}
	}
	id := "pi_sbx_" + uuid.NewString()
	in := &sandboxIntent{
		id:           id,
		status:       status,
		clientSecret: id + "_secret_" + uuid.NewString()[:8],
		amountMinor:  req.AmountMinor,
		currency:     req.Currency,
		metadata:     req.Metadata,
	}
	s.intents[id] = in
	if req.IdempotencyKey != "" {
		s.byKey[req.IdempotencyKey] = id
	}
	return in.view()
}

func (in *sandboxIntent) view() *commands.GatewayIntent {
	return &commands.GatewayIntent{ID: in.id, Status: in.status, ClientSecret: in.clientSecret}
}

var _ commands.PaymentGateway = (*Sandbox)(nil)
