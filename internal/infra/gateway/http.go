package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/pkg/errs"
	"placement-engine/internal/usecase/commands"

	"golang.org/x/time/rate"
)

const (
	intentsPath     = "/v1/payment_intents"
	maxResponseBody = 1 << 20
)

var errUnexpectedResponse = errs.New("unexpected payment gateway response")

type HTTPSettings struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// HTTPGateway talks to a REST card processor. Each call is a single attempt;
// PaymentCoordinator owns retries.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

type intentBody struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	OffSession    bool              `json:"off_session,omitempty"`
	Confirm       bool              `json:"confirm,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewHTTPGateway(settings HTTPSettings) *HTTPGateway {
	limit := rate.Inf
	if settings.RatePerSecond > 0 {
		limit = rate.Limit(settings.RatePerSecond)
	}
	burst := settings.Burst
	if burst <= 0 {
		burst = 1
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(settings.BaseURL, "/"),
		apiKey:  settings.APIKey,
		client:  &http.Client{Timeout: settings.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req commands.IntentRequest) (*commands.GatewayIntent, error) {
	body := intentBody{
		Amount:   req.AmountMinor,
		Currency: strings.ToLower(req.Currency),
		Metadata: req.Metadata,
	}
	return g.do(ctx, http.MethodPost, intentsPath, req.IdempotencyKey, body)
}

func (g *HTTPGateway) RetrieveIntent(ctx context.Context, intentID string) (*commands.GatewayIntent, error) {
	return g.do(ctx, http.MethodGet, intentsPath+"/"+url.PathEscape(intentID), "", nil)
}

func (g *HTTPGateway) ChargeSaved(ctx context.Context, req commands.IntentRequest, paymentMethodRef string) (*commands.GatewayIntent, error) {
	body := intentBody{
		Amount:        req.AmountMinor,
		Currency:      strings.ToLower(req.Currency),
		Metadata:      req.Metadata,
		PaymentMethod: paymentMethodRef,
		OffSession:    true,
		Confirm:       true,
	}
	return g.do(ctx, http.MethodPost, intentsPath, req.IdempotencyKey, body)
}

func (g *HTTPGateway) do(ctx context.Context, method, path, idempotencyKey string, body any) (*commands.GatewayIntent, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "rate limiter wait"), commands.ErrGatewayUnavailable)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errs.Wrap(err, "failed to encode gateway request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, errs.Wrap(err, "failed to build gateway request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "gateway request failed"), commands.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errs.Mark(errs.Wrap(err, "failed to read gateway response"), commands.ErrGatewayUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, errs.Mark(fmt.Errorf("gateway returned %d", resp.StatusCode), commands.ErrGatewayUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errs.Mark(gatewayError(resp.StatusCode, raw), commands.ErrNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, errs.Mark(gatewayError(resp.StatusCode, raw), commands.ErrValidation)
	}

	var out intentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "failed to decode gateway response"), errUnexpectedResponse)
	}
	status, err := parseStatus(out.Status)
	if err != nil {
		slog.Warn("gateway returned unknown intent status", "intent_id", out.ID, "status", out.Status)
		return nil, errs.Mark(err, errUnexpectedResponse)
	}
	return &commands.GatewayIntent{ID: out.ID, Status: status, ClientSecret: out.ClientSecret}, nil
}

// parseStatus folds the processor's intermediate states into requires_action.
func parseStatus(s string) (payment.Status, error) {
	switch s {
	case "requires_payment_method", "requires_confirmation", "processing":
		return payment.StatusRequiresAction, nil
	default:
		return payment.NewStatus(s)
	}
}

func gatewayError(status int, raw []byte) error {
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
		return fmt.Errorf("gateway error %d (%s): %s", status, e.Error.Code, e.Error.Message)
	}
	return fmt.Errorf("gateway error %d", status)
}

var _ commands.PaymentGateway = (*HTTPGateway)(nil)
