//go:build unit

package commands_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/user"
	"placement-engine/internal/infra/gateway"
	"placement-engine/internal/infra/memstore"
	"placement-engine/internal/infra/notify"
	"placement-engine/internal/metrics"
	"placement-engine/internal/pkg/clock"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/shared"
	"placement-engine/tests/common/authtest"
	"placement-engine/tests/common/builder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var startOfTest = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type allocationFixture struct {
	store   *memstore.Store
	gateway *gateway.Sandbox
	clock   *clock.MockClock
	svc     *commands.AllocationService
}

func newAllocationFixture(t *testing.T, pools ...commands.PoolDefinition) *allocationFixture {
	t.Helper()

	store := memstore.New()
	gw := gateway.NewSandbox()
	clk := clock.NewMockClock(startOfTest)
	services := &placement.Services{
		Clock: clk,
		PriceCalculator: placement.NewDailyRatePriceCalculator(map[placement.Kind]decimal.Decimal{
			placement.KindBanner:    decimal.RequireFromString("9.99"),
			placement.KindPromotion: decimal.RequireFromString("6.43"),
		}, "USD"),
		Policy: placement.Policy{AllowedDurations: []int{7, 14, 30}, Currency: "USD"},
	}
	outbox := notify.NewOutbox(store, clk)
	payments := commands.NewPaymentCoordinator(gw, store, clk, commands.PaymentSettings{
		MaxAttempts:   3,
		BaseBackoff:   time.Millisecond,
		WebhookSecret: "whsec_test",
	})
	svc := commands.NewAllocationService(
		store,
		payments,
		commands.NewWaitlistNotifier(store, outbox, clk),
		store,
		outbox,
		metrics.NewRecorder(),
		services,
		commands.AllocationSettings{StaleRetries: 3, IdempotencyTTL: time.Hour},
	)

	if len(pools) == 0 {
		pools = []commands.PoolDefinition{
			{Kind: "banner", MaxActive: 4},
			{Kind: "promotion", MaxActive: 12},
		}
	}
	require.NoError(t, svc.ProvisionPools(context.Background(), pools))

	return &allocationFixture{store: store, gateway: gw, clock: clk, svc: svc}
}

func (f *allocationFixture) grantCredits(t *testing.T, tenantID uuid.UUID, kind placement.Kind, amount int) {
	t.Helper()
	err := f.store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		return tx.Credits().Grant(ctx, tenantID, kind, amount)
	})
	require.NoError(t, err)
}

func (f *allocationFixture) placement(t *testing.T, id uuid.UUID) *placement.Placement {
	t.Helper()
	p, err := f.store.CommandReads().PlacementByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *allocationFixture) topics() []string {
	var topics []string
	for _, j := range f.store.Jobs() {
		topics = append(topics, j.Topic)
	}
	return topics
}

// purchaseActive buys a banner with a credit so it is active right away.
func (f *allocationFixture) purchaseActive(t *testing.T, tenant user.Principal) uuid.UUID {
	t.Helper()
	f.grantCredits(t, tenant.TenantID, placement.KindBanner, 1)
	in := builder.NewPlacementBuilder().BuildPurchaseInput()
	in.UseCredit = true
	res, err := f.svc.Purchase(context.Background(), tenant, in, nil)
	require.NoError(t, err)
	require.Equal(t, placement.StateActive, res.State)
	return res.PlacementID
}

type AllocationServiceTestSuite struct {
	suite.Suite
	ctx context.Context
	f   *allocationFixture
}

func (s *AllocationServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newAllocationFixture(s.T())
}

func (s *AllocationServiceTestSuite) SetupSubTest() {
	s.f = newAllocationFixture(s.T())
}

func TestAllocationServiceSuite(t *testing.T) {
	suite.Run(t, new(AllocationServiceTestSuite))
}

// ================================================================================
// Purchase
// ================================================================================

func (s *AllocationServiceTestSuite) TestPurchase() {
	s.Run("success: reserves a slot and opens checkout at the quoted price", func() {
		tenant := authtest.NewTenant()

		res, err := s.f.svc.Purchase(s.ctx, tenant, builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)

		s.False(res.LimitReached)
		s.Equal(placement.StatePendingPayment, res.State)
		s.Require().NotNil(res.Payment)
		s.Equal(payment.StatusRequiresAction, res.Payment.Status)
		s.Equal(payment.OutcomePending, res.Outcome)

		amount, currency, ok := s.f.gateway.Charged(res.Payment.IntentID)
		s.Require().True(ok)
		s.Equal(int64(6993), amount)
		s.Equal("USD", currency)
		s.Equal(res.PlacementID.String(), s.f.gateway.Metadata(res.Payment.IntentID)["placement_id"])

		p := s.f.placement(s.T(), res.PlacementID)
		s.True(p.ReservationHeld())
		s.True(p.HasPaymentRef(res.Payment.IntentID))
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("concurrency: 20 purchases against 4 slots reserve exactly 4", func() {
		const buyers = 20
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			won     int
			limited int
			failed  []error
		)
		for range buyers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					failed = append(failed, err)
				case res.LimitReached:
					limited++
				default:
					won++
				}
			}()
		}
		wg.Wait()

		s.Empty(failed)
		s.Equal(4, won)
		s.Equal(16, limited)
		s.Equal(4, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("limit reached: join_waitlist queues the tenant once", func() {
		fill := newAllocationFixture(s.T(), commands.PoolDefinition{Kind: "banner", MaxActive: 0})
		tenant := authtest.NewTenant()

		in := builder.NewPlacementBuilder().BuildPurchaseInput()
		in.JoinWaitlist = true
		res, err := fill.svc.Purchase(s.ctx, tenant, in, nil)
		s.Require().NoError(err)
		s.True(res.LimitReached)
		s.True(res.Waitlisted)
		s.Equal(uuid.Nil, res.PlacementID)

		again, err := fill.svc.RequestNotification(s.ctx, tenant, "banner")
		s.Require().NoError(err)
		s.False(again.Created, "tenant already waiting")
	})

	s.Run("validation: unknown kind, disallowed duration and missing owner", func() {
		cases := []struct {
			name   string
			mutate func(*commands.PurchaseInput)
		}{
			{name: "kind", mutate: func(in *commands.PurchaseInput) { in.Kind = "billboard" }},
			{name: "scope", mutate: func(in *commands.PurchaseInput) { in.Scope = "planet" }},
			{name: "duration", mutate: func(in *commands.PurchaseInput) { in.DurationDays = 10 }},
			{name: "owner", mutate: func(in *commands.PurchaseInput) { in.Scope = "vehicle"; in.OwnerID = nil }},
		}
		for _, tc := range cases {
			in := builder.NewPlacementBuilder().BuildPurchaseInput()
			tc.mutate(&in)
			_, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), in, nil)
			s.ErrorIs(err, commands.ErrValidation, tc.name)
		}
		s.Equal(0, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("no pool: kind without a provisioned pool", func() {
		bannerOnly := newAllocationFixture(s.T(), commands.PoolDefinition{Kind: "banner", MaxActive: 4})
		in := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.Kind = placement.KindPromotion
		}).BuildPurchaseInput()

		_, err := bannerOnly.svc.Purchase(s.ctx, authtest.NewTenant(), in, nil)
		s.ErrorIs(err, commands.ErrNoPool)
	})

	s.Run("ownership: vehicle scope requires the tenant to own the vehicle", func() {
		tenant := authtest.NewTenant()
		vehicle := uuid.New()
		in := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.Scope = placement.ScopeVehicle
			b.OwnerID = &vehicle
		}).BuildPurchaseInput()

		_, err := s.f.svc.Purchase(s.ctx, tenant, in, nil)
		s.ErrorIs(err, commands.ErrUnauthorized)

		s.f.store.AddOwner(tenant.TenantID, placement.ScopeVehicle, vehicle)
		res, err := s.f.svc.Purchase(s.ctx, tenant, in, nil)
		s.Require().NoError(err)
		s.Equal(placement.ScopeGlobal, s.f.placement(s.T(), res.PlacementID).PoolScope(), "falls back to the kind-wide pool")
	})

	s.Run("scoped pool: a dedicated pool is preferred over the global one", func() {
		f := newAllocationFixture(s.T(),
			commands.PoolDefinition{Kind: "banner", MaxActive: 4},
			commands.PoolDefinition{Kind: "banner", Scope: "dealer", MaxActive: 1},
		)
		in := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.Scope = placement.ScopeDealer
		}).BuildPurchaseInput()

		first, err := f.svc.Purchase(s.ctx, authtest.NewTenant(), in, nil)
		s.Require().NoError(err)
		s.False(first.LimitReached)
		second, err := f.svc.Purchase(s.ctx, authtest.NewTenant(), in, nil)
		s.Require().NoError(err)
		s.True(second.LimitReached)

		s.Equal(1, f.store.ActiveCount(placement.KindBanner, placement.ScopeDealer))
		s.Equal(0, f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("credit: activates immediately and is consumed once", func() {
		tenant := authtest.NewTenant()
		s.f.grantCredits(s.T(), tenant.TenantID, placement.KindBanner, 1)
		in := builder.NewPlacementBuilder().BuildPurchaseInput()
		in.UseCredit = true

		res, err := s.f.svc.Purchase(s.ctx, tenant, in, nil)
		s.Require().NoError(err)
		s.Equal(placement.StateActive, res.State)
		s.Nil(res.Payment)
		s.Equal(0, s.f.gateway.Calls())

		p := s.f.placement(s.T(), res.PlacementID)
		s.Require().NotNil(p.ExpiresAt())
		s.Equal(startOfTest.Add(7*24*time.Hour), *p.ExpiresAt())

		_, err = s.f.svc.Purchase(s.ctx, tenant, in, nil)
		s.ErrorIs(err, commands.ErrNoCredit)
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal), "failed debit rolls the reservation back")
	})

	s.Run("gateway unavailable: placement keeps its hold in pending_payment", func() {
		s.f.gateway.SetUnavailable(true)

		_, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildPurchaseInput(), nil)

		var unavailable *commands.CheckoutUnavailableError
		s.Require().ErrorAs(err, &unavailable)
		s.ErrorIs(err, commands.ErrGatewayUnavailable)
		s.Equal(3, s.f.gateway.Calls(), "retried up to the attempt limit")
		s.Equal(placement.StatePendingPayment, s.f.placement(s.T(), unavailable.PlacementID).State())
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("gateway flake: a transient failure is retried", func() {
		s.f.gateway.FailNext(1)

		res, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)
		s.NotNil(res.Payment)
		s.Equal(2, s.f.gateway.Calls())
	})

	s.Run("saved method: succeeded charge activates, declined charge releases", func() {
		ok := "pm_card_visa"
		in := builder.NewPlacementBuilder().BuildPurchaseInput()
		in.PaymentMethodRef = &ok
		res, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), in, nil)
		s.Require().NoError(err)
		s.Equal(placement.StateActive, res.State)
		s.Equal(payment.OutcomeSucceeded, res.Outcome)

		declined := gateway.DeclinedMethodRef
		in.PaymentMethodRef = &declined
		res, err = s.f.svc.Purchase(s.ctx, authtest.NewTenant(), in, nil)
		s.Require().NoError(err)
		s.Equal(placement.StateCancelled, res.State)
		s.Equal(payment.OutcomeFailed, res.Outcome)

		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})
}

func (s *AllocationServiceTestSuite) TestPurchaseIdempotency() {
	s.Run("replay: same key and body returns the first placement", func() {
		tenant := authtest.NewTenant()
		key := uuid.New()
		in := builder.NewPlacementBuilder().BuildPurchaseInput()

		first, err := s.f.svc.Purchase(s.ctx, tenant, in, &key)
		s.Require().NoError(err)
		second, err := s.f.svc.Purchase(s.ctx, tenant, in, &key)
		s.Require().NoError(err)

		s.True(second.Replayed)
		s.Equal(first.PlacementID, second.PlacementID)
		s.Require().NotNil(second.Payment)
		s.Equal(first.Payment.IntentID, second.Payment.IntentID)
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("reuse: same key with a different body is rejected", func() {
		tenant := authtest.NewTenant()
		key := uuid.New()
		in := builder.NewPlacementBuilder().BuildPurchaseInput()
		_, err := s.f.svc.Purchase(s.ctx, tenant, in, &key)
		s.Require().NoError(err)

		in.DurationDays = 14
		_, err = s.f.svc.Purchase(s.ctx, tenant, in, &key)
		s.ErrorIs(err, commands.ErrIdempotencyKeyReuse)
	})

	s.Run("limit reached: the key is freed so the request can be retried", func() {
		f := newAllocationFixture(s.T(), commands.PoolDefinition{Kind: "banner", MaxActive: 0})
		tenant := authtest.NewTenant()
		key := uuid.New()
		in := builder.NewPlacementBuilder().BuildPurchaseInput()

		res, err := f.svc.Purchase(s.ctx, tenant, in, &key)
		s.Require().NoError(err)
		s.True(res.LimitReached)

		s.Require().NoError(f.svc.ProvisionPools(s.ctx, []commands.PoolDefinition{{Kind: "banner", MaxActive: 1}}))
		res, err = f.svc.Purchase(s.ctx, tenant, in, &key)
		s.Require().NoError(err)
		s.False(res.LimitReached)
		s.False(res.Replayed)
	})

	s.Run("expiry: keys past their TTL are purged", func() {
		tenant := authtest.NewTenant()
		key := uuid.New()
		_, err := s.f.svc.Purchase(s.ctx, tenant, builder.NewPlacementBuilder().BuildPurchaseInput(), &key)
		s.Require().NoError(err)

		purged, err := s.f.svc.PurgeIdempotencyKeys(s.ctx, s.f.clock.Now())
		s.Require().NoError(err)
		s.Equal(int64(0), purged)

		purged, err = s.f.svc.PurgeIdempotencyKeys(s.ctx, s.f.clock.Now().Add(2*time.Hour))
		s.Require().NoError(err)
		s.Equal(int64(1), purged)
	})
}

// ================================================================================
// Review flow
// ================================================================================

func (s *AllocationServiceTestSuite) TestReviewFlow() {
	admin := authtest.NewAdmin()

	s.Run("submit: pending_review holds no capacity", func() {
		res, err := s.f.svc.SubmitForReview(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildSubmissionInput())
		s.Require().NoError(err)
		s.Equal(placement.StatePendingReview, res.State)
		s.Equal(0, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("submit: content is required", func() {
		in := builder.NewPlacementBuilder().BuildSubmissionInput()
		in.ContentURL = "  "
		_, err := s.f.svc.SubmitForReview(s.ctx, authtest.NewTenant(), in)
		s.ErrorIs(err, commands.ErrValidation)
	})

	s.Run("approve: reserves, activates and notifies", func() {
		sub, err := s.f.svc.SubmitForReview(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildSubmissionInput())
		s.Require().NoError(err)

		res, err := s.f.svc.Approve(s.ctx, admin, sub.PlacementID)
		s.Require().NoError(err)
		s.False(res.LimitReached)
		s.Equal(placement.StateActive, res.State)
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
		s.Contains(s.f.topics(), commands.TopicPlacementApproved)

		p := s.f.placement(s.T(), sub.PlacementID)
		s.NotNil(p.ApprovedAt())

		again, err := s.f.svc.Approve(s.ctx, admin, sub.PlacementID)
		s.Require().NoError(err)
		s.Equal(placement.StateActive, again.State)
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal), "approval is idempotent")
	})

	s.Run("approve: full pool leaves the submission pending", func() {
		f := newAllocationFixture(s.T(), commands.PoolDefinition{Kind: "banner", MaxActive: 0})
		sub, err := f.svc.SubmitForReview(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildSubmissionInput())
		s.Require().NoError(err)

		res, err := f.svc.Approve(s.ctx, admin, sub.PlacementID)
		s.Require().NoError(err)
		s.True(res.LimitReached)
		s.Equal(placement.StatePendingReview, f.placement(s.T(), sub.PlacementID).State())
	})

	s.Run("reject: releases an active placement and notifies", func() {
		sub, err := s.f.svc.SubmitForReview(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildSubmissionInput())
		s.Require().NoError(err)
		_, err = s.f.svc.Approve(s.ctx, admin, sub.PlacementID)
		s.Require().NoError(err)

		_, err = s.f.svc.Reject(s.ctx, admin, sub.PlacementID, "")
		s.ErrorIs(err, commands.ErrValidation)

		res, err := s.f.svc.Reject(s.ctx, admin, sub.PlacementID, "misleading claims")
		s.Require().NoError(err)
		s.Equal(placement.StateRejected, res.State)
		s.Equal(0, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))

		_, err = s.f.svc.Reject(s.ctx, admin, sub.PlacementID, "misleading claims")
		s.Require().NoError(err)
		s.Equal(0, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal), "second rejection releases nothing")

		rejections := 0
		for _, topic := range s.f.topics() {
			if topic == commands.TopicPlacementRejected {
				rejections++
			}
		}
		s.Equal(1, rejections)
	})

	s.Run("authorization: tenants cannot moderate", func() {
		_, err := s.f.svc.Approve(s.ctx, authtest.NewTenant(), uuid.New())
		s.ErrorIs(err, commands.ErrUnauthorized)
		_, err = s.f.svc.Reject(s.ctx, authtest.NewTenant(), uuid.New(), "no")
		s.ErrorIs(err, commands.ErrUnauthorized)
		_, err = s.f.svc.RecordEngagement(s.ctx, authtest.NewTenant(), uuid.New(), 1, 1)
		s.ErrorIs(err, commands.ErrUnauthorized)
	})

	s.Run("not found: unknown placement", func() {
		_, err := s.f.svc.Approve(s.ctx, admin, uuid.New())
		s.ErrorIs(err, commands.ErrNotFound)
	})
}

// ================================================================================
// Admin assignment
// ================================================================================

func (s *AllocationServiceTestSuite) TestAdminAssign() {
	admin := authtest.NewAdmin()

	s.Run("success: tenant pays the assigned price and gets the full duration", func() {
		tenant := authtest.NewTenant()
		in := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.TenantID = tenant.TenantID
		}).BuildAssignInput("44.99")

		assigned, err := s.f.svc.AdminAssign(s.ctx, admin, in)
		s.Require().NoError(err)
		s.Equal(placement.StateAssigned, assigned.State)
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
		s.Contains(s.f.topics(), commands.TopicPlacementAssigned)

		var payload map[string]any
		for _, j := range s.f.store.Jobs() {
			if j.Topic == commands.TopicPlacementAssigned {
				s.Require().NoError(json.Unmarshal(j.Payload, &payload))
			}
		}
		s.Equal("44.99", payload["price"])
		s.Equal(tenant.TenantID.String(), payload["tenant_id"])

		s.f.clock.Add(3 * time.Hour)
		checkout, err := s.f.svc.PayAssigned(s.ctx, tenant, assigned.PlacementID, commands.PayInput{})
		s.Require().NoError(err)
		amount, _, ok := s.f.gateway.Charged(checkout.Payment.IntentID)
		s.Require().True(ok)
		s.Equal(int64(4499), amount)

		s.Require().NoError(s.f.gateway.Settle(checkout.Payment.IntentID, payment.StatusSucceeded))
		confirmed, err := s.f.svc.ConfirmPayment(s.ctx, tenant, assigned.PlacementID, checkout.Payment.IntentID)
		s.Require().NoError(err)
		s.Equal(placement.StateActive, confirmed.State)

		p := s.f.placement(s.T(), assigned.PlacementID)
		s.Require().NotNil(p.ActivatedAt())
		s.Equal(s.f.clock.Now(), *p.ActivatedAt())
		s.Equal(p.ActivatedAt().Add(7*24*time.Hour), *p.ExpiresAt())
	})

	s.Run("free assignment activates without a gateway call", func() {
		tenant := authtest.NewTenant()
		in := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.TenantID = tenant.TenantID
		}).BuildAssignInput("0")

		assigned, err := s.f.svc.AdminAssign(s.ctx, admin, in)
		s.Require().NoError(err)
		res, err := s.f.svc.PayAssigned(s.ctx, tenant, assigned.PlacementID, commands.PayInput{})
		s.Require().NoError(err)
		s.Equal(placement.StateActive, res.State)
		s.Equal(0, s.f.gateway.Calls())
	})

	s.Run("limit reached is reported, not raised", func() {
		f := newAllocationFixture(s.T(), commands.PoolDefinition{Kind: "banner", MaxActive: 0})
		in := builder.NewPlacementBuilder().BuildAssignInput("44.99")

		res, err := f.svc.AdminAssign(s.ctx, admin, in)
		s.Require().NoError(err)
		s.True(res.LimitReached)
	})

	s.Run("validation: bad price and tenant caller", func() {
		in := builder.NewPlacementBuilder().BuildAssignInput("forty")
		_, err := s.f.svc.AdminAssign(s.ctx, admin, in)
		s.ErrorIs(err, commands.ErrValidation)

		in = builder.NewPlacementBuilder().BuildAssignInput("-1")
		_, err = s.f.svc.AdminAssign(s.ctx, admin, in)
		s.ErrorIs(err, commands.ErrValidation)

		in = builder.NewPlacementBuilder().BuildAssignInput("44.99")
		_, err = s.f.svc.AdminAssign(s.ctx, authtest.NewTenant(), in)
		s.ErrorIs(err, commands.ErrUnauthorized)
	})

	s.Run("pay: another tenant sees not found, wrong state is rejected", func() {
		tenant := authtest.NewTenant()
		in := builder.NewPlacementBuilder().With(func(b *builder.PlacementBuilder) {
			b.TenantID = tenant.TenantID
		}).BuildAssignInput("44.99")
		assigned, err := s.f.svc.AdminAssign(s.ctx, admin, in)
		s.Require().NoError(err)

		_, err = s.f.svc.PayAssigned(s.ctx, authtest.NewTenant(), assigned.PlacementID, commands.PayInput{})
		s.ErrorIs(err, commands.ErrNotFound)

		active := s.f.purchaseActive(s.T(), tenant)
		_, err = s.f.svc.PayAssigned(s.ctx, tenant, active, commands.PayInput{})
		s.ErrorIs(err, commands.ErrInvalidState)
	})
}

// ================================================================================
// Lifecycle
// ================================================================================

func (s *AllocationServiceTestSuite) TestExpire() {
	s.Run("concurrent expiry releases exactly once", func() {
		tenant := authtest.NewTenant()
		id := s.f.purchaseActive(s.T(), tenant)
		s.f.purchaseActive(s.T(), authtest.NewTenant())

		expired, err := s.f.svc.Expire(s.ctx, id)
		s.Require().NoError(err)
		s.False(expired, "not yet due")

		s.f.clock.Add(7 * 24 * time.Hour)
		ids, err := s.f.svc.ExpiredIDs(s.ctx, s.f.clock.Now(), 10)
		s.Require().NoError(err)
		s.Len(ids, 2)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, expireErr := s.f.svc.Expire(s.ctx, id)
				assert.NoError(s.T(), expireErr)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		s.Equal(1, wins)
		s.Equal(placement.StateExpired, s.f.placement(s.T(), id).State())
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})
}

func (s *AllocationServiceTestSuite) TestCancelAbandoned() {
	s.Run("checkout past the grace period is cancelled", func() {
		res, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)

		cutoff := s.f.clock.Now().Add(-30 * time.Minute)
		cancelled, err := s.f.svc.CancelAbandoned(s.ctx, res.PlacementID, cutoff)
		s.Require().NoError(err)
		s.False(cancelled, "still inside the grace period")

		s.f.clock.Add(31 * time.Minute)
		cutoff = s.f.clock.Now().Add(-30 * time.Minute)
		ids, err := s.f.svc.AbandonedIDs(s.ctx, placement.StatePendingPayment, cutoff, 10)
		s.Require().NoError(err)
		s.Equal([]uuid.UUID{res.PlacementID}, ids)

		cancelled, err = s.f.svc.CancelAbandoned(s.ctx, res.PlacementID, cutoff)
		s.Require().NoError(err)
		s.True(cancelled)
		s.Equal(placement.StateCancelled, s.f.placement(s.T(), res.PlacementID).State())
		s.Equal(0, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})

	s.Run("checkout that was actually paid is activated instead", func() {
		res, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)
		s.Require().NoError(s.f.gateway.Settle(res.Payment.IntentID, payment.StatusSucceeded))

		s.f.clock.Add(time.Hour)
		cancelled, err := s.f.svc.CancelAbandoned(s.ctx, res.PlacementID, s.f.clock.Now().Add(-30*time.Minute))
		s.Require().NoError(err)
		s.False(cancelled)
		s.Equal(placement.StateActive, s.f.placement(s.T(), res.PlacementID).State())
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))
	})
}

// ================================================================================
// Waitlist
// ================================================================================

func (s *AllocationServiceTestSuite) TestWaitlistNotification() {
	s.Run("release notifies waiting tenants once", func() {
		f := newAllocationFixture(s.T(), commands.PoolDefinition{Kind: "banner", MaxActive: 1})
		holder := authtest.NewTenant()
		waiting := authtest.NewTenant()

		held, err := f.svc.Purchase(s.ctx, holder, builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)

		in := builder.NewPlacementBuilder().BuildPurchaseInput()
		in.JoinWaitlist = true
		res, err := f.svc.Purchase(s.ctx, waiting, in, nil)
		s.Require().NoError(err)
		s.True(res.Waitlisted)
		s.NotContains(f.topics(), commands.TopicCapacityAvailable)

		s.Require().NoError(f.gateway.Settle(held.Payment.IntentID, payment.StatusFailed))
		_, err = f.svc.ConfirmPayment(s.ctx, holder, held.PlacementID, held.Payment.IntentID)
		s.Require().NoError(err)

		var notified []string
		for _, j := range f.store.Jobs() {
			if j.Topic != commands.TopicCapacityAvailable {
				continue
			}
			var payload map[string]any
			s.Require().NoError(json.Unmarshal(j.Payload, &payload))
			notified = append(notified, payload["tenant_id"].(string))
		}
		s.Equal([]string{waiting.TenantID.String()}, notified)

		// the entry is consumed; a later release finds nobody waiting
		again, err := f.svc.Purchase(s.ctx, waiting, builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)
		s.Require().NoError(f.gateway.Settle(again.Payment.IntentID, payment.StatusFailed))
		_, err = f.svc.ConfirmPayment(s.ctx, waiting, again.PlacementID, again.Payment.IntentID)
		s.Require().NoError(err)

		count := 0
		for _, topic := range f.topics() {
			if topic == commands.TopicCapacityAvailable {
				count++
			}
		}
		s.Equal(1, count)
	})

	s.Run("invalid kind is a validation error", func() {
		_, err := s.f.svc.RequestNotification(s.ctx, authtest.NewTenant(), "billboard")
		s.ErrorIs(err, commands.ErrValidation)
	})
}

// ================================================================================
// Engagement and provisioning
// ================================================================================

func (s *AllocationServiceTestSuite) TestRecordEngagement() {
	admin := authtest.NewAdmin()

	s.Run("deltas accumulate", func() {
		id := s.f.purchaseActive(s.T(), authtest.NewTenant())
		_, err := s.f.svc.RecordEngagement(s.ctx, admin, id, 10, 2)
		s.Require().NoError(err)
		_, err = s.f.svc.RecordEngagement(s.ctx, admin, id, 5, 1)
		s.Require().NoError(err)

		s.Equal(placement.Metrics{Views: 15, Clicks: 3}, s.f.placement(s.T(), id).Metrics())
	})

	s.Run("negative deltas are rejected", func() {
		id := s.f.purchaseActive(s.T(), authtest.NewTenant())
		_, err := s.f.svc.RecordEngagement(s.ctx, admin, id, -1, 0)
		s.ErrorIs(err, commands.ErrValidation)
	})
}

func (s *AllocationServiceTestSuite) TestProvisionPools() {
	s.Run("limit changes keep the active count", func() {
		s.f.purchaseActive(s.T(), authtest.NewTenant())

		err := s.f.svc.ProvisionPools(s.ctx, []commands.PoolDefinition{{Kind: "banner", MaxActive: 1}})
		s.Require().NoError(err)
		s.Equal(1, s.f.store.ActiveCount(placement.KindBanner, placement.ScopeGlobal))

		res, err := s.f.svc.Purchase(s.ctx, authtest.NewTenant(), builder.NewPlacementBuilder().BuildPurchaseInput(), nil)
		s.Require().NoError(err)
		s.True(res.LimitReached)
	})

	s.Run("invalid definitions are rejected", func() {
		for _, def := range []commands.PoolDefinition{
			{Kind: "billboard", MaxActive: 1},
			{Kind: "banner", Scope: "planet", MaxActive: 1},
			{Kind: "banner", MaxActive: -1},
		} {
			err := s.f.svc.ProvisionPools(s.ctx, []commands.PoolDefinition{def})
			s.True(errors.Is(err, commands.ErrValidation), "%+v", def)
		}
	})
}
