//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"
	"placement-engine/internal/domain/user"
	"placement-engine/internal/handler/api"
	resdto "placement-engine/internal/handler/dto/response"
	"placement-engine/internal/handler/httperr"
	"placement-engine/internal/usecase/commands"
	"placement-engine/internal/usecase/queries"
	"placement-engine/tests/common/authtest"
	"placement-engine/tests/common/builder"
	"placement-engine/tests/common/httptest"
	"placement-engine/tests/common/testutil"
	commandsmock "placement-engine/tests/mock/commands"
	queriesmock "placement-engine/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PlacementHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockAllocationCommands
	mockQueries  *queriesmock.MockPlacementQueries
	handler      *api.PlacementHandler
	tenant       user.Principal
}

func (s *PlacementHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockAllocationCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockPlacementQueries(s.mockCtrl)
	s.handler = api.NewPlacementHandler(s.mockCommands, s.mockQueries)
	s.tenant = authtest.NewTenant()

	authMiddleware := authtest.FakeAuth(s.tenant)

	s.router.POST("/placements", authMiddleware, s.handler.Purchase)
	s.router.GET("/placements", authMiddleware, s.handler.List)
	s.router.POST("/placements/submissions", authMiddleware, s.handler.Submit)
	s.router.GET("/placements/:id", authMiddleware, s.handler.Get)
	s.router.POST("/placements/:id/pay", authMiddleware, s.handler.Pay)
	s.router.POST("/placements/:id/confirm", authMiddleware, s.handler.Confirm)
	s.router.POST("/waitlist", authMiddleware, s.handler.JoinWaitlist)
	s.router.GET("/capacity", s.handler.Availability)
}

func (s *PlacementHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestPlacementHandlerSuite(t *testing.T) {
	suite.Run(t, new(PlacementHandlerTestSuite))
}

type testCasePlacement struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

// ================================================================================
// TestPurchase
// ================================================================================

func (s *PlacementHandlerTestSuite) TestPurchase() {
	url := "/placements"
	b := builder.NewPlacementBuilder()
	reqBody := b.BuildPurchaseRequestDTO()
	checkout := b.BuildCheckoutResult("pi_123")

	validation := []testCasePlacement{
		{name: "missing field: kind (required)", mutate: testutil.Field("kind", nil), expectCode: http.StatusBadRequest},
		{name: "unknown kind", mutate: testutil.Field("kind", "billboard"), expectCode: http.StatusBadRequest},
		{name: "unknown scope", mutate: testutil.Field("scope", "planet"), expectCode: http.StatusBadRequest},
		{name: "missing field: duration_days (required)", mutate: testutil.Field("duration_days", nil), expectCode: http.StatusBadRequest},
		{name: "content_url is not a url", mutate: testutil.Field("content_url", "not a url"), expectCode: http.StatusBadRequest},
		{name: "content_url too long", mutate: testutil.Field("content_url", "https://cdn.example.com/"+strings.Repeat("a", 2048)), expectCode: http.StatusBadRequest},
		{name: "scope dealer OK", mutate: testutil.Field("scope", "dealer"), expectCode: http.StatusCreated},
		{name: "kind promotion OK", mutate: testutil.Field("kind", "promotion"), expectCode: http.StatusCreated},
	}

	s.Run("success: returns 201 with the payment session", func() {
		s.mockCommands.EXPECT().Purchase(gomock.Any(), s.tenant, reqBody.ToInput(), (*uuid.UUID)(nil)).
			Return(checkout, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body resdto.CheckoutResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		expected := resdto.CheckoutResponse{
			PlacementID: &b.ID,
			State:       "pending_payment",
			Outcome:     "pending",
			Payment: &resdto.PaymentSessionResponse{
				IntentID:     "pi_123",
				ClientSecret: "pi_123_secret",
				Status:       "requires_action",
			},
		}
		if diff := cmp.Diff(expected, body); diff != "" {
			s.T().Errorf("response mismatch (-want +got):\n%s", diff)
		}
		httptest.AssertHeaders(s.T(), rec, map[string]string{"Location": "/api/placements/" + b.ID.String()})
	})

	s.Run("validation", func() {
		for _, tc := range validation {
			s.Run(tc.name, func() {
				requestMap := testutil.DtoMap(s.T(), reqBody, tc.mutate)
				if tc.expectCode == http.StatusCreated {
					s.mockCommands.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
						Return(checkout, nil).Times(1)
				}
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "bearer-token")
				s.Equal(tc.expectCode, rec.Code, rec.Body.String())
			})
		}
	})

	s.Run("limit reached: 200 without a placement", func() {
		s.mockCommands.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&commands.CheckoutResult{LimitReached: true, Waitlisted: true}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body resdto.CheckoutResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.True(body.LimitReached)
		s.True(body.Waitlisted)
		s.Nil(body.PlacementID)
	})

	s.Run("idempotency key: forwarded and replay flagged", func() {
		key := uuid.New()
		replayed := *checkout
		replayed.Replayed = true
		s.mockCommands.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any(), &key).Return(&replayed, nil)

		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token",
			map[string]string{"Idempotency-Key": key.String()})

		s.Equal(http.StatusCreated, rec.Code)
		s.Equal("true", rec.Header().Get("Idempotent-Replayed"))
	})

	s.Run("idempotency key: malformed", func() {
		rec := httptest.PerformRequestWithHeaders(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token",
			map[string]string{"Idempotency-Key": "not-a-uuid"})
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, httperr.CodeValidation)
	})

	s.Run("declined saved method: 402 with the cancelled placement", func() {
		declined := *checkout
		declined.State = placement.StateCancelled
		declined.Outcome = payment.OutcomeFailed
		s.mockCommands.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&declined, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusPaymentRequired, httperr.CodePaymentFailed)
	})

	s.Run("command errors map to stable codes", func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{commands.ErrValidation, http.StatusBadRequest, httperr.CodeValidation},
			{commands.ErrUnauthorized, http.StatusForbidden, httperr.CodeUnauthorized},
			{commands.ErrNoCredit, http.StatusUnprocessableEntity, httperr.CodeNoCredit},
			{commands.ErrNoPool, http.StatusUnprocessableEntity, httperr.CodeNoPool},
			{commands.ErrIdempotencyKeyReuse, http.StatusUnprocessableEntity, httperr.CodeIdempotencyReuse},
			{commands.ErrIdempotencyInProgress, http.StatusConflict, httperr.CodeInProgress},
			{commands.ErrConflict, http.StatusConflict, httperr.CodeConflict},
			{commands.ErrDatabaseOperation, http.StatusInternalServerError, httperr.CodeInternal},
		}
		for _, tc := range cases {
			s.mockCommands.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, tc.err)
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
			httptest.AssertErrorCode(s.T(), rec, tc.status, tc.code)
		}
	})

	s.Run("gateway unavailable: 503 names the held placement", func() {
		id := uuid.New()
		s.mockCommands.EXPECT().Purchase(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &commands.CheckoutUnavailableError{PlacementID: id, Err: commands.ErrGatewayUnavailable})

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		httptest.AssertErrorCode(s.T(), rec, http.StatusServiceUnavailable, httperr.CodeGatewayUnavailable)
		s.Contains(rec.Body.String(), id.String())
	})

	s.Run("unauthenticated", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

// ================================================================================
// TestConfirm
// ================================================================================

func (s *PlacementHandlerTestSuite) TestConfirm() {
	id := uuid.New()
	url := "/placements/" + id.String() + "/confirm"
	reqBody := map[string]any{"intent_id": "pi_123"}

	cases := []struct {
		name    string
		outcome payment.Outcome
		state   placement.State
		status  int
	}{
		{name: "succeeded", outcome: payment.OutcomeSucceeded, state: placement.StateActive, status: http.StatusOK},
		{name: "pending", outcome: payment.OutcomePending, state: placement.StatePendingPayment, status: http.StatusAccepted},
		{name: "failed", outcome: payment.OutcomeFailed, state: placement.StateCancelled, status: http.StatusPaymentRequired},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.mockCommands.EXPECT().ConfirmPayment(gomock.Any(), s.tenant, id, "pi_123").
				Return(&commands.ConfirmResult{PlacementID: id, State: tc.state, Outcome: tc.outcome}, nil)

			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

			s.Equal(tc.status, rec.Code)
			s.Contains(rec.Body.String(), tc.state.String())
		})
	}

	s.Run("missing intent_id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{}, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusBadRequest, httperr.CodeValidation)
	})

	s.Run("invalid id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/placements/abc/confirm", reqBody, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("not found", func() {
		s.mockCommands.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, commands.ErrNotFound)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusNotFound, httperr.CodeNotFound)
	})
}

// ================================================================================
// TestPay / TestSubmit / TestJoinWaitlist
// ================================================================================

func (s *PlacementHandlerTestSuite) TestPay() {
	b := builder.NewPlacementBuilder()
	url := "/placements/" + b.ID.String() + "/pay"

	s.Run("empty body starts a client checkout", func() {
		s.mockCommands.EXPECT().PayAssigned(gomock.Any(), s.tenant, b.ID, commands.PayInput{}).
			Return(b.BuildCheckoutResult("pi_9"), nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("saved method is forwarded", func() {
		ref := "pm_card_visa"
		s.mockCommands.EXPECT().PayAssigned(gomock.Any(), s.tenant, b.ID, commands.PayInput{PaymentMethodRef: &ref}).
			Return(b.BuildCheckoutResult("pi_10"), nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, map[string]any{"payment_method_ref": ref}, "bearer-token")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("wrong state", func() {
		s.mockCommands.EXPECT().PayAssigned(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.Join(placement.ErrInvalidTransition, commands.ErrInvalidState))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusConflict, httperr.CodeInvalidState)
	})
}

func (s *PlacementHandlerTestSuite) TestSubmit() {
	reqBody := builder.NewPlacementBuilder().BuildSubmitRequestDTO()
	id := uuid.New()

	s.Run("success", func() {
		s.mockCommands.EXPECT().SubmitForReview(gomock.Any(), s.tenant, reqBody.ToInput()).
			Return(&commands.PlacementResult{PlacementID: id, State: placement.StatePendingReview}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/placements/submissions", reqBody, "bearer-token")

		var body resdto.PlacementStateResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(resdto.PlacementStateResponse{PlacementID: id, State: "pending_review"}, body)
	})

	s.Run("content_url is required", func() {
		requestMap := testutil.DtoMap(s.T(), reqBody, testutil.Field("content_url", nil))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/placements/submissions", requestMap, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *PlacementHandlerTestSuite) TestJoinWaitlist() {
	s.Run("success", func() {
		s.mockCommands.EXPECT().RequestNotification(gomock.Any(), s.tenant, "banner").
			Return(&commands.WaitlistResult{Kind: placement.KindBanner, Created: true}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/waitlist", map[string]any{"kind": "banner"}, "bearer-token")

		var body resdto.WaitlistResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(resdto.WaitlistResponse{Kind: "banner", Created: true}, body)
	})

	s.Run("unknown kind", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/waitlist", map[string]any{"kind": "billboard"}, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// ================================================================================
// Queries
// ================================================================================

func (s *PlacementHandlerTestSuite) TestGet() {
	b := builder.NewPlacementBuilder()

	s.Run("success", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), s.tenant, b.ID).Return(b.BuildView(), nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/placements/"+b.ID.String(), nil, "bearer-token")

		var body resdto.PlacementResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(b.ID, body.ID)
		s.Equal("69.93", body.Price)
		s.Equal("USD", body.Currency)
		s.Equal("pending_payment", body.State)
	})

	s.Run("not found", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, queries.ErrPlacementNotFound)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/placements/"+uuid.NewString(), nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusNotFound, httperr.CodeNotFound)
	})

	s.Run("unmappable view is a server error, not an empty body", func() {
		s.mockQueries.EXPECT().GetByID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/placements/"+uuid.NewString(), nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusInternalServerError, httperr.CodeInternal)
	})
}

func (s *PlacementHandlerTestSuite) TestList() {
	items := []*queries.PlacementListItem{builder.NewPlacementBuilder().BuildListItem()}

	s.Run("filters and cursor are forwarded", func() {
		state := "active"
		s.mockQueries.EXPECT().
			ListByTenant(gomock.Any(), s.tenant, queries.PlacementFilters{State: &state}, &queries.Cursor{After: "abc"}, 5).
			Return(items, &queries.Cursor{After: "next"}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/placements?state=active&limit=5&after=abc", nil, "bearer-token")

		var body resdto.PlacementListResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body.Items, 1)
		s.Equal("next", body.NextCursor)
	})

	s.Run("bad limit", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/placements?limit=ten", nil, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("bad cursor", func() {
		s.mockQueries.EXPECT().ListByTenant(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, nil, queries.ErrInvalidCursor)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/placements?after=bogus", nil, "bearer-token")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *PlacementHandlerTestSuite) TestAvailability() {
	s.mockQueries.EXPECT().Availability(gomock.Any()).Return([]*queries.PoolAvailability{
		{Kind: "banner", MaxActive: 4, ActiveCount: 1, Available: 3},
	}, nil)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/capacity", nil, "")

	var body []resdto.PoolAvailabilityResponse
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Equal([]resdto.PoolAvailabilityResponse{{Kind: "banner", MaxActive: 4, ActiveCount: 1, Available: 3}}, body)
}
