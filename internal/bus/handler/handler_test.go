package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/code"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/service"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/store"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/identity"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	store   *store.Memory
	service *service.Service
	tokens  *identity.TokenService
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewMemory()
	issuer, err := code.NewIssuer("test-secret")
	s.Require().NoError(err)
	s.service = service.New(s.store, issuer)
	s.tokens = identity.NewTokenService("jwt-test-key", "buscollege", "buscollege-mobile")

	logger := testutil.DiscardLogger()
	s.router = chi.NewRouter()
	New(s.service, logger, nil, identity.NewMiddlewareAdapter(s.tokens)).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) seedBus(busID id.BusID, capacity int) {
	s.Require().NoError(s.store.PutBus(s.T().Context(), &models.BusAggregate{ID: busID, MaxCapacity: capacity}))
}

func (s *HandlerSuite) token(riderID, role string) string {
	token, err := s.tokens.GenerateToken(riderID, "Lina", "lina@example.edu", role, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) subscribeRider(busID, riderID string) *models.RiderEntry {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/"+busID+"/subscription",
		map[string]string{"subscriptionType": "monthly"})
	rr := s.do(req, s.token(riderID, identity.RoleRider))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[models.RiderEntry](s.T(), rr)
}

func (s *HandlerSuite) TestSubscribe() {
	s.Run("creates a pending subscription", func() {
		s.seedBus("bus-1", 5)
		entry := s.subscribeRider("bus-1", "r1")
		s.Equal(id.RiderID("r1"), entry.RiderID)
		s.Equal(models.PaymentPending, entry.PaymentStatus)
		s.NotEmpty(entry.QRCode)
	})

	s.Run("rejects a missing token", func() {
		s.seedBus("bus-2", 5)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-2/subscription",
			map[string]string{"subscriptionType": "monthly"})
		rr := s.do(req, "")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("rejects a garbage token", func() {
		s.seedBus("bus-3", 5)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-3/subscription",
			map[string]string{"subscriptionType": "monthly"})
		rr := s.do(req, "not-a-jwt")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})

	s.Run("rejects an unknown subscription type with 422", func() {
		s.seedBus("bus-4", 5)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-4/subscription",
			map[string]string{"subscriptionType": "weekly"})
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusUnprocessableEntity, rr.Code)
	})

	s.Run("rejects a malformed body with 400", func() {
		s.seedBus("bus-5", 5)
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/buses/bus-5/subscription", "{not json")
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("full bus returns 409", func() {
		s.seedBus("bus-6", 1)
		s.subscribeRider("bus-6", "r1")
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-6/subscription",
			map[string]string{"subscriptionType": "monthly"})
		rr := s.do(req, s.token("r2", identity.RoleRider))
		s.Equal(http.StatusConflict, rr.Code)
		testutil.AssertErrorCode(s.T(), rr, "capacity_exceeded")
	})

	s.Run("unknown bus returns 404", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/ghost/subscription",
			map[string]string{"subscriptionType": "monthly"})
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *HandlerSuite) TestSubscriptionViewAndExit() {
	s.Run("rider sees their own entry", func() {
		s.seedBus("bus-1", 5)
		s.subscribeRider("bus-1", "r1")

		req := testutil.NewRequest(s.T(), http.MethodGet, "/buses/bus-1/subscription")
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusOK, rr.Code)
		entry := testutil.UnmarshalResponse[models.RiderEntry](s.T(), rr)
		s.Equal(id.RiderID("r1"), entry.RiderID)
	})

	s.Run("unsubscribe returns 204 and deletes the pending entry", func() {
		s.seedBus("bus-2", 5)
		s.subscribeRider("bus-2", "r1")

		req := testutil.NewRequest(s.T(), http.MethodDelete, "/buses/bus-2/subscription")
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusNoContent, rr.Code)

		req = testutil.NewRequest(s.T(), http.MethodGet, "/buses/bus-2/subscription")
		rr = s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("cancel returns 204", func() {
		s.seedBus("bus-3", 5)
		s.subscribeRider("bus-3", "r1")

		req := testutil.NewRequest(s.T(), http.MethodPost, "/buses/bus-3/subscription/cancel")
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusNoContent, rr.Code)
	})
}

func (s *HandlerSuite) TestBoardingCodeAndVerify() {
	s.seedBus("bus-1", 5)
	entry := s.subscribeRider("bus-1", "r1")
	_, err := s.service.UpdatePaymentStatus(s.T().Context(), "r1", "bus-1", models.PaymentPaid)
	s.Require().NoError(err)

	s.Run("paid rider gets the code", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/buses/bus-1/subscription/code")
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusOK, rr.Code)
		testutil.AssertJSONContains(s.T(), rr, "code", entry.QRCode)
	})

	s.Run("driver verifies the code", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-1/verify",
			map[string]string{"code": entry.QRCode})
		rr := s.do(req, s.token("driver-1", identity.RoleDriver))
		s.Equal(http.StatusOK, rr.Code)
		boarded := testutil.UnmarshalResponse[models.RiderEntry](s.T(), rr)
		s.Equal(id.RiderID("r1"), boarded.RiderID)
	})

	s.Run("rider role cannot call the driver endpoint", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-1/verify",
			map[string]string{"code": entry.QRCode})
		rr := s.do(req, s.token("r1", identity.RoleRider))
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("tampered code is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/buses/bus-1/verify",
			map[string]string{"code": entry.QRCode + "x"})
		rr := s.do(req, s.token("driver-1", identity.RoleDriver))
		s.Equal(http.StatusNotFound, rr.Code)
	})

	s.Run("unpaid rider is denied the code with 403", func() {
		s.seedBus("bus-2", 5)
		s.subscribeRider("bus-2", "r2")
		req := testutil.NewRequest(s.T(), http.MethodGet, "/buses/bus-2/subscription/code")
		rr := s.do(req, s.token("r2", identity.RoleRider))
		s.Equal(http.StatusForbidden, rr.Code)
	})
}
