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
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/middleware"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/sweep"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/testutil"
)

const testAdminToken = "ops-secret"

type AdminHandlerSuite struct {
	suite.Suite
	router  chi.Router
	store   *store.Memory
	service *service.Service
}

func (s *AdminHandlerSuite) SetupTest() {
	s.store = store.NewMemory()
	issuer, err := code.NewIssuer("test-secret")
	s.Require().NoError(err)
	s.service = service.New(s.store, issuer)

	logger := testutil.DiscardLogger()
	sweeper := sweep.New(s.store, logger)
	s.router = chi.NewRouter()
	NewAdmin(s.service, sweeper, logger, nil, testAdminToken).Register(s.router)
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) seedSubscribedRider(busID id.BusID, riderID id.RiderID) {
	s.Require().NoError(s.store.PutBus(s.T().Context(), &models.BusAggregate{ID: busID, MaxCapacity: 10}))
	_, err := s.service.Subscribe(s.T().Context(), service.SubscribeRequest{
		Profile:          models.RiderProfile{RiderID: riderID},
		BusID:            busID,
		SubscriptionType: models.SubscriptionMonthly,
	})
	s.Require().NoError(err)
}

func (s *AdminHandlerSuite) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(middleware.HeaderAdminToken, token)
		req.Header.Set(middleware.HeaderAdminID, "ops-1")
	}
	return testutil.DoRequest(s.router, req)
}

func (s *AdminHandlerSuite) TestAdminToken() {
	s.Run("missing token gets 403", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/buses/bus-1/riders")
		rr := s.do(req, "")
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("wrong token gets 403", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/buses/bus-1/riders")
		rr := s.do(req, "wrong")
		s.Equal(http.StatusForbidden, rr.Code)
	})
}

func (s *AdminHandlerSuite) TestUpdatePayment() {
	s.Run("marks the entry paid", func() {
		s.seedSubscribedRider("bus-1", "r1")
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/buses/bus-1/riders/r1/payment",
			map[string]string{"paymentStatus": "paid"})
		rr := s.do(req, testAdminToken)
		s.Equal(http.StatusOK, rr.Code, rr.Body.String())

		entry := testutil.UnmarshalResponse[models.RiderEntry](s.T(), rr)
		s.Equal(models.PaymentPaid, entry.PaymentStatus)
		s.NotNil(entry.ExpiresAt)
	})

	s.Run("rejects an unknown status with 400", func() {
		s.seedSubscribedRider("bus-2", "r1")
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/buses/bus-2/riders/r1/payment",
			map[string]string{"paymentStatus": "refunded"})
		rr := s.do(req, testAdminToken)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown rider gets 404", func() {
		s.seedSubscribedRider("bus-3", "r1")
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/admin/buses/bus-3/riders/ghost/payment",
			map[string]string{"paymentStatus": "paid"})
		rr := s.do(req, testAdminToken)
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *AdminHandlerSuite) TestRemoveRider() {
	s.seedSubscribedRider("bus-1", "r1")

	req := testutil.NewRequest(s.T(), http.MethodDelete, "/admin/buses/bus-1/riders/r1")
	rr := s.do(req, testAdminToken)
	s.Equal(http.StatusNoContent, rr.Code)

	bus, err := s.store.GetBus(s.T().Context(), "bus-1")
	s.Require().NoError(err)
	s.Empty(bus.Riders)
}

func (s *AdminHandlerSuite) TestListRiders() {
	s.seedSubscribedRider("bus-1", "r1")
	_, err := s.service.Subscribe(s.T().Context(), service.SubscribeRequest{
		Profile:          models.RiderProfile{RiderID: "r2"},
		BusID:            "bus-1",
		SubscriptionType: models.SubscriptionPerRide,
	})
	s.Require().NoError(err)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/buses/bus-1/riders")
	rr := s.do(req, testAdminToken)
	s.Equal(http.StatusOK, rr.Code)

	riders := testutil.UnmarshalResponse[[]models.RiderEntry](s.T(), rr)
	s.Len(*riders, 2)
}

func (s *AdminHandlerSuite) TestManualSweep() {
	busID := id.BusID("bus-1")
	s.Require().NoError(s.store.PutBus(s.T().Context(), &models.BusAggregate{ID: busID, MaxCapacity: 10}))
	ctx := requestcontext.WithTime(s.T().Context(), time.Now().Add(-2*models.PerRideTTL))
	_, err := s.service.Subscribe(ctx, service.SubscribeRequest{
		Profile:          models.RiderProfile{RiderID: "r1"},
		BusID:            busID,
		SubscriptionType: models.SubscriptionPerRide,
	})
	s.Require().NoError(err)
	_, err = s.service.UpdatePaymentStatus(ctx, "r1", busID, models.PaymentPaid)
	s.Require().NoError(err)

	req := testutil.NewRequest(s.T(), http.MethodPost, "/admin/sweep")
	rr := s.do(req, testAdminToken)
	s.Equal(http.StatusOK, rr.Code, rr.Body.String())

	stats := testutil.UnmarshalResponse[sweep.Stats](s.T(), rr)
	s.Equal(1, stats.Considered)
	s.Equal(1, stats.Expired)

	bus, err := s.store.GetBus(s.T().Context(), busID)
	s.Require().NoError(err)
	s.Equal(models.PaymentPending, bus.Riders[0].PaymentStatus)
}
