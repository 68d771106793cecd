package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/metrics"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/middleware"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/sweep"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/transport/http/shared"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
	"github.com/brahimakil/buscollege-mobile-sub000/pkg/requestcontext"
)

// AdminService defines the operations the operator endpoints need.
type AdminService interface {
	UpdatePaymentStatus(ctx context.Context, riderID id.RiderID, busID id.BusID, status models.PaymentStatus) (*models.RiderEntry, error)
	AdminRemoveRider(ctx context.Context, riderID id.RiderID, busID id.BusID, adminID id.AdminID) error
	ListRiders(ctx context.Context, busID id.BusID) ([]models.RiderEntry, error)
}

// SweepRunner triggers one expiration pass on demand.
type SweepRunner interface {
	Run(ctx context.Context) (sweep.Stats, error)
}

// AdminHandler handles operator endpoints behind the shared admin token.
type AdminHandler struct {
	logger     *slog.Logger
	buses      AdminService
	sweeper    SweepRunner
	metrics    *metrics.Metrics
	adminToken string
}

// NewAdmin creates a new AdminHandler.
func NewAdmin(buses AdminService, sweeper SweepRunner, logger *slog.Logger, m *metrics.Metrics, adminToken string) *AdminHandler {
	return &AdminHandler{
		logger:     logger,
		buses:      buses,
		sweeper:    sweeper,
		metrics:    m,
		adminToken: adminToken,
	}
}

// Register registers the admin routes with the chi router.
func (h *AdminHandler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.Timeout(60 * time.Second))
	adminRouter.Use(middleware.ContentTypeJSON)
	adminRouter.Use(middleware.Latency(h.metrics))
	adminRouter.Use(middleware.RequireAdminToken(h.adminToken, h.logger))

	adminRouter.Patch("/buses/{busID}/riders/{riderID}/payment", h.handleUpdatePayment)
	adminRouter.Delete("/buses/{busID}/riders/{riderID}", h.handleRemoveRider)
	adminRouter.Get("/buses/{busID}/riders", h.handleListRiders)
	adminRouter.Post("/sweep", h.handleSweep)

	r.Mount("/admin", adminRouter)
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

func (h *AdminHandler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	busID, riderID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var body updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "invalid payment update request", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status := models.PaymentStatus(body.PaymentStatus)
	if !status.Valid() {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown payment status %q", body.PaymentStatus))
		return
	}

	entry, err := h.buses.UpdatePaymentStatus(ctx, riderID, busID, status)
	if err != nil {
		h.writeServiceError(ctx, w, "payment update failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

func (h *AdminHandler) handleRemoveRider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	busID, riderID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	err := h.buses.AdminRemoveRider(ctx, riderID, busID, requestcontext.AdminID(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "admin removal failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleListRiders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	busID, err := id.ParseBusID(chi.URLParam(r, "busID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	riders, err := h.buses.ListRiders(ctx, busID)
	if err != nil {
		h.writeServiceError(ctx, w, "list riders failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, riders)
}

// handleSweep runs one expiration pass inline and reports its stats. The
// scheduled runs are unaffected; the sweep is idempotent so overlap with a
// scheduled run is harmless.
func (h *AdminHandler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.sweeper.Run(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "manual sweep failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) pathIDs(w http.ResponseWriter, r *http.Request) (id.BusID, id.RiderID, bool) {
	busID, err := id.ParseBusID(chi.URLParam(r, "busID"))
	if err != nil {
		shared.WriteError(w, err)
		return "", "", false
	}
	riderID, err := id.ParseRiderID(chi.URLParam(r, "riderID"))
	if err != nil {
		shared.WriteError(w, err)
		return "", "", false
	}
	return busID, riderID, true
}

func (h *AdminHandler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg, "error", err.Error())
	} else {
		h.logger.WarnContext(ctx, msg, "error", err.Error())
	}
	shared.WriteError(w, err)
}
