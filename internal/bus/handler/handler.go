// Package handler exposes the subscription lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/models"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/service"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/identity"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/metrics"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/middleware"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/transport/http/shared"
	id "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain"
	dErrors "github.com/brahimakil/buscollege-mobile-sub000/pkg/domain-errors"
)

// Service defines the subscription operations the rider and driver
// endpoints need.
type Service interface {
	Subscribe(ctx context.Context, req service.SubscribeRequest) (*models.RiderEntry, error)
	Unsubscribe(ctx context.Context, riderID id.RiderID, busID id.BusID) error
	CancelPendingSubscription(ctx context.Context, riderID id.RiderID, busID id.BusID) error
	GetSubscription(ctx context.Context, riderID id.RiderID, busID id.BusID) (*models.RiderEntry, error)
	BoardingCode(ctx context.Context, riderID id.RiderID, busID id.BusID) (string, error)
	VerifyBoardingCode(ctx context.Context, busID id.BusID, token string) (*models.RiderEntry, error)
}

// Handler handles rider and driver subscription endpoints.
type Handler struct {
	logger    *slog.Logger
	buses     Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates a new subscription Handler.
func New(buses Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		buses:     buses,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the rider and driver routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	busRouter := chi.NewRouter()
	busRouter.Use(middleware.Recovery(h.logger))
	busRouter.Use(middleware.RequestID)
	busRouter.Use(middleware.Logger(h.logger))
	busRouter.Use(middleware.Timeout(30 * time.Second))
	busRouter.Use(middleware.ContentTypeJSON)
	busRouter.Use(middleware.Latency(h.metrics))
	busRouter.Use(middleware.RequireAuth(h.validator, h.logger))

	busRouter.Post("/buses/{busID}/subscription", h.handleSubscribe)
	busRouter.Delete("/buses/{busID}/subscription", h.handleUnsubscribe)
	busRouter.Post("/buses/{busID}/subscription/cancel", h.handleCancel)
	busRouter.Get("/buses/{busID}/subscription", h.handleGetSubscription)
	busRouter.Get("/buses/{busID}/subscription/code", h.handleBoardingCode)

	busRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(identity.RoleDriver, h.logger))
		r.Post("/buses/{busID}/verify", h.handleVerify)
	})

	r.Mount("/", busRouter)
}

type subscribeRequest struct {
	SubscriptionType string `json:"subscriptionType"`
	LocationID       string `json:"locationId,omitempty"`
}

type codeResponse struct {
	Code string `json:"code"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

// handleSubscribe creates a pending subscription for the authenticated
// rider. Subscribing again after expiry or unsubscribe goes through the
// same endpoint and mints a fresh subscription id.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, busID, ok := h.riderRequest(w, r)
	if !ok {
		return
	}

	var body subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.warn(ctx, "invalid subscribe request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	entry, err := h.buses.Subscribe(ctx, service.SubscribeRequest{
		Profile:          profile,
		BusID:            busID,
		SubscriptionType: models.SubscriptionType(body.SubscriptionType),
		LocationID:       body.LocationID,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "subscribe failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, entry)
}

// handleUnsubscribe removes or deactivates the rider's entry depending on
// its payment state. Responds 204 either way; the distinction is internal.
func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, busID, ok := h.riderRequest(w, r)
	if !ok {
		return
	}

	if err := h.buses.Unsubscribe(ctx, profile.RiderID, busID); err != nil {
		h.writeServiceError(ctx, w, "unsubscribe failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCancel deletes every entry the rider holds on the bus regardless
// of state. This is the abandon-checkout path, not the lifecycle exit.
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, busID, ok := h.riderRequest(w, r)
	if !ok {
		return
	}

	if err := h.buses.CancelPendingSubscription(ctx, profile.RiderID, busID); err != nil {
		h.writeServiceError(ctx, w, "cancel failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, busID, ok := h.riderRequest(w, r)
	if !ok {
		return
	}

	entry, err := h.buses.GetSubscription(ctx, profile.RiderID, busID)
	if err != nil {
		h.writeServiceError(ctx, w, "get subscription failed", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

// handleBoardingCode returns the boarding token, gated on the entry being
// active and paid.
func (h *Handler) handleBoardingCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profile, busID, ok := h.riderRequest(w, r)
	if !ok {
		return
	}

	code, err := h.buses.BoardingCode(ctx, profile.RiderID, busID)
	if err != nil {
		h.writeServiceError(ctx, w, "boarding code denied", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, codeResponse{Code: code})
}

// handleVerify is the driver-side scan: the token is checked against the
// store's current copy of the entry, never the client's.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	busID, err := id.ParseBusID(chi.URLParam(r, "busID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.warn(ctx, "invalid verify request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	entry, err := h.buses.VerifyBoardingCode(ctx, busID, body.Code)
	if err != nil {
		h.writeServiceError(ctx, w, "boarding code rejected", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, entry)
}

// riderRequest extracts the authenticated rider's profile and the bus id
// from the request, writing the error response itself on failure.
func (h *Handler) riderRequest(w http.ResponseWriter, r *http.Request) (models.RiderProfile, id.BusID, bool) {
	ctx := r.Context()

	claims := middleware.GetClaims(ctx)
	if claims == nil || claims.RiderID == "" {
		// RequireAuth guarantees claims; reaching here is a wiring bug.
		h.logger.ErrorContext(ctx, "claims missing from context despite auth middleware")
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return models.RiderProfile{}, "", false
	}

	riderID, err := id.ParseRiderID(claims.RiderID)
	if err != nil {
		shared.WriteError(w, err)
		return models.RiderProfile{}, "", false
	}
	busID, err := id.ParseBusID(chi.URLParam(r, "busID"))
	if err != nil {
		shared.WriteError(w, err)
		return models.RiderProfile{}, "", false
	}

	profile := models.RiderProfile{
		RiderID: riderID,
		Name:    claims.Name,
		Email:   claims.Email,
	}
	return profile, busID, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.Is(err, dErrors.CodeInternal) || dErrors.Is(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg, "error", err.Error())
	} else {
		h.warn(ctx, msg, err)
	}
	shared.WriteError(w, err)
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg, "error", err.Error())
}
