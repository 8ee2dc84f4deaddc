package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"goodcompany/internal/platform/metrics"
	"goodcompany/internal/platform/middleware"
	"goodcompany/internal/profile/models"
	"goodcompany/internal/transport/http/shared"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Service defines the interface for profile operations.
type Service interface {
	EnsureProfile(ctx context.Context, userID id.UserID, name string) (*models.Profile, error)
	Get(ctx context.Context, userID id.UserID) (*models.Profile, error)
	GetView(ctx context.Context, userID id.UserID) (*models.View, error)
}

// Handler handles profile endpoints.
type Handler struct {
	logger       *slog.Logger
	profiles     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	profiles Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		profiles:     profiles,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/profiles", h.handleEnsureProfile)
		r.Get("/profiles/{userID}", h.handleGetView)
	})
}

type ensureProfileRequest struct {
	Name string `json:"name"`
}

// handleEnsureProfile creates the caller's trust profile or refreshes its
// display name when it already exists.
func (h *Handler) handleEnsureProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req ensureProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid profile request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	profile, err := h.profiles.EnsureProfile(ctx, userID, req.Name)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to ensure profile", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	view, err := h.profiles.GetView(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load profile", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
	shared.WriteError(w, err)
}
