package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"goodcompany/internal/endorsement/models"
	"goodcompany/internal/endorsement/service"
	"goodcompany/internal/platform/metrics"
	"goodcompany/internal/platform/middleware"
	"goodcompany/internal/transport/http/shared"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Service defines the interface for endorsement operations.
type Service interface {
	Endorse(ctx context.Context, endorser, endorsed id.UserID, in service.EndorseInput) (*models.Endorsement, error)
	Retract(ctx context.Context, endorser, endorsed id.UserID) error
	ListFor(ctx context.Context, endorsed id.UserID) ([]*models.Endorsement, error)
}

// Handler handles endorsement endpoints.
type Handler struct {
	logger       *slog.Logger
	endorsements Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	endorsements Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		endorsements: endorsements,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the endorsement routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/profiles/{userID}/endorsements", h.handleEndorse)
		r.Delete("/profiles/{userID}/endorsements", h.handleRetract)
		r.Get("/profiles/{userID}/endorsements", h.handleList)
	})
}

type endorseRequest struct {
	RelationshipType string `json:"relationship_type"`
	Duration         string `json:"duration"`
	Text             string `json:"endorsement_text"`
}

func (h *Handler) handleEndorse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	endorser := middleware.GetUserID(ctx)
	if endorser.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	endorsed, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	var req endorseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid endorse request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	endorsement, err := h.endorsements.Endorse(ctx, endorser, endorsed, service.EndorseInput{
		RelationshipType: req.RelationshipType,
		Duration:         req.Duration,
		Text:             req.Text,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to endorse", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, endorsement)
}

func (h *Handler) handleRetract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	endorser := middleware.GetUserID(ctx)
	if endorser.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	endorsed, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	if err := h.endorsements.Retract(ctx, endorser, endorsed); err != nil {
		h.writeServiceError(ctx, w, "failed to retract endorsement", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	endorsed, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	endorsements, err := h.endorsements.ListFor(ctx, endorsed)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list endorsements", err)
		return
	}
	if endorsements == nil {
		endorsements = []*models.Endorsement{}
	}

	shared.WriteJSON(w, http.StatusOK, endorsements)
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
