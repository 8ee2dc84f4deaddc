package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"goodcompany/internal/platform/metrics"
	"goodcompany/internal/platform/middleware"
	"goodcompany/internal/transport/http/shared"
	"goodcompany/internal/verification/models"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Service defines the interface for verification operations.
type Service interface {
	SubmitDocument(ctx context.Context, userID id.UserID, content []byte, mimeType string) (*models.Record, error)
	SubmitSelfie(ctx context.Context, userID id.UserID, content []byte, mimeType string) (*models.Record, error)
	RequestDecision(ctx context.Context, userID id.UserID) (*models.Record, error)
	Status(ctx context.Context, userID id.UserID) (models.Status, *models.Record, error)
	History(ctx context.Context, userID id.UserID) ([]*models.Record, error)
}

// Handler handles identity verification endpoints.
type Handler struct {
	logger       *slog.Logger
	verification Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	maxBodyBytes int64
}

func New(
	verification Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	maxBodyBytes int64) *Handler {
	return &Handler{
		logger:       logger,
		verification: verification,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		maxBodyBytes: maxBodyBytes,
	}
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/verification/document", h.handleSubmitDocument)
		r.Post("/verification/selfie", h.handleSubmitSelfie)
		r.Post("/verification/decision", h.handleRequestDecision)
		r.Get("/verification/status", h.handleStatus)
		r.Get("/verification/history", h.handleHistory)
	})
}

type statusResponse struct {
	Status models.Status  `json:"status"`
	Record *models.Record `json:"record,omitempty"`
}

func (h *Handler) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	h.handleSubmitArtifact(w, r, h.verification.SubmitDocument)
}

func (h *Handler) handleSubmitSelfie(w http.ResponseWriter, r *http.Request) {
	h.handleSubmitArtifact(w, r, h.verification.SubmitSelfie)
}

// Artifacts arrive as raw bodies with their Content-Type header. The service
// re-sniffs the content, the header is a declaration only.
func (h *Handler) handleSubmitArtifact(
	w http.ResponseWriter,
	r *http.Request,
	submit func(ctx context.Context, userID id.UserID, content []byte, mimeType string) (*models.Record, error)) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read artifact body",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	if int64(len(content)) > h.maxBodyBytes {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "artifact exceeds the maximum allowed size"))
		return
	}

	record, err := submit(ctx, userID, content, r.Header.Get("Content-Type"))
	if err != nil {
		h.writeServiceError(ctx, w, "artifact submission failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusAccepted, record)
}

func (h *Handler) handleRequestDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	record, err := h.verification.RequestDecision(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, "verification decision failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	status, record, err := h.verification.Status(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, "verification status lookup failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, statusResponse{Status: status, Record: record})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middleware.GetUserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	records, err := h.verification.History(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, "verification history lookup failed", err)
		return
	}
	if records == nil {
		records = []*models.Record{}
	}

	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
	default:
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
	}
}
