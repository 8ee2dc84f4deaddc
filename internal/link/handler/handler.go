package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"goodcompany/internal/link/models"
	"goodcompany/internal/platform/metrics"
	"goodcompany/internal/platform/middleware"
	"goodcompany/internal/transport/http/shared"
	id "goodcompany/pkg/domain"
	dErrors "goodcompany/pkg/domain-errors"
)

// Service defines the interface for social link operations.
type Service interface {
	Submit(ctx context.Context, profileUser, addedBy id.UserID, platform, url string) (*models.Link, error)
	Corroborate(ctx context.Context, linkID id.LinkID, actor id.UserID) (*models.Link, error)
	Report(ctx context.Context, linkID id.LinkID, actor id.UserID) (*models.Link, error)
	ListVisible(ctx context.Context, profileUser id.UserID) ([]*models.Link, error)
	ListHidden(ctx context.Context, profileUser id.UserID) ([]*models.Link, error)
}

// Handler handles social link endpoints.
type Handler struct {
	logger       *slog.Logger
	links        Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(
	links Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		links:        links,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the link routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Post("/profiles/{userID}/links", h.handleSubmit)
		r.Get("/profiles/{userID}/links", h.handleList)
		r.Get("/profiles/{userID}/links/hidden", h.handleListHidden)
		r.Post("/links/{linkID}/corroborate", h.handleCorroborate)
		r.Post("/links/{linkID}/report", h.handleReport)
	})
}

type submitLinkRequest struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.GetUserID(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	profileUser, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	var req submitLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid link submission",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	link, err := h.links.Submit(ctx, profileUser, actor, req.Platform, req.URL)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to submit link", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, link)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileUser, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	links, err := h.links.ListVisible(ctx, profileUser)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list links", err)
		return
	}
	if links == nil {
		links = []*models.Link{}
	}

	shared.WriteJSON(w, http.StatusOK, links)
}

// Hidden links stay retrievable for moderation review, they are only
// excluded from the public listing.
func (h *Handler) handleListHidden(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileUser, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return
	}

	links, err := h.links.ListHidden(ctx, profileUser)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list hidden links", err)
		return
	}
	if links == nil {
		links = []*models.Link{}
	}

	shared.WriteJSON(w, http.StatusOK, links)
}

func (h *Handler) handleCorroborate(w http.ResponseWriter, r *http.Request) {
	h.handleVote(w, r, h.links.Corroborate, "failed to corroborate link")
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	h.handleVote(w, r, h.links.Report, "failed to report link")
}

func (h *Handler) handleVote(
	w http.ResponseWriter,
	r *http.Request,
	vote func(ctx context.Context, linkID id.LinkID, actor id.UserID) (*models.Link, error),
	msg string) {
	ctx := r.Context()

	actor := middleware.GetUserID(ctx)
	if actor.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid link id"))
		return
	}

	link, err := vote(ctx, linkID, actor)
	if err != nil {
		h.writeServiceError(ctx, w, msg, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, link)
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
