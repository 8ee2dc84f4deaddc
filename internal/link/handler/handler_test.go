package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"goodcompany/internal/link/service"
	linkstore "goodcompany/internal/link/store"
	"goodcompany/internal/platform/jwtauth"
	profilemodels "goodcompany/internal/profile/models"
	profilestore "goodcompany/internal/profile/store"
	id "goodcompany/pkg/domain"
)

const signingKey = "test-signing-key"

// newLinkRouter wires the full middleware chain against in-memory stores so
// requests travel the same path they do in production.
func newLinkRouter(t *testing.T) (chi.Router, *jwtauth.Service, id.UserID) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	profiles := profilestore.NewMemory()
	profileUser := id.NewUserID()
	profile, err := profilemodels.New(profileUser, "Avery", time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to build profile: %v", err)
	}
	if err := profiles.Save(context.Background(), profile); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	svc := service.NewService(linkstore.NewMemory(), profiles, service.DefaultConfig(),
		service.WithLogger(logger))
	jwtService := jwtauth.NewService(signingKey, "goodcompany")

	router := chi.NewRouter()
	New(svc, logger, nil, jwtService).Register(router)
	return router, jwtService, profileUser
}

func bearerToken(t *testing.T, jwtService *jwtauth.Service, userID id.UserID) string {
	t.Helper()
	token, err := jwtService.GenerateAccessToken(uuid.UUID(userID), time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return "Bearer " + token
}

func TestAuthRequired(t *testing.T) {
	router, _, profileUser := newLinkRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/profiles/"+profileUser.String()+"/links", nil)
	// No Authorization header set
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestSubmitAndListViaRouter(t *testing.T) {
	router, jwtService, profileUser := newLinkRouter(t)
	token := bearerToken(t, jwtService, id.NewUserID())

	payload := map[string]string{
		"platform": "instagram",
		"url":      "https://instagram.com/avery",
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileUser.String()+"/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting link, got %d: %s", rec.Code, rec.Body.String())
	}

	var submitted struct {
		ID       uuid.UUID `json:"id"`
		Platform string    `json:"platform"`
		Verified bool      `json:"is_verified"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&submitted); err != nil {
		t.Fatalf("failed to decode link response: %v", err)
	}
	if submitted.ID == uuid.Nil {
		t.Fatalf("expected link id in response")
	}
	if submitted.Platform != "instagram" || submitted.Verified {
		t.Fatalf("expected a pending instagram link, got %+v", submitted)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/profiles/"+profileUser.String()+"/links", nil)
	listReq.Header.Set("Authorization", token)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing links, got %d", listRec.Code)
	}

	var listed []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(listRec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode link list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != submitted.ID {
		t.Fatalf("expected the submitted link in the listing, got %+v", listed)
	}
}

func TestCorroborateViaRouter(t *testing.T) {
	router, jwtService, profileUser := newLinkRouter(t)

	body, _ := json.Marshal(map[string]string{
		"platform": "twitter",
		"url":      "https://x.com/avery",
	})
	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileUser.String()+"/links", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, jwtService, id.NewUserID()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 submitting link, got %d: %s", rec.Code, rec.Body.String())
	}
	var link struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&link); err != nil {
		t.Fatalf("failed to decode link response: %v", err)
	}

	// Two distinct voters cross the verify threshold.
	var last struct {
		Verified    bool `json:"is_verified"`
		VerifyCount int  `json:"verify_count"`
	}
	for range 2 {
		voteReq := httptest.NewRequest(http.MethodPost, "/links/"+link.ID.String()+"/corroborate", nil)
		voteReq.Header.Set("Authorization", bearerToken(t, jwtService, id.NewUserID()))
		voteRec := httptest.NewRecorder()
		router.ServeHTTP(voteRec, voteReq)
		if voteRec.Code != http.StatusOK {
			t.Fatalf("expected 200 corroborating link, got %d: %s", voteRec.Code, voteRec.Body.String())
		}
		if err := json.NewDecoder(voteRec.Body).Decode(&last); err != nil {
			t.Fatalf("failed to decode vote response: %v", err)
		}
	}
	if !last.Verified || last.VerifyCount != 2 {
		t.Fatalf("expected a verified link after two votes, got %+v", last)
	}
}

func TestVoteOnUnknownLinkViaRouter(t *testing.T) {
	router, jwtService, _ := newLinkRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/links/"+uuid.NewString()+"/report", nil)
	req.Header.Set("Authorization", bearerToken(t, jwtService, id.NewUserID()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 voting on an unknown link, got %d", rec.Code)
	}
}

func TestSubmitInvalidBodyViaRouter(t *testing.T) {
	router, jwtService, profileUser := newLinkRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/profiles/"+profileUser.String()+"/links",
		bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearerToken(t, jwtService, id.NewUserID()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %d", rec.Code)
	}
}
