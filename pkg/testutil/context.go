package testutil

import (
	"net/http"
	"time"

	id "goodcompany/pkg/domain"
	"goodcompany/pkg/requestcontext"
)

// WithUserID adds an authenticated actor to the request context, simulating
// what the auth middleware does for authenticated requests. Invalid UUIDs are
// silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithRequestID stamps a request ID on the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request clock, keeping handler-level time assertions
// deterministic.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
