package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
)

func captureRequestID(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, _ = r.Context().Value(contextkeys.RequestIDKey).(string)
	})
}

func TestRequestIDMiddlewareKeepsHeader(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set(XRequestIDHeader, "req-123")
	rec := httptest.NewRecorder()

	RequestIDMiddleware(captureRequestID(&seen)).ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(XRequestIDHeader))
}

func TestRequestIDMiddlewareGeneratesID(t *testing.T) {
	var seen string
	rec := httptest.NewRecorder()

	RequestIDMiddleware(captureRequestID(&seen)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(XRequestIDHeader))
}
