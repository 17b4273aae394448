package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gitlab.com/timkado/api/review-xmpp-notifier/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

// RequestIDMiddleware puts the X-Request-ID header value, or a fresh UUID when
// absent, into the request context and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
