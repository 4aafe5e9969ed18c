package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/configuration"
)

// RequestID propagates the caller's request id when the configured header is
// present and generates one otherwise. The id is echoed back on the response
// so a client can correlate its own logs with ours.
func RequestID() mux.MiddlewareFunc {
	header := configuration.Use().RequestIDHeader
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(header))
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set(header, id)
			next.ServeHTTP(w, r.WithContext(composables.WithRequestID(r.Context(), id)))
		})
	}
}
