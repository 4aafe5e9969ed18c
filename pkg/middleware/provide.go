package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/structura-io/structura/pkg/constants"
)

// Provide injects a fixed value under the given context key for every request.
func Provide(key constants.ContextKey, value any) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), key, value)))
		})
	}
}
