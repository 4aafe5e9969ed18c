package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/httpapi"
)

// TenantHeader carries the acting tenant on API requests. An upstream gateway
// resolves authentication to a tenant before traffic reaches this service.
const TenantHeader = "X-Tenant-ID"

// RequireTenantID rejects requests that do not carry a valid tenant id and
// injects it into the context for the service layer.
func RequireTenantID() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(TenantHeader))
			if raw == "" {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "NO_TENANT", "missing "+TenantHeader+" header", nil)
				return
			}
			tenantID, err := uuid.Parse(raw)
			if err != nil || tenantID == uuid.Nil {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "NO_TENANT", "invalid "+TenantHeader+" header", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithTenantID(r.Context(), tenantID)))
		})
	}
}
