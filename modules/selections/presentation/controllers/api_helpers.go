package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/structura-io/structura/modules/selections/services"
	"github.com/structura-io/structura/pkg/composables"
	"github.com/structura-io/structura/pkg/constants"
	"github.com/structura-io/structura/pkg/httpapi"
)

func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		var meta map[string]string
		if svcErr.Retryable {
			meta = map[string]string{"retryable": "true"}
		}
		_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, meta)
		return
	}
	_ = httpapi.WriteError(w, http.StatusInternalServerError, "SEL_INTERNAL", "internal error", nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SEL_INVALID_BODY", "invalid json", nil)
		return false
	}
	if err := constants.Validate.Struct(dst); err != nil {
		meta := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				meta[fe.Field()] = fe.Tag()
			}
		}
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SEL_INVALID_BODY", "validation failed", meta)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SEL_INVALID_BODY", "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func requestTenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, err := composables.UseTenantID(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, "SEL_NO_TENANT", "tenant_id is required", nil)
		return uuid.Nil, false
	}
	return tenantID, true
}
