package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/structura-io/structura/modules/estimation/domain/importing"
	"github.com/structura-io/structura/modules/estimation/domain/pricing"
	"github.com/structura-io/structura/modules/estimation/infrastructure/persistence"
	"github.com/structura-io/structura/pkg/ordering"
)

// SQLSTATEs that mean the transaction lost a race, not that the request was
// wrong. Retried with the shift plan recomputed against fresh state.
func isRetryablePgError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	switch {
	case errors.Is(err, ordering.ErrInvalidOrder):
		return newServiceError(http.StatusBadRequest, "EST_INVALID_ORDER", "target order outside sibling range", err)
	case errors.Is(err, ordering.ErrNotFound):
		return newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "node not found", err)
	case errors.Is(err, pricing.ErrInvalidProfit):
		return newServiceError(http.StatusUnprocessableEntity, "PRICING_INVALID_PROFIT", "desired profit out of range", err)
	case errors.Is(err, pricing.ErrUnknownPolicy):
		return newServiceError(http.StatusBadRequest, "PRICING_UNKNOWN_POLICY", "unknown profit policy", err)
	case errors.Is(err, importing.ErrNoGroups):
		return newServiceError(http.StatusBadRequest, "EST_IMPORT_EMPTY", "import produced no groups", err)
	case errors.Is(err, persistence.ErrSheetNotFound):
		return newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "estimate sheet not found", err)
	case errors.Is(err, persistence.ErrHeaderNotFound):
		return newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "estimate header not found", err)
	case errors.Is(err, persistence.ErrLineItemNotFound):
		return newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "line item not found", err)
	case errors.Is(err, pgx.ErrNoRows):
		return newServiceError(http.StatusNotFound, "EST_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		recordWriteConflict("serialization")
		return newRetryableError("EST_CONFLICT", "concurrent modification, retry", err)
	case "23505": // unique_violation
		recordWriteConflict("unique")
		return newServiceError(http.StatusConflict, "EST_DUPLICATE", "duplicate record", err)
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return newServiceError(http.StatusUnprocessableEntity, "EST_PARENT_NOT_FOUND", "referenced parent not found", err)
	default:
		return newServiceError(http.StatusInternalServerError, "EST_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
