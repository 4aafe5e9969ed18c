package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/structura-io/structura/modules/selections/infrastructure/persistence"
	"github.com/structura-io/structura/pkg/ordering"
)

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
		return newServiceError(http.StatusBadRequest, "SEL_INVALID_ORDER", "target order outside sibling range", err)
	case errors.Is(err, ordering.ErrNotFound):
		return newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "node not found", err)
	case errors.Is(err, persistence.ErrTemplateNotFound):
		return newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "selection template not found", err)
	case errors.Is(err, persistence.ErrCategoryNotFound):
		return newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "selection category not found", err)
	case errors.Is(err, persistence.ErrQuestionNotFound):
		return newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "selection question not found", err)
	case errors.Is(err, pgx.ErrNoRows):
		return newServiceError(http.StatusNotFound, "SEL_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		recordWriteConflict("serialization")
		return newRetryableError("SEL_CONFLICT", "concurrent modification, retry", err)
	case "23505": // unique_violation
		recordWriteConflict("unique")
		return newServiceError(http.StatusConflict, "SEL_DUPLICATE", "duplicate record", err)
	case "23503": // foreign_key_violation
		recordWriteConflict("foreign_key")
		return newServiceError(http.StatusUnprocessableEntity, "SEL_PARENT_NOT_FOUND", "referenced parent not found", err)
	default:
		return newServiceError(http.StatusInternalServerError, "SEL_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
