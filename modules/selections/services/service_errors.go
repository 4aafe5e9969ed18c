package services

import (
	"fmt"
	"net/http"
)

// ServiceError carries an HTTP-ready status and a stable machine code so
// controllers translate without switching on error strings.
type ServiceError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{
		Status:  status,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func newRetryableError(code, message string, cause error) *ServiceError {
	return &ServiceError{
		Status:    http.StatusConflict,
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}
