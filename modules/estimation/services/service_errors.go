package services

import "fmt"

// ServiceError is the terminal error surface of the estimation services.
// Status is an HTTP-ish classification the controllers map directly;
// Retryable marks conflicts that exhausted their internal retries and may be
// re-submitted by the caller.
type ServiceError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func newRetryableError(code, message string, cause error) *ServiceError {
	return &ServiceError{Status: 409, Code: code, Message: message, Retryable: true, Cause: cause}
}
