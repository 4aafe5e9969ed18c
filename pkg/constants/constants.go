package constants

import "github.com/go-playground/validator/v10"

// Validate is the process-wide validator instance. DTOs share it so custom
// rules only need registering once.
var Validate = validator.New(validator.WithRequiredStructEnabled())

type ContextKey string

const (
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	TenantIDKey  ContextKey = "tenantID"
	LoggerKey    ContextKey = "logger"
	RequestIDKey ContextKey = "requestID"
)
