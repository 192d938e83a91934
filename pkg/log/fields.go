package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID = "user_id"
	FieldEmail  = "email"

	// Service
	FieldService = "service"

	// Domain
	FieldStreamID  = "stream_id"
	FieldPaymentID = "payment_id"

	// Cache
	FieldNamespace = "namespace"
	FieldCacheKey  = "cache_key"
	FieldOperation = "operation"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
