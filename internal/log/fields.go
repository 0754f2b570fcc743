package log

import "finboard/internal/core"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldOwnerID       = "owner_id"
	FieldAccountID     = "account_id"
	FieldWindowStart   = "window_start"
	FieldWindowEnd     = "window_end"
	FieldJobID         = "job_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSummary   = "summary"
	ComponentLedger    = "ledger"
	ComponentImport    = "import"
	ComponentConfirm   = "confirm"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentAuth      = "auth"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpSummarize = "summarize"
	OpImport    = "import"
	OpConfirm   = "confirm"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeTimeout    = "timeout_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields starts an empty field set.
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent sets the component field.
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID sets the request id field.
func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds the error message and its category
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	if errorType != "" {
		f[FieldErrorType] = errorType
	}
	return f
}

// WithOperation names the operation being logged.
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithScope adds the owner and, when set, the account a request is about
func (f LogFields) WithScope(scope core.Scope) LogFields {
	f[FieldOwnerID] = scope.OwnerID
	if scope.AccountID != "" {
		f[FieldAccountID] = scope.AccountID
	}
	return f
}

// WithWindow records the window bounds as yyyy-MM-dd strings.
func (f LogFields) WithWindow(w core.Window) LogFields {
	f[FieldWindowStart] = w.Start.String()
	f[FieldWindowEnd] = w.End.String()
	return f
}

// WithJob tags the fields with an import job id.
func (f LogFields) WithJob(jobID string) LogFields {
	f[FieldJobID] = jobID
	return f
}

// WithHTTPRequest records method, path and query.
func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
