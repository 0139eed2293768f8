package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldOwnerID    = "owner_id"
	FieldViewing    = "viewing_id"
	FieldTargetID   = "target_id"
	FieldExpenseID  = "expense_id"
	FieldCategory   = "category"
	FieldDate       = "date"
	FieldPrimary    = "amount_primary"
	FieldSecondary  = "amount_secondary"
	FieldCount      = "count"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldGeneration = "generation"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentLedger      = "ledger"
	ComponentConnections = "connections"
	ComponentStorage     = "storage"
	ComponentMemory      = "memory_store"
	ComponentFeed        = "feed"
	ComponentAMQP        = "amqp"
	ComponentBackend     = "backend"
	ComponentExport      = "export"
	ComponentWorker      = "worker"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpSubscribe  = "subscribe"
	OpSwitch     = "switch"
	OpConnect    = "connect"
	OpDisconnect = "disconnect"
	OpExport     = "export"
	OpSummarize  = "summarize"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// ErrorTypes mirrors the engine's error kinds for log filtering
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeStore      = "store_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithExpense adds expense-related fields; amounts are logged as strings
// to keep their decimal representation exact.
func (f LogFields) WithExpense(id, category, date, primary, secondary string) LogFields {
	if id != "" {
		f[FieldExpenseID] = id
	}
	f[FieldCategory] = category
	f[FieldDate] = date
	f[FieldPrimary] = primary
	f[FieldSecondary] = secondary
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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
