package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeNotFound   = "NOT_FOUND"
	ErrCodeDocument   = "DOCUMENT_ERROR"
	ErrCodeCondition  = "CONDITION_ERROR"
	ErrCodeLocation   = "LOCATION_ERROR"
)

// RoutineError is the structured error type returned by the loaders, the
// condition engines and the CLI. Structural graph problems are never
// reported through it; they surface as a StatusReport.
type RoutineError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *RoutineError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RoutineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RoutineError.
func NewError(code, message string) *RoutineError {
	return &RoutineError{Code: code, Message: message}
}

// NewErrorf creates a new RoutineError with a formatted message.
func NewErrorf(code, format string, args ...any) *RoutineError {
	return &RoutineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *RoutineError) WithNode(nodeID string) *RoutineError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *RoutineError) WithCause(err error) *RoutineError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *RoutineError) WithDetails(details map[string]any) *RoutineError {
	e.Details = details
	return e
}
