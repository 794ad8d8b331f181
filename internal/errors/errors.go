package errors

import (
	stdErrors "errors"
	"fmt"
	"sync"
)

// Code identifies a failure class shared across the gateway services.
type Code string

// Severity describes how serious an error class is for alerting purposes.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConfiguration     Code = "CONFIGURATION"
	CodeAuthentication    Code = "AUTHENTICATION"
	CodeReadOnly          Code = "READ_ONLY"
	CodeNoAuthPath        Code = "NO_AUTH_PATH"
	CodeTransactionFailed Code = "TRANSACTION_FAILED"
	CodeTimeout           Code = "TIMEOUT"
	CodeEventNotFound     Code = "EVENT_NOT_FOUND"
	CodeRPCFailure        Code = "RPC_FAILURE"
	CodeRelayerFailure    Code = "RELAYER_FAILURE"
)

// Attributes carries the default behaviour associated with a code.
type Attributes struct {
	Message   string
	Severity  Severity
	Retryable bool
	Alert     bool
}

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown:         {Message: "unknown error", Severity: SeverityCritical, Alert: true},
		CodeInvalidArgument: {Message: "invalid argument", Severity: SeverityInfo},
		CodeNotFound:        {Message: "resource not found", Severity: SeverityInfo},
		CodeConfiguration:   {Message: "invalid configuration", Severity: SeverityCritical, Alert: true},
		CodeAuthentication:  {Message: "authentication failed", Severity: SeverityWarning},
		CodeReadOnly:        {Message: "cannot perform write in read-only mode", Severity: SeverityInfo},
		CodeNoAuthPath:      {Message: "no valid authorization path for write operation", Severity: SeverityWarning, Alert: true},
		CodeTransactionFailed: {
			Message:  "transaction failed",
			Severity: SeverityWarning,
			Alert:    true,
		},
		CodeTimeout: {
			Message:   "confirmation polling exhausted",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     true,
		},
		CodeEventNotFound:  {Message: "expected event missing from receipt", Severity: SeverityCritical, Alert: true},
		CodeRPCFailure:     {Message: "rpc request failed", Severity: SeverityWarning, Retryable: true},
		CodeRelayerFailure: {Message: "relayer request failed", Severity: SeverityWarning, Retryable: true},
	}
)

// Register lets a service add or override attributes during initialisation.
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf returns the attributes for a code, falling back to UNKNOWN.
func AttributesOf(code Code) Attributes {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error is the unified error type used across the subsystem.
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option configures optional error fields.
type Option func(*Error)

// WithMetadata attaches an identifier to the error for logging context.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New creates an error with the given code. An empty message picks the
// registered default.
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap attaches a cause to a new error so the original failure survives
// through errors.Unwrap.
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches errors by code so errors.Is works against sentinel instances.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message returns the human readable message without the cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata returns a copy of the attached identifiers.
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Retryable reports whether callers may resubmit the failed operation.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return AttributesOf(e.code).Retryable
}

// Severity returns the severity registered for the error code.
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	return AttributesOf(e.code).Severity
}

// ShouldAlert reports whether the error class pages operators.
func (e *Error) ShouldAlert() bool {
	if e == nil {
		return false
	}
	return AttributesOf(e.code).Alert
}

// From extracts the unified error type from any error chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of any error, UNKNOWN when unclassified.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// RetryableError reports whether an arbitrary error is retryable.
func RetryableError(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}
