package dataprovider

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for repository setup.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBackendUnavailable indicates the canonical backend could not be opened.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrStartFailed indicates that a provider or the repository failed to start.
	// The underlying error should be wrapped for additional context.
	ErrStartFailed = errors.New("start failed")
)

// Error kinds categorize errors by their type.
const (
	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindBackend represents errors opening or reaching the canonical store.
	KindBackend = "backend"

	// KindStartup represents errors initializing providers.
	KindStartup = "startup"

	// KindInternal represents internal errors.
	KindInternal = "internal"
)

// Error is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of
// error.
//
// Error implements the error interface and supports error unwrapping, making
// it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &Error{
//		Op:   "Open",
//		Kind: KindBackend,
//		Err:  ErrBackendUnavailable,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Open", "OpenFile").
	Op string

	// Kind categorizes the error (e.g., KindConfiguration, KindBackend).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dataprovider: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("dataprovider: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("dataprovider: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind (and Op, when the target sets
// one), and otherwise delegates to the underlying error.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if t, ok := target.(*Error); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	return errors.Is(e.Err, target)
}

// WithContext returns a new Error with the provided context added.
//
// Example:
//
//	err := NewBackendError("Open", ErrBackendUnavailable).WithContext(map[string]any{
//		"backend": "redis",
//	})
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	newErr.Context = make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		newErr.Context[k] = v
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewConfigurationError creates a new Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// NewBackendError creates a new Error with KindBackend.
func NewBackendError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindBackend, Err: err}
}

// NewStartupError creates a new Error with KindStartup.
func NewStartupError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindStartup, Err: err}
}

// NewInternalError creates a new Error with KindInternal.
func NewInternalError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInternal, Err: err}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. If logger is nil, slog.Default() is used.
//
// Example usage:
//
//	defer dataprovider.CloseWithLog(backend, logger, "redis backend")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
