package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNoSuchItem indicates that the requested node or property does not exist
	// in the backing store.
	ErrNoSuchItem = errors.New("store: no such item")

	// ErrItemState indicates that an item state could not be read or built.
	ErrItemState = errors.New("store: item state error")

	// ErrInvalidItemState indicates that a snapshot is stale and must be
	// re-resolved by the caller. It is never swallowed.
	ErrInvalidItemState = errors.New("store: invalid item state")

	// ErrImpossibleState indicates data model corruption: canonical state that
	// must exist for a virtual node could not be found.
	ErrImpossibleState = errors.New("store: impossible state")

	// ErrNoDefinition indicates that no node or property definition applies.
	ErrNoDefinition = errors.New("store: no applicable definition")

	// ErrIllegalName indicates a name that cannot be parsed.
	ErrIllegalName = errors.New("store: illegal name")

	// ErrMalformedPath indicates a path that cannot be parsed.
	ErrMalformedPath = errors.New("store: malformed path")

	// ErrNamespace indicates a name prefix without a registered namespace.
	ErrNamespace = errors.New("store: unknown namespace prefix")
)

// Error kinds categorize store errors.
const (
	KindNotFound   = "not_found"
	KindItemState  = "item_state"
	KindInvalid    = "invalid_state"
	KindImpossible = "impossible"
	KindSchema     = "schema"
	KindNaming     = "naming"
	KindInternal   = "internal"
)

// Error is the generic store error. Failures raised below the provider layer
// are wrapped into an Error so callers can tell store trouble apart from
// programming errors such as calling into an uninitialized provider.
//
// Example usage:
//
//	err := &store.Error{
//		Op:   "Provider.Populate",
//		Kind: store.KindImpossible,
//		Err:  store.ErrImpossibleState,
//	}
type Error struct {
	// Op is the operation that failed (e.g., "Backend.Node").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindSchema).
	Kind string

	// Err is the underlying error.
	Err error

	// Context carries identifiers or type names useful for diagnosis.
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("store: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("store: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind (and Op when the target sets one), and
// otherwise delegates to the wrapped error.
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

// WithContext returns a copy of the error with ctx merged into its context.
func (e *Error) WithContext(ctx map[string]any) *Error {
	newErr := *e
	merged := make(map[string]any, len(e.Context)+len(ctx))
	for k, v := range e.Context {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	newErr.Context = merged
	return &newErr
}

// NewError creates an Error of the given kind.
func NewError(op, kind string, err error) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// Wrap converts err into a generic store error for op. Errors that already
// are store errors keep their kind; ErrNoSuchItem maps to KindNotFound and
// anything else to KindItemState. ErrInvalidItemState is returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidItemState) {
		return err
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	switch {
	case errors.Is(err, ErrNoSuchItem):
		return NewError(op, KindNotFound, err)
	case errors.Is(err, ErrIllegalName), errors.Is(err, ErrMalformedPath), errors.Is(err, ErrNamespace):
		return NewError(op, KindNaming, err)
	default:
		return NewError(op, KindItemState, err)
	}
}

// IsStoreError reports whether err originates from the store layer, either
// as an *Error or as one of the package sentinels.
func IsStoreError(err error) bool {
	if err == nil {
		return false
	}

	var se *Error
	if errors.As(err, &se) {
		return true
	}

	for _, sentinel := range []error{
		ErrNoSuchItem, ErrItemState, ErrInvalidItemState, ErrImpossibleState,
		ErrNoDefinition, ErrIllegalName, ErrMalformedPath, ErrNamespace,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
