package provider

import (
	"sync"

	"github.com/zero-day-ai/dataprovider/facet"
)

// Context carries the optional parameter threaded through population calls.
// The facet query derived from the parameter is compiled on first use.
//
// A nil *Context is valid and behaves as a context without parameter.
// Contexts are shared by reference and safe for concurrent use.
type Context struct {
	parameter string

	once     sync.Once
	query    *facet.Query
	queryErr error
}

// NewContext creates a context for parameter. An empty parameter is allowed.
func NewContext(parameter string) *Context {
	return &Context{parameter: parameter}
}

// Parameter returns the parameter string.
func (c *Context) Parameter() string {
	if c == nil {
		return ""
	}
	return c.parameter
}

// HasParameter reports whether the context carries a non-empty parameter.
func (c *Context) HasParameter() bool {
	return c.Parameter() != ""
}

// Query returns the facet query compiled from the parameter. The result is
// computed once; a nil query matches everything.
func (c *Context) Query() (*facet.Query, error) {
	if c == nil || c.parameter == "" {
		return nil, nil
	}
	c.once.Do(func() {
		c.query, c.queryErr = facet.Compile(c.parameter)
	})
	return c.query, c.queryErr
}

// Equal reports whether c and other have the same effect, that is the same
// parameter.
func (c *Context) Equal(other *Context) bool {
	return c.Parameter() == other.Parameter()
}

func (c *Context) String() string {
	if c == nil {
		return "<nil>"
	}
	return "context(" + c.parameter + ")"
}

// ContextOf returns the context attached to id, or nil.
func ContextOf(id any) *Context {
	if c, ok := id.(interface{ Context() *Context }); ok {
		return c.Context()
	}
	return nil
}
