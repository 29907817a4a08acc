// Package facet compiles faceted-navigation queries.
//
// A query is a CEL boolean expression evaluated against one document at a
// time. Two variables are declared:
//
//	facets  map(string, list(string))  the document's facet values
//	name    string                     the document's local name
//
// Examples:
//
//	"red" in facets.color
//	has(facets.size) && facets.size.exists(s, s.startsWith("x"))
//	name.startsWith("news") || !("draft" in facets.state)
//
// Selecting a facet the document does not carry is not an error; the
// document simply does not match.
package facet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
)

// ErrInvalidQuery indicates a query that does not compile to a boolean
// expression.
var ErrInvalidQuery = errors.New("facet: invalid query")

// Document is the view of a node a query is evaluated against.
type Document struct {
	Name   string
	Facets map[string][]string
}

// Query is a compiled facet query. A nil *Query matches every document.
// Queries are immutable and safe for concurrent use.
type Query struct {
	expr    string
	program cel.Program

	// facetNodes holds the ids of expressions that read from facets. An
	// evaluation error raised by one of them means the facet is absent.
	facetNodes map[int64]struct{}
}

var (
	envOnce sync.Once
	env     *cel.Env
	envErr  error
)

func environment() (*cel.Env, error) {
	envOnce.Do(func() {
		env, envErr = cel.NewEnv(
			cel.Variable("facets", cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
			cel.Variable("name", cel.StringType),
		)
	})
	return env, envErr
}

// Compile parses and checks expr. An empty or blank expression yields a nil
// query.
func Compile(expr string) (*Query, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	e, err := environment()
	if err != nil {
		return nil, fmt.Errorf("facet: create CEL environment: %w", err)
	}

	checked, issues := e.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, expr, issues.Err())
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q evaluates to %s, want bool", ErrInvalidQuery, expr, checked.OutputType())
	}

	prg, err := e.Program(checked)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidQuery, expr, err)
	}
	return &Query{expr: expr, program: prg, facetNodes: facetNodes(checked.NativeRep().Expr())}, nil
}

// facetNodes collects the select and index expressions rooted at the facets
// variable.
func facetNodes(root ast.Expr) map[int64]struct{} {
	nodes := make(map[int64]struct{})
	ast.PreOrderVisit(root, ast.NewExprVisitor(func(e ast.Expr) {
		if readsFacets(e) {
			nodes[e.ID()] = struct{}{}
		}
	}))
	return nodes
}

func readsFacets(e ast.Expr) bool {
	for {
		switch e.Kind() {
		case ast.IdentKind:
			return e.AsIdent() == "facets"
		case ast.SelectKind:
			e = e.AsSelect().Operand()
		case ast.CallKind:
			call := e.AsCall()
			if call.FunctionName() != operators.Index || len(call.Args()) != 2 {
				return false
			}
			e = call.Args()[0]
		default:
			return false
		}
	}
}

// MustCompile is like Compile but panics on error. It is intended for
// package-level queries in tests and examples.
func MustCompile(expr string) *Query {
	q, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return q
}

// Expression returns the source expression, "" for a nil query.
func (q *Query) Expression() string {
	if q == nil {
		return ""
	}
	return q.expr
}

// Matches evaluates the query against doc.
func (q *Query) Matches(doc Document) (bool, error) {
	if q == nil {
		return true, nil
	}

	facets := doc.Facets
	if facets == nil {
		facets = map[string][]string{}
	}

	out, _, err := q.program.Eval(map[string]any{
		"facets": facets,
		"name":   doc.Name,
	})
	if err != nil {
		if q.absentFacet(err) {
			return false, nil
		}
		return false, fmt.Errorf("facet: evaluate %q: %w", q.expr, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q produced %T", ErrInvalidQuery, q.expr, out.Value())
	}
	return b, nil
}

func (q *Query) absentFacet(err error) bool {
	var celErr *types.Err
	if !errors.As(err, &celErr) {
		return false
	}
	_, ok := q.facetNodes[celErr.NodeID()]
	return ok
}
