package facet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantNil bool
		wantErr bool
	}{
		{name: "empty", expr: "", wantNil: true},
		{name: "blank", expr: "   ", wantNil: true},
		{name: "membership", expr: `"red" in facets.color`},
		{name: "name predicate", expr: `name.startsWith("news")`},
		{name: "syntax error", expr: `facets.color +`, wantErr: true},
		{name: "undeclared variable", expr: `color == "red"`, wantErr: true},
		{name: "not boolean", expr: `name`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
				assert.Nil(t, q)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, q)
				return
			}
			require.NotNil(t, q)
			assert.Equal(t, tt.expr, q.Expression())
		})
	}
}

func TestQuery_Matches(t *testing.T) {
	doc := Document{
		Name: "news-1",
		Facets: map[string][]string{
			"color": {"green", "red"},
			"size":  {"xl"},
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`"red" in facets.color`, true},
		{`"blue" in facets.color`, false},
		{`"red" in facets.shape`, false},
		{`has(facets.size) && facets.size.exists(s, s.startsWith("x"))`, true},
		{`has(facets.shape)`, false},
		{`name.startsWith("news") && !("draft" in facets.color)`, true},
		{`size(facets.color) == 2`, true},
		{`size(facets["shape"]) == 0`, false},
		{`facets.shape.exists(s, s == "round") || name == "news-1"`, true},
		{`!has(facets.shape)`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			ok, err := MustCompile(tt.expr).Matches(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestQuery_EvaluationError(t *testing.T) {
	_, err := MustCompile(`int(name) > 0`).Matches(Document{Name: "news-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluate")
}

func TestQuery_NilMatchesEverything(t *testing.T) {
	var q *Query

	ok, err := q.Matches(Document{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", q.Expression())
}

func TestQuery_NilFacets(t *testing.T) {
	ok, err := MustCompile(`"red" in facets.color`).Matches(Document{Name: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("facets +") })
}
