package provider

import (
	"context"
	"slices"
	"strings"

	"github.com/zero-day-ai/dataprovider/store"
)

// ChildComparator orders child entries by the facet values of their
// canonical counterparts.
//
// Order entries are applied in insertion order. For each entry the index of
// the entry's value among a child's facet values is taken (the first value
// for wildcard entries); a child without a match sorts after one with a
// match. Two children matching a wildcard entry compare by their values.
// Remaining ties put the child named like the logical parent document
// first.
type ChildComparator struct {
	ctx        context.Context
	reader     PropertyReader
	order      Filter
	parentName store.Name
}

// NewChildComparator creates a comparator for the children of the node named
// parentName. A nil reader treats every facet as absent.
func NewChildComparator(ctx context.Context, reader PropertyReader, order Filter, parentName store.Name) *ChildComparator {
	return &ChildComparator{
		ctx:        ctx,
		reader:     reader,
		order:      order.Clone(),
		parentName: parentName,
	}
}

// Compare returns a negative number when a sorts before b, a positive number
// when after, and zero otherwise.
func (c *ChildComparator) Compare(a, b store.ChildEntry) int {
	for _, o := range c.order {
		aValues, aIdx := c.index(a, o)
		bValues, bIdx := c.index(b, o)

		switch {
		case aIdx < 0 && bIdx < 0:
			continue
		case bIdx < 0:
			return -1
		case aIdx < 0:
			return 1
		}

		if o.IsWildcard() {
			if r := strings.Compare(aValues[aIdx], bValues[bIdx]); r != 0 {
				return r
			}
		}
	}

	if a.Name == b.Name {
		return 0
	}
	aDoc, bDoc := c.isDocument(a), c.isDocument(b)
	switch {
	case aDoc && !bDoc:
		return -1
	case bDoc && !aDoc:
		return 1
	}
	return 0
}

// isDocument reports whether entry is named like its logical parent. View
// identifiers carry their own parent name; other entries are checked
// against the comparator's.
func (c *ChildComparator) isDocument(entry store.ChildEntry) bool {
	parentName := c.parentName
	if v, ok := UnwrapID(entry.ID).(interface{ ParentName() store.Name }); ok && !v.ParentName().IsZero() {
		parentName = v.ParentName()
	}
	return !parentName.IsZero() && entry.Name == parentName
}

// Sort orders entries in place. Equal entries keep their relative order.
func (c *ChildComparator) Sort(entries []store.ChildEntry) {
	slices.SortStableFunc(entries, c.Compare)
}

// index returns the facet values of entry and the position of the first
// value matching o, or -1. Read failures count as absent.
func (c *ChildComparator) index(entry store.ChildEntry, o Constraint) ([]string, int) {
	if c.reader == nil || entry.ID == nil {
		return nil, -1
	}
	values, err := c.reader.Property(c.ctx, entry.ID, o.Facet)
	if err != nil || len(values) == 0 {
		return nil, -1
	}
	if o.IsWildcard() {
		return values, 0
	}
	return values, slices.Index(values, o.Value)
}
