package store

import (
	"github.com/eumtools/siteprov-server/internal/domain"
)

// FilterOp identifies a filter predicate.
type FilterOp int

// Supported filter operations. The set covers exactly what the provisioning
// queries need: null checks, one inequality, and an equality disjunction.
const (
	OpIsNotNull FilterOp = iota
	OpNeq
	OpEqAny
)

// Filter is one predicate over a named field. Filters in a Query are
// conjoined.
type Filter struct {
	Op     FilterOp
	Field  string
	Values []string
}

// IsNotNull matches items whose field is present and non-blank.
func IsNotNull(field string) Filter {
	return Filter{Op: OpIsNotNull, Field: field}
}

// Neq matches items whose field differs from the value. Absent fields pass.
func Neq(field, value string) Filter {
	return Filter{Op: OpNeq, Field: field, Values: []string{value}}
}

// EqAny matches items whose field equals any of the given values.
func EqAny(field string, values ...string) Filter {
	return Filter{Op: OpEqAny, Field: field, Values: values}
}

// Query is a paged structured query: conjoined filters, an ascending order
// key, a page size cap, and an opaque cursor from the previous page.
type Query struct {
	Filters  []Filter
	OrderBy  string // field name, ascending; empty orders by item id
	PageSize int
	Cursor   string
}

// Matches evaluates the query's filters against one item. Both backends
// share this so filter semantics cannot drift between them.
func (q Query) Matches(it domain.Item) bool {
	for _, f := range q.Filters {
		if !f.matches(it) {
			return false
		}
	}
	return true
}

func (f Filter) matches(it domain.Item) bool {
	val, present := it.String(f.Field)

	switch f.Op {
	case OpIsNotNull:
		return present && val != ""
	case OpNeq:
		if !present {
			return true
		}
		return val != f.Values[0]
	case OpEqAny:
		if !present {
			return false
		}
		for _, want := range f.Values {
			if val == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}
