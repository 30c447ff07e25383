// Package facet models the filterable dimensions of a trading-post query.
//
// A facet value is one of three shapes: Range, Enum or Bool. Code that needs
// to act on a value switches over the concrete type; the unexported marker
// method keeps the set closed.
package facet

import (
	"fmt"
	"slices"
	"sort"
)

// Kind identifies the shape of a facet value.
type Kind int

const (
	KindRange Kind = iota
	KindEnum
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a facet selection.
type Value interface {
	Kind() Kind
	facet()
}

// Range is an inclusive integer interval.
type Range struct {
	Min int
	Max int
}

// Enum is a set of selected options; empty means "any".
type Enum struct {
	Values []string
}

// Bool is an on/off facet.
type Bool bool

func (Range) Kind() Kind { return KindRange }
func (Enum) Kind() Kind  { return KindEnum }
func (Bool) Kind() Kind  { return KindBool }

func (Range) facet() {}
func (Enum) facet()  {}
func (Bool) facet()  {}

// Contains reports whether n falls inside the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// Has reports whether v is selected. An empty enum selects everything.
func (e Enum) Has(v string) bool {
	return len(e.Values) == 0 || slices.Contains(e.Values, v)
}

// Sorted returns a copy of the selection in lexical order.
func (e Enum) Sorted() []string {
	if len(e.Values) == 0 {
		return nil
	}
	out := slices.Clone(e.Values)
	sort.Strings(out)
	return out
}

// Equal compares two facet values by shape and content. Enum order is ignored.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Range:
		bv, ok := b.(Range)
		return ok && av == bv
	case Enum:
		bv, ok := b.(Enum)
		return ok && slices.Equal(av.Sorted(), bv.Sorted())
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	default:
		panic(fmt.Sprintf("facet: unknown value type %T", a))
	}
}

// Clone returns a copy of v that shares no memory with it.
func Clone(v Value) Value {
	if e, ok := v.(Enum); ok {
		return Enum{Values: slices.Clone(e.Values)}
	}
	return v
}

// Values is a facet selection map keyed by facet name.
type Values map[string]Value

// Clone copies the map and every enum slice in it.
func (vs Values) Clone() Values {
	if vs == nil {
		return Values{}
	}
	out := make(Values, len(vs))
	for k, v := range vs {
		out[k] = Clone(v)
	}
	return out
}
