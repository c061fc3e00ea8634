package filter

import (
	"strings"
	"time"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// Match evaluates the predicates against a record in memory. Predicates
// combine with AND semantics; list-valued operators use any-element-matches
// semantics.
func Match(preds []Predicate, d *domain.DocumentRecord) bool {
	for _, p := range preds {
		if !matchOne(p, d) {
			return false
		}
	}
	return true
}

func matchOne(p Predicate, d *domain.DocumentRecord) bool {
	got := p.Field.Get(d)

	switch p.Op {
	case OpEq:
		switch want := p.Value.(type) {
		case string:
			return got.(string) == want
		case bool:
			return got.(bool) == want
		case int64:
			return got.(int64) == want
		case time.Time:
			return got.(time.Time).Equal(want)
		}

	case OpIn:
		val := got.(string)
		for _, accepted := range p.Value.([]string) {
			if val == accepted {
				return true
			}
		}
		return false

	case OpIContains:
		return strings.Contains(strings.ToLower(got.(string)), strings.ToLower(p.Value.(string)))

	case OpGt, OpGte, OpLt, OpLte:
		return compare(p.Op, got, p.Value)

	case OpContains:
		want := p.Value.(string)
		for _, el := range got.([]string) {
			if el == want {
				return true
			}
		}
		return false

	case OpOverlap:
		elems := got.([]string)
		for _, want := range p.Value.([]string) {
			for _, el := range elems {
				if el == want {
					return true
				}
			}
		}
		return false
	}

	return false
}

func compare(op Op, got, want any) bool {
	switch w := want.(type) {
	case time.Time:
		g := got.(time.Time)
		switch op {
		case OpGt:
			return g.After(w)
		case OpGte:
			return g.After(w) || g.Equal(w)
		case OpLt:
			return g.Before(w)
		case OpLte:
			return g.Before(w) || g.Equal(w)
		}
	case int64:
		g := got.(int64)
		switch op {
		case OpGt:
			return g > w
		case OpGte:
			return g >= w
		case OpLt:
			return g < w
		case OpLte:
			return g <= w
		}
	}
	return false
}
