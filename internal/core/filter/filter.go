// Package filter compiles dynamic metadata filter expressions into a typed
// predicate list that each metadata store compiles into its native query
// form: in-memory evaluation or parameterized SQL.
//
// Expressions are maps of "field" or "field__operator" to value(s).
// Flattened aliases address nested record fields (a filter on "source_tag"
// matches the nested Source.SourceTag) so callers never depend on the
// record's internal shape. Unknown fields fail the query explicitly.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// Kind is the value type a field holds.
type Kind int

const (
	KindString Kind = iota
	KindStrings
	KindBool
	KindInt
	KindTime
)

// Op is a filter operator.
type Op string

const (
	OpEq        Op = "eq"
	OpIn        Op = "in"
	OpIContains Op = "icontains"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpContains  Op = "contains"
	OpOverlap   Op = "overlap"
)

// TimeLayout is the canonical storage format for timestamps. Fixed width
// and UTC so that lexicographic order equals chronological order in SQL
// comparisons.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t in the canonical storage format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a timestamp in the canonical storage format.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Field describes one filterable attribute of a DocumentRecord: its value
// kind, the SQL column it maps to, and an accessor for in-memory
// evaluation. Array fields map to a column of the document_tags join table
// instead of a documents column.
type Field struct {
	Name      string
	Kind      Kind
	Column    string
	TagColumn string
	Get       func(d *domain.DocumentRecord) any
}

var fields = map[string]Field{
	"uid":          {Name: "uid", Kind: KindString, Column: "d.uid", Get: func(d *domain.DocumentRecord) any { return d.UID }},
	"name":         {Name: "name", Kind: KindString, Column: "d.name", Get: func(d *domain.DocumentRecord) any { return d.Name }},
	"title":        {Name: "title", Kind: KindString, Column: "d.title", Get: func(d *domain.DocumentRecord) any { return d.Title }},
	"source_tag":   {Name: "source_tag", Kind: KindString, Column: "d.source_tag", Get: func(d *domain.DocumentRecord) any { return d.Source.SourceTag }},
	"source_url":   {Name: "source_url", Kind: KindString, Column: "d.source_url", Get: func(d *domain.DocumentRecord) any { return d.Source.URL }},
	"source_type":  {Name: "source_type", Kind: KindString, Column: "d.source_type", Get: func(d *domain.DocumentRecord) any { return d.Source.Type }},
	"file_name":    {Name: "file_name", Kind: KindString, Column: "d.file_name", Get: func(d *domain.DocumentRecord) any { return d.File.Name }},
	"mime_type":    {Name: "mime_type", Kind: KindString, Column: "d.mime_type", Get: func(d *domain.DocumentRecord) any { return d.File.MIMEType }},
	"file_size":    {Name: "file_size", Kind: KindInt, Column: "d.file_size", Get: func(d *domain.DocumentRecord) any { return d.File.Size }},
	"confidential": {Name: "confidential", Kind: KindBool, Column: "d.confidential", Get: func(d *domain.DocumentRecord) any { return d.Confidential }},
	"license":      {Name: "license", Kind: KindString, Column: "d.license", Get: func(d *domain.DocumentRecord) any { return d.License }},
	"created_at":   {Name: "created_at", Kind: KindTime, Column: "d.created_at", Get: func(d *domain.DocumentRecord) any { return d.CreatedAt }},
	"updated_at":   {Name: "updated_at", Kind: KindTime, Column: "d.updated_at", Get: func(d *domain.DocumentRecord) any { return d.UpdatedAt }},
	"tags":         {Name: "tags", Kind: KindStrings, TagColumn: "tag_id", Get: func(d *domain.DocumentRecord) any { return d.TagIDs() }},
	"tag_names":    {Name: "tag_names", Kind: KindStrings, TagColumn: "tag_name", Get: func(d *domain.DocumentRecord) any { return d.TagNames() }},
}

// Predicate is one compiled filter condition. Value is normalized per
// operator: string, []string, int64, bool or time.Time.
type Predicate struct {
	Field Field
	Op    Op
	Value any
}

// Parse compiles a filter expression into predicates. Entries combine with
// AND semantics. Malformed fields, operators or values return a
// *domain.ValidationError.
func Parse(expr map[string]any) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(expr))
	for key, raw := range expr {
		fieldName, op := splitKey(key)
		f, ok := fields[fieldName]
		if !ok {
			return nil, &domain.ValidationError{Field: fieldName, Op: string(op), Reason: "unknown field"}
		}
		value, err := normalize(f, op, raw)
		if err != nil {
			return nil, err
		}
		preds = append(preds, Predicate{Field: f, Op: op, Value: value})
	}
	return preds, nil
}

func splitKey(key string) (string, Op) {
	if i := strings.LastIndex(key, "__"); i >= 0 {
		suffix := Op(key[i+2:])
		switch suffix {
		case OpIn, OpIContains, OpGt, OpGte, OpLt, OpLte, OpContains, OpOverlap, OpEq:
			return key[:i], suffix
		}
	}
	return key, OpEq
}

func normalize(f Field, op Op, raw any) (any, error) {
	fail := func(reason string) (any, error) {
		return nil, &domain.ValidationError{Field: f.Name, Op: string(op), Reason: reason}
	}

	switch op {
	case OpEq:
		switch f.Kind {
		case KindString:
			s, ok := asString(raw)
			if !ok {
				return fail("expects a string value")
			}
			return s, nil
		case KindBool:
			b, ok := raw.(bool)
			if !ok {
				return fail("expects a boolean value")
			}
			return b, nil
		case KindInt:
			n, ok := asInt64(raw)
			if !ok {
				return fail("expects an integer value")
			}
			return n, nil
		case KindTime:
			t, ok := asTime(raw)
			if !ok {
				return fail("expects a timestamp value")
			}
			return t, nil
		default:
			return fail("equality does not apply to array fields, use contains or overlap")
		}

	case OpIn:
		if f.Kind != KindString {
			return fail("membership applies to string fields only")
		}
		list, ok := asStringList(raw)
		if !ok || len(list) == 0 {
			return fail("expects a non-empty list of strings")
		}
		return list, nil

	case OpIContains:
		if f.Kind != KindString {
			return fail("substring match applies to string fields only")
		}
		s, ok := asString(raw)
		if !ok {
			return fail("expects a string value")
		}
		return s, nil

	case OpGt, OpGte, OpLt, OpLte:
		switch f.Kind {
		case KindTime:
			t, ok := asTime(raw)
			if !ok {
				return fail("expects a timestamp value")
			}
			return t, nil
		case KindInt:
			n, ok := asInt64(raw)
			if !ok {
				return fail("expects an integer value")
			}
			return n, nil
		default:
			return fail("comparison applies to ordered fields only")
		}

	case OpContains:
		if f.Kind != KindStrings {
			return fail("contains applies to array fields only")
		}
		s, ok := asString(raw)
		if !ok {
			return fail("expects a single element value")
		}
		return s, nil

	case OpOverlap:
		if f.Kind != KindStrings {
			return fail("overlap applies to array fields only")
		}
		list, ok := asStringList(raw)
		if !ok || len(list) == 0 {
			return fail("expects a non-empty list")
		}
		return list, nil
	}

	return fail(fmt.Sprintf("unsupported operator %q", op))
}

func asString(raw any) (string, bool) {
	s, ok := raw.(string)
	return s, ok
}

func asStringList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	case string:
		return []string{v}, true
	}
	return nil, false
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func asTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, true
		}
		if t, err := ParseTime(v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
