package filter

import (
	"fmt"
	"strings"
	"time"
)

// SQL compiles the predicates into a parameterized WHERE fragment against
// the documents table (aliased d) and its document_tags join table.
// An empty predicate list compiles to an empty fragment.
func SQL(preds []Predicate) (string, []any) {
	if len(preds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))

	for _, p := range preds {
		switch p.Op {
		case OpEq:
			clauses = append(clauses, p.Field.Column+" = ?")
			args = append(args, sqlValue(p.Value))

		case OpIn:
			list := p.Value.([]string)
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", p.Field.Column, placeholders(len(list))))
			for _, v := range list {
				args = append(args, v)
			}

		case OpIContains:
			// instr avoids LIKE wildcard escaping for caller-supplied text.
			clauses = append(clauses, fmt.Sprintf("instr(lower(%s), lower(?)) > 0", p.Field.Column))
			args = append(args, p.Value)

		case OpGt, OpGte, OpLt, OpLte:
			clauses = append(clauses, fmt.Sprintf("%s %s ?", p.Field.Column, comparator(p.Op)))
			args = append(args, sqlValue(p.Value))

		case OpContains:
			clauses = append(clauses, tagExists(p.Field.TagColumn, 1))
			args = append(args, p.Value)

		case OpOverlap:
			list := p.Value.([]string)
			clauses = append(clauses, tagExists(p.Field.TagColumn, len(list)))
			for _, v := range list {
				args = append(args, v)
			}
		}
	}

	return strings.Join(clauses, " AND "), args
}

func comparator(op Op) string {
	switch op {
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	default:
		return "<="
	}
}

func tagExists(column string, n int) string {
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM document_tags t WHERE t.document_uid = d.uid AND t.%s IN (%s))",
		column, placeholders(n))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sqlValue(v any) any {
	switch tv := v.(type) {
	case time.Time:
		return FormatTime(tv)
	case bool:
		if tv {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}
