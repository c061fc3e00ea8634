package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/core/domain"
)

func TestParse_DefaultOperatorIsEq(t *testing.T) {
	preds, err := Parse(map[string]any{"name": "report.pdf"})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	assert.Equal(t, "name", preds[0].Field.Name)
	assert.Equal(t, OpEq, preds[0].Op)
	assert.Equal(t, "report.pdf", preds[0].Value)
}

func TestParse_OperatorSuffix(t *testing.T) {
	preds, err := Parse(map[string]any{"file_size__gte": 1024})
	require.NoError(t, err)
	require.Len(t, preds, 1)

	assert.Equal(t, OpGte, preds[0].Op)
	assert.Equal(t, int64(1024), preds[0].Value)
}

func TestParse_DoubleUnderscoreInsideFieldName(t *testing.T) {
	// Only the last "__" splits, and only when the suffix is a known
	// operator; "source__tag" has no field named "source".
	_, err := Parse(map[string]any{"source__tag": "upload"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "source__tag", verr.Field)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse(map[string]any{"colour": "blue"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "colour", verr.Field)
	assert.Contains(t, verr.Reason, "unknown field")
}

func TestParse_TimeValues(t *testing.T) {
	preds, err := Parse(map[string]any{"created_at__gt": "2026-01-15T00:00:00Z"})
	require.NoError(t, err)

	want, _ := time.Parse(time.RFC3339, "2026-01-15T00:00:00Z")
	assert.Equal(t, want, preds[0].Value)
}

func TestParse_ValueTypeMismatches(t *testing.T) {
	cases := map[string]map[string]any{
		"string field with int":      {"name": 42},
		"bool field with string":     {"confidential": "yes"},
		"int field with fraction":    {"file_size": 12.5},
		"eq on array field":          {"tags": "tag-1"},
		"icontains on int field":     {"file_size__icontains": "10"},
		"in with empty list":         {"license__in": []string{}},
		"overlap on string field":    {"name__overlap": []string{"a"}},
		"contains on string field":   {"name__contains": "a"},
		"comparison on string field": {"name__gt": "a"},
		"time field with garbage":    {"created_at__lt": "not-a-date"},
	}
	for name, expr := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(expr)
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestParse_ListCoercion(t *testing.T) {
	// JSON-decoded expressions arrive as []any.
	preds, err := Parse(map[string]any{"license__in": []any{"MIT", "CC0"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"MIT", "CC0"}, preds[0].Value)

	// A bare string promotes to a one-element list.
	preds, err = Parse(map[string]any{"tags__overlap": "tag-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tag-1"}, preds[0].Value)
}

func TestFormatTime_LexicographicOrderIsChronological(t *testing.T) {
	earlier := time.Date(2026, 3, 1, 9, 0, 0, 5, time.UTC)
	later := time.Date(2026, 3, 1, 9, 0, 0, 10, time.UTC)

	assert.Less(t, FormatTime(earlier), FormatTime(later))

	roundTrip, err := ParseTime(FormatTime(earlier))
	require.NoError(t, err)
	assert.True(t, roundTrip.Equal(earlier))
}
