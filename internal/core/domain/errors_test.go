package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	withOp := &ValidationError{Field: "file_size", Op: "icontains", Reason: "substring match applies to string fields only"}
	assert.Equal(t, "invalid filter file_size__icontains: substring match applies to string fields only", withOp.Error())

	withoutOp := &ValidationError{Field: "colour", Reason: "unknown field"}
	assert.Equal(t, "invalid filter colour: unknown field", withoutOp.Error())
}

func TestBackendUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("search: %w", &BackendUnavailableError{Backend: "qdrant", Err: cause})

	var unavailable *BackendUnavailableError
	assert.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "qdrant", unavailable.Backend)
	assert.ErrorIs(t, err, cause)
}

func TestPartialWriteError_MessageListsFailedUIDsSorted(t *testing.T) {
	err := &PartialWriteError{
		Backend: "sqlite",
		Stored:  []string{"c-0"},
		Failed: map[string]string{
			"c-2": "text is required",
			"c-1": "document_uid is required",
		},
	}

	assert.Equal(t, "backend sqlite: upsert rejected 2 of 3 chunks: c-1, c-2", err.Error())
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, PolicyHybrid, policy)

	for _, name := range []string{"hybrid", "strict", "semantic"} {
		policy, err := ParsePolicy(name)
		assert.NoError(t, err)
		assert.Equal(t, SearchPolicy(name), policy)
	}

	_, err = ParsePolicy("fuzzy")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
