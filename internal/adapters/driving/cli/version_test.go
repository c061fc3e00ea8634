package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	setupTestServices(t, &stubRetrieval{}, &stubAudit{})

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "corpora version")
}

func TestSetVersion(t *testing.T) {
	prev := version
	t.Cleanup(func() { version = prev })

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)

	// Empty strings never clobber the build-time value.
	SetVersion("")
	assert.Equal(t, "1.2.3", version)
}
