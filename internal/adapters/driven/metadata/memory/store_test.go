package memory

import (
	"testing"

	"github.com/corpora-io/corpora/internal/adapters/driven/metadata/metadatatest"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

func TestStore_Contract(t *testing.T) {
	metadatatest.Run(t, func(_ *testing.T) driven.MetadataStore {
		return New()
	})
}
