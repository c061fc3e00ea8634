package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentfs "github.com/corpora-io/corpora/internal/adapters/driven/content/fs"
	metamemory "github.com/corpora-io/corpora/internal/adapters/driven/metadata/memory"
	vecmemory "github.com/corpora-io/corpora/internal/adapters/driven/vector/memory"
	"github.com/corpora-io/corpora/internal/adapters/driven/vector/vectortest"
	"github.com/corpora-io/corpora/internal/core/domain"
)

type auditFixture struct {
	audit    *Audit
	metadata *metamemory.Store
	vectors  *vecmemory.Store
	blobDir  string
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()

	metadata := metamemory.New()
	vectors := vecmemory.New(vectortest.NewEmbedder())
	blobDir := t.TempDir()
	content, err := contentfs.New(blobDir)
	require.NoError(t, err)

	t.Cleanup(func() {
		metadata.Close()
		vectors.Close()
	})

	return &auditFixture{
		audit:    NewAudit(metadata, vectors, content),
		metadata: metadata,
		vectors:  vectors,
		blobDir:  blobDir,
	}
}

func (f *auditFixture) addBlob(t *testing.T, uid string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.blobDir, uid), []byte("raw bytes"), 0o600))
}

func (f *auditFixture) addRecord(t *testing.T, uid string, stages ...domain.Stage) {
	t.Helper()
	rec := &domain.DocumentRecord{UID: uid, Name: uid + ".txt"}
	for _, stage := range stages {
		rec.SetStage(stage, domain.StateDone, "")
	}
	require.NoError(t, f.metadata.Save(context.Background(), rec))
}

func (f *auditFixture) addChunks(t *testing.T, docUID string, n int) {
	t.Helper()
	chunks := make([]domain.VectorChunk, n)
	for i := range chunks {
		chunks[i] = domain.VectorChunk{
			ChunkUID:    docUID + "-chunk-" + string(rune('a'+i)),
			DocumentUID: docUID,
			Text:        "chunk content for " + docUID,
		}
	}
	_, err := f.vectors.Upsert(context.Background(), chunks)
	require.NoError(t, err)
}

func TestAudit_ScanCleanStores(t *testing.T) {
	f := newAuditFixture(t)
	f.addRecord(t, "doc-a", domain.StageRawAvailable, domain.StageVectorized)
	f.addChunks(t, "doc-a", 2)
	f.addBlob(t, "doc-a")

	report, err := f.audit.Scan(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Clean())
	assert.Equal(t, 1, report.Consistent)
	assert.False(t, report.ScannedAt.IsZero())
}

func TestAudit_ScanFindsOrphanVectors(t *testing.T) {
	f := newAuditFixture(t)
	f.addChunks(t, "doc-ghost", 2)
	f.addChunks(t, "doc-phantom", 1)

	report, err := f.audit.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-ghost", "doc-phantom"}, report.OrphanVectors)
	assert.False(t, report.Clean())
}

func TestAudit_ScanFindsOrphanContent(t *testing.T) {
	f := newAuditFixture(t)
	f.addBlob(t, "doc-stray")

	report, err := f.audit.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-stray"}, report.OrphanContent)
}

func TestAudit_ScanFindsPartiallyProcessed(t *testing.T) {
	f := newAuditFixture(t)
	// Claims vectorized and raw-available but owns no artifacts at all.
	f.addRecord(t, "doc-partial", domain.StageRawAvailable, domain.StageVectorized)

	report, err := f.audit.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, report.PartiallyProcessed, 2)
	assert.Equal(t, "doc-partial", report.PartiallyProcessed[0].DocumentUID)
	assert.Equal(t, 0, report.Consistent)
}

func TestAudit_ScanDoesNotMutate(t *testing.T) {
	f := newAuditFixture(t)
	f.addChunks(t, "doc-ghost", 1)

	_, err := f.audit.Scan(context.Background())
	require.NoError(t, err)

	counts, err := f.vectors.DocumentChunkCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts["doc-ghost"])
}

func TestAudit_RepairRemovesOrphans(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	f.addRecord(t, "doc-a", domain.StageRawAvailable, domain.StageVectorized)
	f.addChunks(t, "doc-a", 2)
	f.addBlob(t, "doc-a")
	f.addChunks(t, "doc-ghost", 3)
	f.addBlob(t, "doc-stray")

	report, err := f.audit.Repair(ctx)
	require.NoError(t, err)

	assert.True(t, report.Clean())
	assert.Empty(t, report.RepairFailures)
	assert.Equal(t, 1, report.Consistent)

	counts, err := f.vectors.DocumentChunkCounts(ctx)
	require.NoError(t, err)
	assert.NotContains(t, counts, "doc-ghost")
	assert.Equal(t, 2, counts["doc-a"])

	_, err = os.Stat(filepath.Join(f.blobDir, "doc-stray"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(f.blobDir, "doc-a"))
	assert.NoError(t, err)
}

func TestAudit_RepairMarksPartialStagesFailed(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	f.addRecord(t, "doc-partial", domain.StageVectorized)

	report, err := f.audit.Repair(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	rec, err := f.metadata.Get(ctx, "doc-partial")
	require.NoError(t, err)
	status := rec.Processing[domain.StageVectorized]
	assert.Equal(t, domain.StateFailed, status.State)
	assert.NotEmpty(t, status.Error)
}

func TestAudit_RepairIsIdempotent(t *testing.T) {
	f := newAuditFixture(t)
	ctx := context.Background()

	f.addChunks(t, "doc-ghost", 2)
	f.addBlob(t, "doc-stray")
	f.addRecord(t, "doc-partial", domain.StageVectorized)

	first, err := f.audit.Repair(ctx)
	require.NoError(t, err)
	assert.True(t, first.Clean())

	second, err := f.audit.Repair(ctx)
	require.NoError(t, err)
	assert.True(t, second.Clean())
	assert.Empty(t, second.RepairFailures)
}

func TestAudit_ScanHonorsCancellation(t *testing.T) {
	f := newAuditFixture(t)
	f.addRecord(t, "doc-a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.audit.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
