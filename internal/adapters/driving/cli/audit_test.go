package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-io/corpora/internal/core/domain"
)

func TestAuditCmd_Use(t *testing.T) {
	assert.Equal(t, "audit", auditCmd.Use)
}

func TestAuditCmd_ScanByDefault(t *testing.T) {
	audit := &stubAudit{report: domain.AuditReport{
		ScannedAt:  time.Now().UTC(),
		Consistent: 3,
	}}
	setupTestServices(t, &stubRetrieval{}, audit)

	out, err := execute(t, "audit")
	require.NoError(t, err)

	assert.True(t, audit.scanCalled)
	assert.False(t, audit.repairCalled)
	assert.Contains(t, out, "Consistent documents: 3")
	assert.Contains(t, out, "No inconsistencies found.")
}

func TestAuditCmd_RepairFlag(t *testing.T) {
	audit := &stubAudit{report: domain.AuditReport{ScannedAt: time.Now().UTC()}}
	setupTestServices(t, &stubRetrieval{}, audit)

	_, err := execute(t, "audit", "--repair")
	require.NoError(t, err)

	assert.True(t, audit.repairCalled)
	assert.False(t, audit.scanCalled)
}

func TestAuditCmd_ReportsFindings(t *testing.T) {
	audit := &stubAudit{report: domain.AuditReport{
		ScannedAt:     time.Now().UTC(),
		OrphanVectors: []string{"doc-ghost"},
		OrphanContent: []string{"doc-stray"},
		PartiallyProcessed: []domain.PartialFinding{
			{DocumentUID: "doc-partial", Stage: domain.StageVectorized},
		},
		RepairFailures: []domain.RepairFailure{
			{DocumentUID: "doc-stuck", Store: "vector", Reason: "backend qdrant unavailable"},
		},
	}}
	setupTestServices(t, &stubRetrieval{}, audit)

	out, err := execute(t, "audit")
	require.NoError(t, err)

	assert.Contains(t, out, "doc-ghost")
	assert.Contains(t, out, "doc-stray")
	assert.Contains(t, out, "doc-partial (stage vectorized)")
	assert.Contains(t, out, "doc-stuck [vector]: backend qdrant unavailable")
}

func TestAuditCmd_JSONOutput(t *testing.T) {
	audit := &stubAudit{report: domain.AuditReport{
		ScannedAt:     time.Now().UTC(),
		OrphanVectors: []string{"doc-ghost"},
	}}
	setupTestServices(t, &stubRetrieval{}, audit)

	out, err := execute(t, "audit", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"doc-ghost"`)
}
