package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
	"github.com/corpora-io/corpora/internal/core/ports/driving"
	"github.com/corpora-io/corpora/internal/logger"
)

// Ensure Audit implements the interface.
var _ driving.AuditService = (*Audit)(nil)

// Audit scans the metadata, vector and content stores for divergence and
// heals it on explicit request. Reads never repair: automatic self-healing
// on read would hide data-loss bugs.
type Audit struct {
	metadata driven.MetadataStore
	vectors  driven.VectorStore
	content  driven.ContentStore
}

// NewAudit creates the audit service.
func NewAudit(metadata driven.MetadataStore, vectors driven.VectorStore, content driven.ContentStore) *Audit {
	return &Audit{metadata: metadata, vectors: vectors, content: content}
}

// Scan implements driving.AuditService. It reads all three stores without
// mutating anything and may be cancelled mid-scan.
func (a *Audit) Scan(ctx context.Context) (domain.AuditReport, error) {
	logger.Section("Consistency Scan")
	report := domain.AuditReport{ScannedAt: time.Now().UTC()}

	records, err := a.metadata.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list metadata records: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	chunkCounts, err := a.vectors.DocumentChunkCounts(ctx)
	if err != nil {
		return report, fmt.Errorf("count vector chunks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	blobs, err := a.content.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list content blobs: %w", err)
	}

	known := make(map[string]bool, len(records))
	for i := range records {
		known[records[i].UID] = true
	}

	// Vector chunks whose owning document has no metadata record.
	for uid := range chunkCounts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !known[uid] {
			report.OrphanVectors = append(report.OrphanVectors, uid)
		}
	}
	sort.Strings(report.OrphanVectors)

	// Content blobs whose owning document has no metadata record.
	hasBlob := make(map[string]bool, len(blobs))
	for _, uid := range blobs {
		hasBlob[uid] = true
		if !known[uid] {
			report.OrphanContent = append(report.OrphanContent, uid)
		}
	}
	sort.Strings(report.OrphanContent)

	// Metadata claiming completed stages without artifacts.
	for i := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rec := &records[i]
		consistent := true
		if rec.StageDone(domain.StageVectorized) && chunkCounts[rec.UID] == 0 {
			report.PartiallyProcessed = append(report.PartiallyProcessed,
				domain.PartialFinding{DocumentUID: rec.UID, Stage: domain.StageVectorized})
			consistent = false
		}
		if rec.StageDone(domain.StageRawAvailable) && !hasBlob[rec.UID] {
			report.PartiallyProcessed = append(report.PartiallyProcessed,
				domain.PartialFinding{DocumentUID: rec.UID, Stage: domain.StageRawAvailable})
			consistent = false
		}
		if consistent {
			report.Consistent++
		}
	}

	logger.Info("Scan: %d consistent, %d orphan-vector, %d orphan-content, %d partially-processed",
		report.Consistent, len(report.OrphanVectors), len(report.OrphanContent),
		len(report.PartiallyProcessed))

	return report, nil
}

// Repair implements driving.AuditService. It operates store by store: no
// shared transaction exists, so a mid-run failure leaves earlier removals
// in place and is reported as a partial success, never rolled back.
// Running it twice in a row yields zero findings the second time.
func (a *Audit) Repair(ctx context.Context) (domain.AuditReport, error) {
	findings, err := a.Scan(ctx)
	if err != nil {
		return findings, err
	}

	logger.Section("Repair")
	var failures []domain.RepairFailure

	for _, uid := range findings.OrphanVectors {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if err := a.vectors.DeleteForDocument(ctx, uid); err != nil {
			logger.Warn("Repair: delete chunks for %s failed: %v", uid, err)
			failures = append(failures, domain.RepairFailure{
				DocumentUID: uid, Store: "vector", Reason: err.Error(),
			})
		} else {
			logger.Debug("Repair: removed orphan chunks for %s", uid)
		}
	}

	for _, uid := range findings.OrphanContent {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if err := a.content.Delete(ctx, uid); err != nil {
			logger.Warn("Repair: delete blob for %s failed: %v", uid, err)
			failures = append(failures, domain.RepairFailure{
				DocumentUID: uid, Store: "content", Reason: err.Error(),
			})
		} else {
			logger.Debug("Repair: removed orphan blob for %s", uid)
		}
	}

	// The missing artifacts cannot be reconstructed; downgrade the stage
	// so the record stops claiming them.
	for _, finding := range findings.PartiallyProcessed {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if err := a.failStage(ctx, finding); err != nil {
			logger.Warn("Repair: downgrade %s stage %s failed: %v",
				finding.DocumentUID, finding.Stage, err)
			failures = append(failures, domain.RepairFailure{
				DocumentUID: finding.DocumentUID, Store: "metadata", Reason: err.Error(),
			})
		}
	}

	report, err := a.Scan(ctx)
	if err != nil {
		return report, err
	}
	report.RepairFailures = failures
	return report, nil
}

func (a *Audit) failStage(ctx context.Context, finding domain.PartialFinding) error {
	rec, err := a.metadata.Get(ctx, finding.DocumentUID)
	if err != nil {
		return err
	}
	rec.SetStage(finding.Stage, domain.StateFailed, "no stored artifacts found during repair")
	return a.metadata.Save(ctx, rec)
}
