package domain

import "time"

// PartialFinding flags a document whose metadata marks a stage done while
// the corresponding store holds no artifacts.
type PartialFinding struct {
	DocumentUID string `json:"document_uid"`
	Stage       Stage  `json:"stage"`
}

// RepairFailure records one artifact the repair pass failed to remove.
// Already-removed artifacts stay removed; there is no rollback.
type RepairFailure struct {
	DocumentUID string `json:"document_uid"`
	Store       string `json:"store"`
	Reason      string `json:"reason"`
}

// AuditReport is the outcome of one consistency scan across the metadata,
// vector and content stores. Findings are derived, never persisted; each
// run recomputes them from scratch.
type AuditReport struct {
	ScannedAt time.Time `json:"scanned_at"`

	// Consistent counts documents with all three facets in agreement.
	Consistent int `json:"consistent"`

	// OrphanVectors lists document UIDs that own vector chunks but have
	// no metadata record.
	OrphanVectors []string `json:"orphan_vectors,omitempty"`

	// OrphanContent lists document UIDs that own a content blob but have
	// no metadata record.
	OrphanContent []string `json:"orphan_content,omitempty"`

	// PartiallyProcessed lists documents whose metadata claims a stage
	// completed while the owning store has no artifacts.
	PartiallyProcessed []PartialFinding `json:"partially_processed,omitempty"`

	// RepairFailures is populated only by a repair run, one entry per
	// artifact that could not be removed.
	RepairFailures []RepairFailure `json:"repair_failures,omitempty"`
}

// Findings returns the total number of inconsistencies in the report.
func (r *AuditReport) Findings() int {
	return len(r.OrphanVectors) + len(r.OrphanContent) + len(r.PartiallyProcessed)
}

// Clean reports whether the scan found no inconsistencies.
func (r *AuditReport) Clean() bool {
	return r.Findings() == 0
}
