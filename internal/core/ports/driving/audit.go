package driving

import (
	"context"

	"github.com/corpora-io/corpora/internal/core/domain"
)

// AuditService reconciles the metadata, vector and content stores.
// No shared transaction exists across them; periodic audit and explicit
// repair are the only consistency mechanism.
type AuditService interface {
	// Scan classifies every document across the three stores without
	// mutating anything. Safe to cancel mid-scan.
	Scan(ctx context.Context) (domain.AuditReport, error)

	// Repair re-scans, removes each orphaned artifact from its owning
	// store and marks artifact-less completed stages failed. It never
	// reconstructs missing data. The returned report is a fresh
	// post-repair scan, expected clean; per-artifact removal failures
	// are listed in RepairFailures (no rollback).
	Repair(ctx context.Context) (domain.AuditReport, error)
}
