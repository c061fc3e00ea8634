package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpora-io/corpora/internal/core/domain"
)

var (
	auditRepair bool
	auditJSON   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check vector, metadata, and content stores for consistency",
	Long: `Scans the stores against each other and reports orphaned vectors,
orphaned content blobs, and partially processed documents. With --repair,
removes orphaned artifacts and marks stuck documents as failed, then
reports the post-repair state.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditRepair, "repair", false, "repair inconsistencies after scanning")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	if auditService == nil {
		return errors.New("audit service not configured")
	}

	var report domain.AuditReport
	var err error
	if auditRepair {
		report, err = auditService.Repair(cmd.Context())
	} else {
		report, err = auditService.Scan(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if auditJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputAuditReport(cmd, report)
}

func outputAuditReport(cmd *cobra.Command, report domain.AuditReport) error {
	cmd.Printf("Scanned at %s\n", report.ScannedAt.Format("2006-01-02 15:04:05 MST"))
	cmd.Printf("Consistent documents: %d\n", report.Consistent)

	if report.Clean() {
		cmd.Println("No inconsistencies found.")
		return nil
	}

	if len(report.OrphanVectors) > 0 {
		cmd.Printf("Orphaned vectors (%d):\n", len(report.OrphanVectors))
		for _, uid := range report.OrphanVectors {
			cmd.Printf("  %s\n", uid)
		}
	}
	if len(report.OrphanContent) > 0 {
		cmd.Printf("Orphaned content blobs (%d):\n", len(report.OrphanContent))
		for _, uid := range report.OrphanContent {
			cmd.Printf("  %s\n", uid)
		}
	}
	if len(report.PartiallyProcessed) > 0 {
		cmd.Printf("Partially processed documents (%d):\n", len(report.PartiallyProcessed))
		for _, finding := range report.PartiallyProcessed {
			cmd.Printf("  %s (stage %s)\n", finding.DocumentUID, finding.Stage)
		}
	}
	if len(report.RepairFailures) > 0 {
		cmd.Printf("Repair failures (%d):\n", len(report.RepairFailures))
		for _, failure := range report.RepairFailures {
			cmd.Printf("  %s [%s]: %s\n", failure.DocumentUID, failure.Store, failure.Reason)
		}
	}
	return nil
}
