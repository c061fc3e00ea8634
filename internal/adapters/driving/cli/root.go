// Package cli provides the command-line driving adapter. Commands talk
// to the core services exclusively through the driving ports.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corpora-io/corpora/internal/core/ports/driving"
	"github.com/corpora-io/corpora/internal/logger"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	verbose    bool
	configPath string

	retrievalService driving.RetrievalService
	auditService     driving.AuditService

	bootstrap func(configPath string) (Services, func(), error)
	cleanup   func()
)

// Services holds the driving ports the commands depend on.
type Services struct {
	Retrieval driving.RetrievalService
	Audit     driving.AuditService
}

// SetServices injects the core services before Execute runs.
func SetServices(s Services) {
	retrievalService = s.Retrieval
	auditService = s.Audit
}

// SetBootstrap registers a wiring function that runs after flag parsing,
// so the --config flag is available when the stores open. The returned
// closer runs after the command finishes.
func SetBootstrap(fn func(configPath string) (Services, func(), error)) {
	bootstrap = fn
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// ConfigPath returns the --config flag value, empty when unset.
func ConfigPath() string { return configPath }

var rootCmd = &cobra.Command{
	Use:   "corpora",
	Short: "Knowledge retrieval over vector and metadata stores",
	Long: `Corpora indexes document chunks into a vector store alongside a
metadata catalog and retrieves them with hybrid, strict, or semantic
search. The audit command checks the stores against each other and can
repair inconsistencies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)

		// The version command needs no stores.
		if cmd.Name() == "version" || bootstrap == nil {
			return nil
		}

		services, closer, err := bootstrap(configPath)
		if err != nil {
			return err
		}
		SetServices(services)
		cleanup = closer
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
