package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corpora-io/corpora/internal/core/domain"
)

var (
	searchLimit  int
	searchPolicy string
	searchTags   []string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed document chunks",
	Long: `Searches the vector store and returns metadata-enriched chunk hits.

Policies:
  hybrid    fuse semantic and lexical rankings (default)
  strict    require agreement between semantic and lexical results
  semantic  vector similarity only`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchPolicy, "policy", "", "search policy (hybrid, strict, semantic)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "restrict search to these tag ids")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	policy, err := domain.ParsePolicy(searchPolicy)
	if err != nil {
		return err
	}

	hits, err := retrievalService.Search(cmd.Context(), args[0], domain.SearchOptions{
		Limit:    searchLimit,
		TagScope: searchTags,
		Policy:   policy,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.VectorSearchHit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.VectorSearchHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		title := hits[i].DocumentTitle
		if title == "" {
			title = hits[i].DocumentName
		}
		if title == "" {
			title = hits[i].DocumentUID
		}

		cmd.Printf("  [%d] %s (%.4f)\n", hits[i].Rank, title, hits[i].Score)
		if len(hits[i].TagNames) > 0 {
			cmd.Printf("      Tags: %v\n", hits[i].TagNames)
		}
		snippet := hits[i].Text
		if len(snippet) > 160 {
			snippet = snippet[:160] + "..."
		}
		if snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}
