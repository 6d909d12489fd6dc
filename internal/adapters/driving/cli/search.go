package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/services"
)

var (
	searchK    int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus",
	Long: `Performs hybrid search across the indexed corpus.
Combines keyword (BM25) and semantic (embedding) scores; when no
embedding backend is reachable it falls back to keyword scoring alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", 0, "result count (0 uses the configured top_k)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := cmd.Context()
	hits, err := retrievalService.Search(ctx, args[0], searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	mode := retrievalService.Status(ctx).Mode

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits, mode)
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.Hit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.Hit, mode domain.Mode) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s):\n", mode)
	cmd.Println()
	for i, h := range hits {
		cmd.Printf("  [%d] %s, p.%s (%.2f)\n", i+1, services.Label(h.Chunk), h.Position, h.Score)
		if snippet := services.Snippet(h.Text); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}
