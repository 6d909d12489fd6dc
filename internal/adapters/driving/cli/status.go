package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and index state",
	Long: `Builds the index if needed and reports what it holds: document and
chunk counts, the scoring mode, and whether embeddings came from the
cache.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := cmd.Context()
	st := retrievalService.Status(ctx)
	if !st.Built {
		if _, err := retrievalService.Rebuild(ctx); err != nil {
			return fmt.Errorf("index build failed: %w", err)
		}
		st = retrievalService.Status(ctx)
	}

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Corpus Index")
	cmd.Println("============")
	cmd.Printf("  Mode:      %s\n", st.Mode)
	cmd.Printf("  Documents: %d\n", st.DocumentCount)
	cmd.Printf("  Pages:     %d\n", st.Stats.Pages)
	cmd.Printf("  Chunks:    %d (%d layout, %d windowed)\n",
		st.ChunkCount, st.Stats.LayoutChunks, st.Stats.WindowChunks)
	cmd.Printf("  Words:     %d\n", st.Stats.Words)
	if st.Stats.EmbeddingModel != "" {
		source := "computed"
		if st.Stats.CacheHit {
			source = "cache"
		}
		cmd.Printf("  Embedding: %s (%s)\n", st.Stats.EmbeddingModel, source)
	}
	return nil
}
