package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

var (
	retrieveK        int
	retrieveDocument string
	retrieveJSON     bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Find the passages most relevant to a query",
	Long: `Ranks indexed chunks against the query.

The vector tier is used when an embedding provider is configured. When it is
unavailable or finds nothing, the fallback tier scores chunks by term overlap.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().IntVarP(&retrieveK, "k", "k", 0, "maximum number of passages (default from settings)")
	retrieveCmd.Flags().StringVarP(&retrieveDocument, "document", "d", "", "restrict results to one document")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	query := strings.Join(args, " ")
	hits, err := retrievalService.RetrieveText(cmd.Context(), query, retrieveK, retrieveDocument)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		return printJSON(cmd, hits)
	}
	return outputRetrieveTable(cmd, hits)
}

func outputRetrieveTable(cmd *cobra.Command, hits []domain.RetrievalHit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range hits {
		// Format: [N] document#position (confidence, tier)
		cmd.Printf("  [%d] %s#%d %s\n", i+1, hits[i].Chunk.DocumentID, hits[i].Chunk.Position,
			mutedStyle.Render(fmt.Sprintf("(%d%%, %s)", hits[i].Confidence, hits[i].Tier)))
		cmd.Printf("      %s\n", snippet(hits[i].Chunk.Content, 200))
		cmd.Println()
	}
	return nil
}

// snippet flattens whitespace and truncates s to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
