package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

var (
	ingestOwner   string
	ingestParent  string
	ingestFolder  string
	ingestMIME    string
	ingestAnalyze bool
	ingestJSON    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document",
	Long: `Parses, classifies, chunks and indexes a document.

Use --parent to store the upload as a new version of an existing document;
the parent is marked superseded. Use --analyze to run the analysis pipeline
once ingestion finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner ID for the document")
	ingestCmd.Flags().StringVar(&ingestParent, "parent", "", "document ID this upload replaces")
	ingestCmd.Flags().StringVar(&ingestFolder, "folder", "", "folder ID to group the document under")
	ingestCmd.Flags().StringVar(&ingestMIME, "mime", "", "content type (detected from the file name when empty)")
	ingestCmd.Flags().BoolVar(&ingestAnalyze, "analyze", false, "run the analysis pipeline after ingestion")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errors.New("ingestion service not configured")
	}

	req, err := buildIngestRequest(args[0], ingestOwner, ingestMIME)
	if err != nil {
		return err
	}
	req.ParentDocumentID = optional(ingestParent)
	req.FolderID = optional(ingestFolder)

	result, err := ingestionService.Ingest(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		out := map[string]any{
			"document_id": result.Document.ID,
			"filename":    result.Document.Filename,
			"risk_level":  result.Document.RiskLevel,
			"category":    result.Document.RiskCategory,
			"version":     result.Document.VersionNumber,
			"num_chunks":  result.NumChunks,
			"warnings":    result.Warnings,
		}
		if ingestAnalyze && orchestrator != nil {
			out["pipeline"] = orchestrator.Run(cmd.Context(), result.Document.ID)
		}
		return printJSON(cmd, out)
	}

	doc := result.Document
	cmd.Println(titleStyle.Render("Ingested " + doc.Filename))
	cmd.Printf("  ID:         %s\n", doc.ID)
	cmd.Printf("  Version:    %d\n", doc.VersionNumber)
	cmd.Printf("  Risk:       %s (%s, %d%%)\n", riskBadge(doc.RiskLevel), doc.RiskCategory,
		int(doc.RiskConfidence*100+0.5))
	if doc.RiskExplanation != "" {
		cmd.Printf("  Why:        %s\n", doc.RiskExplanation)
	}
	cmd.Printf("  Chunks:     %d\n", result.NumChunks)
	for _, w := range result.Warnings {
		cmd.Println(warningStyle.Render("  Warning: " + w))
	}

	if ingestAnalyze {
		if orchestrator == nil {
			return errors.New("analysis pipeline not configured")
		}
		cmd.Println()
		printPipeline(cmd, orchestrator.Run(cmd.Context(), doc.ID))
	}
	return nil
}

// buildIngestRequest reads path into an ingest request.
func buildIngestRequest(path, owner, mimeType string) (driving.IngestRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return driving.IngestRequest{}, fmt.Errorf("read %s: %w", path, err)
	}
	return driving.IngestRequest{
		OwnerID:  owner,
		Filename: filepath.Base(path),
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
