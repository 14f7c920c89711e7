package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, view, trace versions of, or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print document content",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var documentDetailsCmd = &cobra.Command{
	Use:   "details [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDetails,
}

var documentVersionsCmd = &cobra.Command{
	Use:   "versions [doc-id]",
	Short: "Show the version chain of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentVersions,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its chunks and vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentOwner string

func init() {
	documentListCmd.Flags().StringVar(&documentOwner, "owner", "", "only documents of this owner")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	documentCmd.AddCommand(documentDetailsCmd)
	documentCmd.AddCommand(documentVersionsCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context(), documentOwner)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		line := fmt.Sprintf("  %s  %-30s v%d  %s", d.ID, d.Filename, d.VersionNumber, riskBadge(d.RiskLevel))
		if d.IsSuperseded() {
			line += mutedStyle.Render(" superseded")
		}
		cmd.Println(line)
	}

	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename: %s\n", doc.Filename)
	if doc.OwnerID != "" {
		cmd.Printf("  Owner:    %s\n", doc.OwnerID)
	}
	cmd.Printf("  Risk:     %s (%s)\n", riskBadge(doc.RiskLevel), doc.RiskCategory)
	cmd.Printf("  Version:  %d\n", doc.VersionNumber)
	if doc.ParentDocumentID != nil {
		cmd.Printf("  Parent:   %s\n", *doc.ParentDocumentID)
	}
	if doc.SupersededAt != nil {
		cmd.Printf("  Superseded: %s\n", doc.SupersededAt.Format(timeFormat))
	}
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format(timeFormat))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format(timeFormat))
	for _, r := range doc.Recommendations {
		cmd.Printf("  - %s\n", r)
	}

	return nil
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	content, err := documentService.GetContent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(content)
	return nil
}

func runDocumentDetails(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	details, err := documentService.GetDetails(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document details: %w", err)
	}

	cmd.Printf("Document Details: %s\n\n", details.ID)
	cmd.Printf("  Filename:    %s\n", details.Filename)
	cmd.Printf("  Type:        %s\n", details.MIMEType)
	cmd.Printf("  Risk:        %s %s (%d%%)\n", riskBadge(details.RiskLevel), details.RiskCategory, details.RiskConfidence)
	cmd.Printf("  Version:     %d\n", details.VersionNumber)
	cmd.Printf("  Superseded:  %t\n", details.Superseded)
	cmd.Printf("  Pages:       %d\n", details.PageCount)
	cmd.Printf("  Chunks:      %d\n", details.ChunkCount)
	cmd.Printf("  Created:     %s\n", details.CreatedAt.Format(timeFormat))
	cmd.Printf("  Updated:     %s\n", details.UpdatedAt.Format(timeFormat))

	if len(details.Metadata) > 0 {
		keys := make([]string, 0, len(details.Metadata))
		for k := range details.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Println("\n  Metadata:")
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, details.Metadata[k])
		}
	}

	return nil
}

func runDocumentVersions(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chain, err := documentService.Versions(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get versions: %w", err)
	}

	for i := range chain {
		d := &chain[i]
		marker := " "
		if d.ID == args[0] {
			marker = "*"
		}
		state := successStyle.Render("current")
		if d.IsSuperseded() {
			state = mutedStyle.Render("superseded " + d.SupersededAt.Format(timeFormat))
		}
		cmd.Printf("%s v%d  %s  %s  %s\n", marker, d.VersionNumber, d.ID, d.Filename, state)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}
