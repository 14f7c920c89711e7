package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [doc-id]",
	Short: "Run the analysis pipeline on a document",
	Long: `Runs extraction, risk, compliance, negotiation and action analysis.

Risk and compliance run in parallel once extraction completes. A failed step
skips the steps that depend on it; the run is then reported as partial.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if orchestrator == nil {
		return errors.New("analysis pipeline not configured")
	}

	result := orchestrator.Run(cmd.Context(), args[0])
	if analyzeJSON {
		return printJSON(cmd, result)
	}
	printPipeline(cmd, result)
	if result.Status == domain.PipelineFailed {
		return fmt.Errorf("analysis failed for %s", args[0])
	}
	return nil
}

func printPipeline(cmd *cobra.Command, result *domain.PipelineResult) {
	cmd.Println(titleStyle.Render("Analysis of " + result.DocumentID))
	cmd.Printf("  Status:   %s (%s)\n", result.Status, result.Duration.Round(time.Millisecond))
	cmd.Println()

	for _, name := range domain.AllSteps {
		step := result.Step(name)
		if step == nil {
			continue
		}
		line := fmt.Sprintf("  %-12s %s", name, stepBadge(step.Status))
		if step.Defaulted {
			line += mutedStyle.Render(" (default payload)")
		}
		cmd.Println(line)
		if step.Error != "" {
			cmd.Printf("      %s\n", step.Error)
			continue
		}
		printPayload(cmd, step.Payload)
	}
}

func printPayload(cmd *cobra.Command, payload any) {
	switch p := payload.(type) {
	case domain.ExtractionPayload:
		if p.Summary != "" {
			cmd.Printf("      %s\n", snippet(p.Summary, 300))
		}
		if len(p.Parties) > 0 {
			cmd.Printf("      Parties: %v\n", p.Parties)
		}
	case domain.RiskPayload:
		cmd.Printf("      %s %s, score %.2f, %d findings\n", riskBadge(p.Level), p.Category, p.Score, len(p.Findings))
		for _, f := range p.Findings {
			cmd.Printf("      - [%s] %s\n", severityBadge(domain.Severity(f.Severity)), f.Title)
		}
	case domain.CompliancePayload:
		cmd.Printf("      %s, %d issues\n", p.Status, len(p.Issues))
		for _, is := range p.Issues {
			cmd.Printf("      - [%s] %s: %s\n", severityBadge(domain.Severity(is.Severity)), is.Regulation, is.Description)
		}
	case domain.NegotiationPayload:
		for _, pt := range p.Points {
			cmd.Printf("      - (%s) %s\n", pt.Priority, pt.Clause)
		}
	case domain.ActionPayload:
		for _, it := range p.Items {
			cmd.Printf("      - %s", it.Task)
			if it.Owner != "" {
				cmd.Printf(" [%s]", it.Owner)
			}
			if it.Due != "" {
				cmd.Printf(" due %s", it.Due)
			}
			cmd.Println()
		}
	}
}
