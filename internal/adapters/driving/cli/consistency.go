package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/consistency"
)

var consistencyJSON bool

var consistencyCmd = &cobra.Command{
	Use:   "consistency [input-file]",
	Short: "Cross-check an applicant's lending documents",
	Long: `Evaluates GST returns, income records, bank statements and identity
records for one applicant against the built-in rules and every enabled
custom rule. The input file is YAML or JSON with the keys gst_returns,
income_records, bank_statements and identities.`,
	Args: cobra.ExactArgs(1),
	RunE: runConsistency,
}

func init() {
	consistencyCmd.Flags().BoolVar(&consistencyJSON, "json", false, "output report as JSON")
	rootCmd.AddCommand(consistencyCmd)
}

func runConsistency(cmd *cobra.Command, args []string) error {
	if consistencyService == nil {
		return errors.New("consistency service not configured")
	}

	input, err := consistency.LoadInput(args[0])
	if err != nil {
		return err
	}

	report, err := consistencyService.Evaluate(cmd.Context(), *input)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if consistencyJSON {
		return printJSON(cmd, report)
	}

	cmd.Println(titleStyle.Render("Consistency report"))
	cmd.Printf("  Score: %s\n\n", scoreBadge(report.Score))

	if len(report.Flags) == 0 {
		cmd.Println(successStyle.Render("  No risk flags raised."))
	}
	for _, f := range report.Flags {
		cmd.Printf("  [%s] %s %s\n", severityBadge(f.Severity), f.Code, mutedStyle.Render("("+f.Rule+")"))
		cmd.Printf("      %s\n", f.Message)
	}

	if len(report.Metrics) > 0 {
		cmd.Println()
		cmd.Println("  Metrics:")
		names := make([]string, 0, len(report.Metrics))
		for name := range report.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cmd.Printf("    %-24s %.2f\n", name, report.Metrics[name])
		}
	}
	return nil
}
