package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/consistency"
	"github.com/custodia-labs/aegis/internal/core/domain"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage custom consistency rules",
	Long: `Custom rules compare a consistency metric against a threshold and raise a
flag when the comparison holds. Available metrics: ` + strings.Join(consistency.KnownMetrics(), ", ") + `.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List custom rules",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add [id] [metric] [operator] [threshold]",
	Short: "Add a custom rule",
	Long: `Add a rule such as:

  aegis rules add big-gap revenue_pct_diff gt 40 --severity high --code REVENUE_GAP

Operators: gt, gte, lt, lte.`,
	Args: cobra.ExactArgs(4),
	RunE: runRulesAdd,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import rules from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(cmd, args[0], true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable [id]",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(cmd, args[0], false)
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRemove,
}

var (
	ruleName     string
	ruleCode     string
	ruleSeverity string
	ruleMessage  string
	ruleDisabled bool
)

func init() {
	rulesAddCmd.Flags().StringVar(&ruleName, "name", "", "display name")
	rulesAddCmd.Flags().StringVar(&ruleCode, "code", "", "flag code (defaults to the upper-cased ID)")
	rulesAddCmd.Flags().StringVar(&ruleSeverity, "severity", string(domain.SeverityMedium), "low, medium, high or critical")
	rulesAddCmd.Flags().StringVar(&ruleMessage, "message", "", "flag message")
	rulesAddCmd.Flags().BoolVar(&ruleDisabled, "disabled", false, "store the rule disabled")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesCmd.AddCommand(rulesDisableCmd)
	rulesCmd.AddCommand(rulesRemoveCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	if ruleService == nil {
		return errors.New("rule service not configured")
	}

	rules, err := ruleService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list rules: %w", err)
	}
	if len(rules) == 0 {
		cmd.Println("No custom rules configured.")
		return nil
	}

	for i := range rules {
		r := &rules[i]
		state := successStyle.Render("enabled")
		if !r.Enabled {
			state = mutedStyle.Render("disabled")
		}
		cmd.Printf("  %s  %s %s %g  [%s] %s\n", r.ID, r.Metric, r.Operator, r.Threshold,
			severityBadge(r.Severity), state)
		if r.Message != "" {
			cmd.Printf("      %s\n", r.Message)
		}
	}
	cmd.Printf("\nTotal: %d rules\n", len(rules))
	return nil
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	if ruleService == nil {
		return errors.New("rule service not configured")
	}

	threshold, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid threshold %q: %w", args[3], err)
	}

	code := ruleCode
	if code == "" {
		code = strings.ToUpper(strings.ReplaceAll(args[0], "-", "_"))
	}

	rule, err := ruleService.Add(cmd.Context(), domain.CustomRule{
		ID:        args[0],
		Name:      ruleName,
		Code:      code,
		Metric:    args[1],
		Operator:  domain.RuleOperator(args[2]),
		Threshold: threshold,
		Severity:  domain.Severity(ruleSeverity),
		Message:   ruleMessage,
		Enabled:   !ruleDisabled,
	})
	if err != nil {
		return fmt.Errorf("failed to add rule: %w", err)
	}

	cmd.Printf("Rule %s added.\n", rule.ID)
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	if ruleService == nil {
		return errors.New("rule service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	rules, err := ruleService.Import(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("failed to import rules: %w", err)
	}

	cmd.Printf("Imported %d rules.\n", len(rules))
	return nil
}

func setRuleEnabled(cmd *cobra.Command, id string, enabled bool) error {
	if ruleService == nil {
		return errors.New("rule service not configured")
	}

	if err := ruleService.SetEnabled(cmd.Context(), id, enabled); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	cmd.Printf("Rule %s %s.\n", id, state)
	return nil
}

func runRulesRemove(cmd *cobra.Command, args []string) error {
	if ruleService == nil {
		return errors.New("rule service not configured")
	}

	if err := ruleService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove rule: %w", err)
	}

	cmd.Printf("Rule %s removed.\n", args[0])
	return nil
}
