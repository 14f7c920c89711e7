package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

const timeFormat = "2006-01-02 15:04:05"

var governorCmd = &cobra.Command{
	Use:   "governor",
	Short: "Consent, rate limiting, retention and data-subject rights",
	Long: `Every call to the external data-fetch integration goes through the governor.
It checks the transfer allow-list, enforces the sliding-window rate limit and
writes the consent log before any data leaves. It also sweeps expired data and
tracks data-subject rights requests against their 30-day deadline.`,
}

var governorFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch external data for a subject",
	Args:  cobra.NoArgs,
	RunE:  runGovernorFetch,
}

var governorSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cached data and due loan applications",
	Args:  cobra.NoArgs,
	RunE:  runGovernorSweep,
}

var governorConsentCmd = &cobra.Command{
	Use:   "consent [subject-id]",
	Short: "Show the consent log for a subject",
	Args:  cobra.ExactArgs(1),
	RunE:  runGovernorConsent,
}

var governorTransferCmd = &cobra.Command{
	Use:   "transfer [country-code]",
	Short: "Check whether data may be sent to a country",
	Args:  cobra.ExactArgs(1),
	RunE:  runGovernorTransfer,
}

var governorQuotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show fetches remaining in the current window",
	Args:  cobra.NoArgs,
	RunE:  runGovernorQuota,
}

var rightsCmd = &cobra.Command{
	Use:   "rights",
	Short: "Manage data-subject rights requests",
}

var rightsOpenCmd = &cobra.Command{
	Use:   "open [subject-id] [access|correction|erasure]",
	Short: "Open a rights request",
	Args:  cobra.ExactArgs(2),
	RunE:  runRightsOpen,
}

var rightsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rights requests",
	Args:  cobra.NoArgs,
	RunE:  runRightsList,
}

var rightsAdvanceCmd = &cobra.Command{
	Use:   "advance [request-id] [in_progress|completed|rejected]",
	Short: "Move a request to its next state",
	Args:  cobra.ExactArgs(2),
	RunE:  runRightsAdvance,
}

var rightsEraseCmd = &cobra.Command{
	Use:   "erase [request-id]",
	Short: "Fulfil an erasure request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRightsErase,
}

var rightsAccessCmd = &cobra.Command{
	Use:   "access [request-id]",
	Short: "Fulfil an access request and print the report",
	Args:  cobra.ExactArgs(1),
	RunE:  runRightsAccess,
}

var (
	fetchConsentID string
	fetchSubjectID string
	fetchPurpose   string
	fetchTypes     []string
	fetchCountry   string
	governorJSON   bool
	rightsOverdue  bool
	rightsMessage  string
)

func init() {
	governorFetchCmd.Flags().StringVar(&fetchConsentID, "consent", "", "consent ID presented to the integration")
	governorFetchCmd.Flags().StringVar(&fetchSubjectID, "subject", "", "data subject ID")
	governorFetchCmd.Flags().StringVar(&fetchPurpose, "purpose", "", "why the data is requested")
	governorFetchCmd.Flags().StringSliceVar(&fetchTypes, "types", nil, "data types to fetch (comma separated)")
	governorFetchCmd.Flags().StringVar(&fetchCountry, "country", "", "destination country code")
	for _, c := range []*cobra.Command{governorFetchCmd, governorSweepCmd, governorConsentCmd, rightsAccessCmd} {
		c.Flags().BoolVar(&governorJSON, "json", false, "output as JSON")
	}
	rightsListCmd.Flags().BoolVar(&rightsOverdue, "overdue", false, "only open requests past their deadline")
	rightsAdvanceCmd.Flags().StringVarP(&rightsMessage, "message", "m", "", "note recorded on the request")

	rightsCmd.AddCommand(rightsOpenCmd)
	rightsCmd.AddCommand(rightsListCmd)
	rightsCmd.AddCommand(rightsAdvanceCmd)
	rightsCmd.AddCommand(rightsEraseCmd)
	rightsCmd.AddCommand(rightsAccessCmd)

	governorCmd.AddCommand(governorFetchCmd)
	governorCmd.AddCommand(governorSweepCmd)
	governorCmd.AddCommand(governorConsentCmd)
	governorCmd.AddCommand(governorTransferCmd)
	governorCmd.AddCommand(governorQuotaCmd)
	governorCmd.AddCommand(rightsCmd)
	rootCmd.AddCommand(governorCmd)
}

func runGovernorFetch(cmd *cobra.Command, _ []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	result, err := governor.Fetch(cmd.Context(), domain.FetchRequest{
		ConsentID:   fetchConsentID,
		SubjectID:   fetchSubjectID,
		Purpose:     fetchPurpose,
		DataTypes:   fetchTypes,
		CountryCode: fetchCountry,
	})
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if governorJSON {
		return printJSON(cmd, result)
	}

	status := successStyle.Render("complete")
	if !result.Success {
		status = warningStyle.Render("partial")
	}
	cmd.Printf("Fetch %s: %s\n", result.ConsentID, status)
	for _, dt := range fetchTypes {
		r := result.PerType[dt]
		if r.Success {
			cmd.Printf("  %-16s %s (%d bytes)\n", dt, successStyle.Render("ok"), len(r.Data))
		} else {
			cmd.Printf("  %-16s %s %s\n", dt, errorStyle.Render("failed"), r.Error)
		}
	}
	return nil
}

func runGovernorSweep(cmd *cobra.Command, _ []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	report, err := governor.Sweep(cmd.Context())
	if governorJSON && report != nil {
		if jsonErr := printJSON(cmd, report); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	if report != nil {
		cmd.Printf("Deleted %d cached records and %d loan applications.\n",
			report.CachedDeleted, report.ApplicationsDeleted)
		for _, e := range report.Errors {
			cmd.Println(errorStyle.Render("  " + e))
		}
	}
	if err != nil {
		return fmt.Errorf("sweep incomplete: %w", err)
	}
	return nil
}

func runGovernorConsent(cmd *cobra.Command, args []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	records, err := governor.Consents(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list consents: %w", err)
	}
	if governorJSON {
		return printJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Printf("No consent records for subject: %s\n", args[0])
		return nil
	}

	cmd.Printf("Consent log for %s:\n\n", args[0])
	for i := range records {
		r := &records[i]
		cmd.Printf("  %s  %s\n", r.Timestamp.Format(timeFormat), r.ConsentID)
		cmd.Printf("    Purpose: %s\n", r.Purpose)
		cmd.Printf("    Types:   %s\n", strings.Join(r.DataTypes, ", "))
		if r.ExpiresAt != nil {
			cmd.Printf("    Expires: %s\n", r.ExpiresAt.Format(timeFormat))
		}
	}
	return nil
}

func runGovernorTransfer(cmd *cobra.Command, args []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	code := strings.ToUpper(args[0])
	if governor.TransferAllowed(code) {
		cmd.Printf("Transfer to %s: %s\n", code, successStyle.Render("allowed"))
		return nil
	}
	cmd.Printf("Transfer to %s: %s\n", code, errorStyle.Render("blocked"))
	return domain.ErrTransferBlocked
}

func runGovernorQuota(cmd *cobra.Command, _ []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}
	cmd.Printf("Remaining fetches in window: %d\n", governor.RemainingQuota())
	return nil
}

func runRightsOpen(cmd *cobra.Command, args []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	req, err := governor.OpenRightsRequest(cmd.Context(), args[0], domain.RightType(args[1]))
	if err != nil {
		return fmt.Errorf("failed to open request: %w", err)
	}

	cmd.Printf("Opened %s request %s for %s, due %s.\n", req.Right, req.ID, req.SubjectID, req.DueBy.Format(timeFormat))
	return nil
}

func runRightsList(cmd *cobra.Command, _ []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	var (
		requests []domain.RightsRequest
		err      error
	)
	if rightsOverdue {
		requests, err = governor.ListOverdue(cmd.Context(), time.Now())
	} else {
		requests, err = governor.ListRightsRequests(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}
	if len(requests) == 0 {
		cmd.Println("No rights requests.")
		return nil
	}

	now := time.Now()
	for i := range requests {
		r := &requests[i]
		due := r.DueBy.Format(timeFormat)
		if r.IsOverdue(now) {
			due = errorStyle.Render(due + " OVERDUE")
		}
		cmd.Printf("  %s  %-10s %-11s %s  due %s\n", r.ID, r.Right, r.Status, r.SubjectID, due)
	}
	return nil
}

func runRightsAdvance(cmd *cobra.Command, args []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	req, err := governor.Advance(cmd.Context(), args[0], domain.RightsStatus(args[1]), rightsMessage)
	if err != nil {
		return fmt.Errorf("failed to advance request: %w", err)
	}

	cmd.Printf("Request %s is now %s.\n", req.ID, req.Status)
	return nil
}

func runRightsErase(cmd *cobra.Command, args []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	req, err := governor.FulfilErasure(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("erasure failed: %w", err)
	}

	cmd.Printf("Erased data for %s; request %s %s.\n", req.SubjectID, req.ID, req.Status)
	return nil
}

func runRightsAccess(cmd *cobra.Command, args []string) error {
	if governor == nil {
		return errors.New("governor not configured")
	}

	report, err := governor.AccessReport(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("access report failed: %w", err)
	}
	if governorJSON {
		return printJSON(cmd, report)
	}

	cmd.Printf("Access report for %s (request %s)\n", report.SubjectID, report.RequestID)
	cmd.Printf("Generated %s, %d consent records\n\n", report.Generated.Format(timeFormat), len(report.Consents))
	for i := range report.Consents {
		c := &report.Consents[i]
		cmd.Printf("  %s  %s  %s [%s]\n", c.Timestamp.Format(timeFormat), c.ConsentID, c.Purpose,
			strings.Join(c.DataTypes, ", "))
	}
	return nil
}
