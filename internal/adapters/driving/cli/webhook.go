package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage webhook subscriptions",
	Long: `Subscriptions receive job events for every job, in addition to any
--webhook given to a single job. Events: ` + strings.Join(domain.WebhookEvents(), ", ") + `.
Payloads carry an X-Aegis-Signature HMAC when a secret is set.`,
}

var webhookAddCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Register a webhook URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookAdd,
}

var webhookGetCmd = &cobra.Command{
	Use:   "get [webhook-id]",
	Short: "Show a webhook subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookGet,
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhook subscriptions",
	Args:  cobra.NoArgs,
	RunE:  runWebhookList,
}

var webhookRemoveCmd = &cobra.Command{
	Use:   "remove [webhook-id]",
	Short: "Delete a webhook subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhookRemove,
}

var (
	webhookEvents []string
	webhookSecret string
	webhookJSON   bool
)

func init() {
	webhookAddCmd.Flags().StringSliceVar(&webhookEvents, "event", nil, "event to receive, repeatable (default all)")
	webhookAddCmd.Flags().StringVar(&webhookSecret, "secret", "", "HMAC secret for payload signatures")
	webhookGetCmd.Flags().BoolVar(&webhookJSON, "json", false, "output as JSON")

	webhookCmd.AddCommand(webhookAddCmd)
	webhookCmd.AddCommand(webhookGetCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookRemoveCmd)
	rootCmd.AddCommand(webhookCmd)
}

func runWebhookAdd(cmd *cobra.Command, args []string) error {
	if webhookService == nil {
		return errors.New("webhook service not configured")
	}

	sub, err := webhookService.Register(cmd.Context(), args[0], webhookEvents, webhookSecret)
	if err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	cmd.Printf("Webhook %s registered for %s.\n", sub.ID, strings.Join(sub.Events, ", "))
	return nil
}

func runWebhookGet(cmd *cobra.Command, args []string) error {
	if webhookService == nil {
		return errors.New("webhook service not configured")
	}

	sub, err := webhookService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get webhook: %w", err)
	}
	if webhookJSON {
		return printJSON(cmd, sub)
	}

	cmd.Printf("Webhook %s: %s\n", sub.ID, webhookState(sub))
	cmd.Printf("  URL:     %s\n", sub.URL)
	cmd.Printf("  Events:  %s\n", strings.Join(sub.Events, ", "))
	cmd.Printf("  Signed:  %t\n", sub.Secret != "")
	cmd.Printf("  Created: %s\n", sub.CreatedAt.Format(timeFormat))
	return nil
}

func runWebhookList(cmd *cobra.Command, _ []string) error {
	if webhookService == nil {
		return errors.New("webhook service not configured")
	}

	subs, err := webhookService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}
	if len(subs) == 0 {
		cmd.Println("No webhooks registered.")
		return nil
	}

	for i := range subs {
		cmd.Printf("  %s  %s  [%s] %s\n", subs[i].ID, subs[i].URL,
			strings.Join(subs[i].Events, ", "), webhookState(&subs[i]))
	}
	cmd.Printf("\nTotal: %d webhooks\n", len(subs))
	return nil
}

func runWebhookRemove(cmd *cobra.Command, args []string) error {
	if webhookService == nil {
		return errors.New("webhook service not configured")
	}

	if err := webhookService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove webhook: %w", err)
	}
	cmd.Printf("Webhook %s removed.\n", args[0])
	return nil
}

func webhookState(sub *domain.WebhookSubscription) string {
	if sub.Active {
		return successStyle.Render("active")
	}
	return mutedStyle.Render("inactive")
}
