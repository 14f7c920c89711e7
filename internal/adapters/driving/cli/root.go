// Package cli provides the aegis command-line interface.
// Services are injected by cmd/aegis through SetServices before Execute.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
	"github.com/custodia-labs/aegis/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	verbose  bool
	logLevel string
)

// Injected services.
var (
	ingestionService   driving.IngestionService
	retrievalService   driving.RetrievalService
	orchestrator       driving.Orchestrator
	consistencyService driving.ConsistencyService
	ruleService        driving.RuleService
	governor           driving.Governor
	jobService         driving.JobService
	webhookService     driving.WebhookService
	documentService    driving.DocumentService
	settingsService    driving.SettingsService
	scheduler          driving.Scheduler
	schedulerConfig    domain.SchedulerConfig
)

// Services holds every driving port the commands use.
// Nil services make their commands report "not configured".
type Services struct {
	Ingestion       driving.IngestionService
	Retrieval       driving.RetrievalService
	Orchestrator    driving.Orchestrator
	Consistency     driving.ConsistencyService
	Rules           driving.RuleService
	Governor        driving.Governor
	Jobs            driving.JobService
	Webhooks        driving.WebhookService
	Documents       driving.DocumentService
	Settings        driving.SettingsService
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig
}

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Document intelligence for contracts and lending files",
	Long: `Aegis ingests contracts and financial documents, classifies their risk,
indexes them for retrieval, runs multi-step analysis, cross-checks lending
documents for consistency and governs access to external personal data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if logLevel == "" {
			logger.SetVerbose(verbose)
			return nil
		}
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"minimum log level: debug, info, warn or error (overrides --verbose)")
}

// SetServices injects the application services.
func SetServices(s Services) {
	ingestionService = s.Ingestion
	retrievalService = s.Retrieval
	orchestrator = s.Orchestrator
	consistencyService = s.Consistency
	ruleService = s.Rules
	governor = s.Governor
	jobService = s.Jobs
	webhookService = s.Webhooks
	documentService = s.Documents
	settingsService = s.Settings
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
