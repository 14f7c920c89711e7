// Command aegis is the document intelligence CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/aegis/internal/adapters/driven/ai"
	"github.com/custodia-labs/aegis/internal/adapters/driven/config/file"
	"github.com/custodia-labs/aegis/internal/adapters/driven/fetch"
	"github.com/custodia-labs/aegis/internal/adapters/driven/notify/webhook"
	"github.com/custodia-labs/aegis/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/aegis/internal/adapters/driving/cli"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/services"
	"github.com/custodia-labs/aegis/internal/logger"
	"github.com/custodia-labs/aegis/internal/parsers"
	"github.com/custodia-labs/aegis/internal/postprocessors"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal; any other read error is worth knowing about.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("loading .env: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	baseDir := filepath.Join(home, ".aegis")

	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open config: %v\n", err)
		return err
	}
	prompts, err := file.NewPromptStore(filepath.Join(baseDir, "prompts"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open prompts: %v\n", err)
		return err
	}

	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsSvc.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
		return err
	}

	store, err := sqlite.NewStore(filepath.Join(baseDir, "data"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
		return err
	}
	defer store.Close()

	ctx := context.Background()
	aiServices := ai.Initialise(ctx, *settings, store.VectorIndex())
	defer aiServices.Close()
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}
	if aiServices.FellBack {
		logger.Debug("vector tier unavailable, retrieval uses the text fallback")
	}

	docStore := store.DocumentStore()

	registry := parsers.NewDefaultRegistry(parsers.NewExecRunner(), settings.Parser)
	pipeline, err := postprocessors.NewDefaultPipeline(settingsSvc.GetPipelineConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid pipeline config: %v\n", err)
		return err
	}

	indexer := services.NewIndexer(docStore, aiServices.EmbeddingService, aiServices.VectorIndex)
	classifier := services.NewClassifier(aiServices.TextGenerator, prompts)
	ingestion := services.NewIngestionService(registry, classifier, pipeline, indexer, docStore)
	orchestrator := services.NewOrchestrator(docStore, services.NewAgents(aiServices.TextGenerator, prompts)...)

	rules := store.RuleRepository()
	consistency := services.NewConsistencyService(rules)
	ruleSvc := services.NewRuleService(rules)

	var fetcher driven.FetchIntegration
	if settings.Governor.FetchURL != "" {
		client, err := fetch.New(fetch.Config{
			URL:    settings.Governor.FetchURL,
			APIKey: settings.Governor.FetchAPIKey,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid fetch config: %v\n", err)
			return err
		}
		fetcher = client
	}
	governor := services.NewGovernor(
		store.ConsentLog(),
		store.RightsRequestStore(),
		store.RetentionStore(),
		fetcher,
		settings.Governor,
	)

	jobs := services.NewJobRunner(
		store.JobStore(),
		ingestion,
		orchestrator,
		webhook.New(webhook.Config{}),
		store.WebhookStore(),
		settings.Jobs,
	)

	schedulerConfig := settingsSvc.GetSchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, store.SchedulerStore(), governor)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Ingestion:       ingestion,
		Retrieval:       services.NewRetrievalService(docStore, aiServices.VectorIndex, aiServices.EmbeddingService, settings.Retrieval),
		Orchestrator:    orchestrator,
		Consistency:     consistency,
		Rules:           ruleSvc,
		Governor:        governor,
		Jobs:            jobs,
		Webhooks:        services.NewWebhookRegistry(store.WebhookStore()),
		Documents:       services.NewDocumentService(docStore, indexer),
		Settings:        settingsSvc,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
	})

	return cli.Execute()
}
