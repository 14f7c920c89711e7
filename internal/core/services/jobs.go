package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

// Verify interface compliance.
var _ driving.JobService = (*JobRunner)(nil)

// jobQueueSize bounds submissions waiting for a worker.
const jobQueueSize = 256

// JobRunner ingests and analyses uploads on a fixed pool of workers.
type JobRunner struct {
	store        driven.JobStore
	ingestion    driving.IngestionService
	orchestrator driving.Orchestrator
	notifier     driven.Notifier
	webhooks     driven.WebhookStore
	settings     domain.JobSettings

	queue chan string

	mu      sync.Mutex
	queued  map[string]bool
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewJobRunner creates a job runner. orchestrator, notifier and webhooks
// are optional.
func NewJobRunner(
	store driven.JobStore,
	ingestion driving.IngestionService,
	orchestrator driving.Orchestrator,
	notifier driven.Notifier,
	webhooks driven.WebhookStore,
	settings domain.JobSettings,
) *JobRunner {
	defaults := domain.DefaultAppSettings().Jobs
	if settings.Concurrency <= 0 {
		settings.Concurrency = defaults.Concurrency
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = defaults.MaxAttempts
	}
	if settings.BaseBackoff <= 0 {
		settings.BaseBackoff = defaults.BaseBackoff
	}
	return &JobRunner{
		store:        store,
		ingestion:    ingestion,
		orchestrator: orchestrator,
		notifier:     notifier,
		webhooks:     webhooks,
		settings:     settings,
		queue:        make(chan string, jobQueueSize),
		queued:       make(map[string]bool),
		sleep:        sleepCtx,
	}
}

// newJobID returns "job_" followed by 16 hex characters.
func newJobID() string {
	return "job_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// Submit stores a pending job and queues it. Jobs submitted before Start
// wait in the queue.
func (r *JobRunner) Submit(ctx context.Context, job *domain.AnalysisJob) (string, error) {
	if job == nil || len(job.Content) == 0 {
		return "", domain.ErrEmptyInput
	}
	if strings.TrimSpace(job.Filename) == "" {
		return "", fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}

	job.ID = newJobID()
	job.Status = domain.JobPending
	job.Attempts = 0
	job.CreatedAt = time.Now()
	if err := r.store.SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("save job: %w", err)
	}
	if err := r.enqueue(ctx, job.ID); err != nil {
		return "", err
	}
	log.Printf("jobs: queued %s (%s)", job.ID, job.Filename)
	return job.ID, nil
}

func (r *JobRunner) enqueue(ctx context.Context, id string) error {
	r.mu.Lock()
	if r.queued[id] {
		r.mu.Unlock()
		return nil
	}
	r.queued[id] = true
	r.mu.Unlock()

	select {
	case r.queue <- id:
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.queued, id)
		r.mu.Unlock()
		return ctx.Err()
	}
}

// Status returns the stored state of a job.
func (r *JobRunner) Status(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	return r.store.GetJob(ctx, id)
}

// Start launches the workers and requeues jobs left pending or
// processing by a previous run.
func (r *JobRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.stopCh = make(chan struct{})
	stopCh := r.stopCh
	r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-stopCh
		cancel()
	}()

	for i := 0; i < r.settings.Concurrency; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}
	log.Printf("jobs: started %d workers", r.settings.Concurrency)

	for _, status := range []domain.JobStatus{domain.JobPending, domain.JobProcessing} {
		jobs, err := r.store.ListJobs(ctx, status)
		if err != nil {
			log.Printf("jobs: list %s jobs: %v", status, err)
			continue
		}
		for _, job := range jobs {
			if err := r.enqueue(runCtx, job.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Stop cancels in-flight jobs and waits for the workers to exit.
// Interrupted jobs stay pending and resume on the next Start.
func (r *JobRunner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
	log.Printf("jobs: stopped")
	return nil
}

func (r *JobRunner) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.mu.Lock()
			delete(r.queued, id)
			r.mu.Unlock()
			r.process(ctx, id)
		}
	}
}

// process runs one job to completion or final failure.
func (r *JobRunner) process(ctx context.Context, id string) {
	job, err := r.store.GetJob(ctx, id)
	if err != nil {
		log.Printf("jobs: load %s: %v", id, err)
		return
	}
	if job.Status == domain.JobCompleted || job.Status == domain.JobFailed {
		return
	}

	var lastErr error
	for attempt := 1; attempt <= r.settings.MaxAttempts; attempt++ {
		job.Status = domain.JobProcessing
		job.Attempts = attempt
		r.save(job)

		result, err := r.execute(ctx, job)
		if err == nil {
			r.finish(job, result, nil)
			return
		}
		lastErr = err

		if ctx.Err() != nil {
			job.Status = domain.JobPending
			r.save(job)
			return
		}
		if !isRetryable(err) || attempt == r.settings.MaxAttempts {
			break
		}

		delay := r.settings.BaseBackoff << (attempt - 1)
		log.Printf("jobs: %s attempt %d failed, retrying in %s: %v", job.ID, attempt, delay, err)
		if err := r.sleep(ctx, delay); err != nil {
			job.Status = domain.JobPending
			r.save(job)
			return
		}
	}
	r.finish(job, nil, lastErr)
}

func (r *JobRunner) execute(ctx context.Context, job *domain.AnalysisJob) (*domain.AnalysisResult, error) {
	res, err := r.ingestion.Ingest(ctx, driving.IngestRequest{
		OwnerID:  job.OwnerID,
		Filename: job.Filename,
		MIMEType: job.MIMEType,
		Data:     job.Content,
	})
	if err != nil {
		return nil, err
	}

	var pipeline *domain.PipelineResult
	if r.orchestrator != nil {
		pipeline = r.orchestrator.Run(ctx, res.Document.ID)
	}
	return domain.NewAnalysisResult(res.Document, res.NumChunks, pipeline), nil
}

// finish records the final state and notifies the job's webhooks.
func (r *JobRunner) finish(job *domain.AnalysisJob, result *domain.AnalysisResult, err error) {
	now := time.Now()
	job.CompletedAt = &now
	job.Content = nil

	event := domain.EventAnalysisCompleted
	data := map[string]any{"job_id": job.ID, "filename": job.Filename, "attempts": job.Attempts}
	if err != nil {
		job.Status = domain.JobFailed
		job.Error = err.Error()
		event = domain.EventAnalysisFailed
		data["status"] = domain.JobFailed
		data["error"] = job.Error
		log.Printf("jobs: %s failed after %d attempts: %v", job.ID, job.Attempts, err)
	} else {
		job.Status = domain.JobCompleted
		job.Result = result
		job.Error = ""
		data["status"] = domain.JobCompleted
		data["result"] = result
		log.Printf("jobs: %s completed (document %s)", job.ID, result.DocumentID)
	}
	r.save(job)

	if r.notifier == nil {
		return
	}
	// The run context may already be cancelled; delivery uses its own.
	ctx := context.Background()
	for _, d := range r.deliveries(ctx, job, event) {
		d.Data = data
		if err := r.notifier.Notify(ctx, d); err != nil {
			log.Printf("jobs: webhook %s for %s: %v", d.URL, job.ID, err)
		}
	}
}

// deliveries lists the job's own webhook followed by every subscription
// that selected event. A URL is notified at most once.
func (r *JobRunner) deliveries(ctx context.Context, job *domain.AnalysisJob, event string) []domain.WebhookDelivery {
	var out []domain.WebhookDelivery
	seen := make(map[string]bool)
	if job.WebhookURL != "" {
		out = append(out, domain.WebhookDelivery{URL: job.WebhookURL, Secret: job.WebhookSecret, Event: event})
		seen[job.WebhookURL] = true
	}
	if r.webhooks == nil {
		return out
	}

	subs, err := r.webhooks.ListWebhooks(ctx)
	if err != nil {
		log.Printf("jobs: list webhooks: %v", err)
		return out
	}
	for i := range subs {
		if !subs[i].Wants(event) || seen[subs[i].URL] {
			continue
		}
		seen[subs[i].URL] = true
		out = append(out, domain.WebhookDelivery{URL: subs[i].URL, Secret: subs[i].Secret, Event: event})
	}
	return out
}

func (r *JobRunner) save(job *domain.AnalysisJob) {
	if err := r.store.SaveJob(context.Background(), job); err != nil {
		log.Printf("jobs: save %s: %v", job.ID, err)
	}
}

// isRetryable reports whether another attempt could succeed. Bad uploads never will.
func isRetryable(err error) bool {
	for _, permanent := range []error{
		domain.ErrEmptyInput,
		domain.ErrInvalidInput,
		domain.ErrParseFailure,
		domain.ErrUnsupportedType,
		domain.ErrNoExtractableText,
	} {
		if errors.Is(err, permanent) {
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
