package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"enricher/internal/connectors"
	"enricher/internal/logger"
	"enricher/internal/metrics"
	"enricher/internal/models"
	"enricher/internal/scheduler"
	"enricher/internal/store"
	"enricher/internal/worker/processors/enrichment"
	"enricher/internal/worker/processors/text"
	"enricher/internal/worker/processors/validation"
)

var (
	ErrMissingNamespace  = errors.New("namespace is required")
	ErrUnsupportedMode   = errors.New("unsupported sync mode")
	ErrUnsupportedSource = errors.New("unsupported description source")
	ErrShuttingDown      = errors.New("orchestrator is shutting down")
)

// errNotEnriched marks a product that was saved but not fully enriched
// (skipped or left pending).
var errNotEnriched = errors.New("product not enriched")

// Request starts a sync of one namespace.
type Request struct {
	Namespace         string                   `json:"namespace"`
	Platform          models.Platform          `json:"platform"`
	Credentials       models.Credentials       `json:"credentials"`
	Categories        []string                 `json:"categories"`
	Mode              models.SyncMode          `json:"mode"`
	DescriptionSource models.DescriptionSource `json:"description_source"`
}

// Validate fills defaults and rejects requests that cannot run.
func (r *Request) Validate() error {
	r.Namespace = strings.TrimSpace(r.Namespace)
	if r.Namespace == "" {
		return ErrMissingNamespace
	}
	if r.Mode == "" {
		r.Mode = models.ModeFull
	}
	if r.DescriptionSource == "" {
		r.DescriptionSource = models.SourceText
	}
	if r.Platform != "" {
		platform, err := models.ParsePlatform(string(r.Platform))
		if err != nil {
			return err
		}
		r.Platform = platform
	}

	switch r.Mode {
	case models.ModeFull:
		if err := r.Credentials.Validate(r.Platform); err != nil {
			return err
		}
	case models.ModeResume:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMode, r.Mode)
	}
	return nil
}

// Notifier receives job and product lifecycle events.
type Notifier interface {
	SyncStarted(ctx context.Context, job *models.SyncJob)
	SyncFinished(ctx context.Context, job *models.SyncJob)
	ProductEnriched(ctx context.Context, runID string, p *models.Product)
}

type nopNotifier struct{}

func (nopNotifier) SyncStarted(context.Context, *models.SyncJob)             {}
func (nopNotifier) SyncFinished(context.Context, *models.SyncJob)            {}
func (nopNotifier) ProductEnriched(context.Context, string, *models.Product) {}

// NopNotifier drops every event.
func NopNotifier() Notifier { return nopNotifier{} }

type Options struct {
	Concurrency int
	Retry       connectors.RetryPolicy
}

// Orchestrator runs sync jobs in the background, one at a time per namespace.
type Orchestrator struct {
	catalog    *store.CatalogStore
	jobs       *store.JobStore
	connectors connectors.Factory
	pipeline   *enrichment.Pipeline
	sources    map[models.DescriptionSource]enrichment.DescriptionSource
	normalizer *text.Normalizer
	validator  *validation.Validator
	notifier   Notifier
	opts       Options
	logger     *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

func New(catalog *store.CatalogStore, jobs *store.JobStore, factory connectors.Factory, pipeline *enrichment.Pipeline, notifier Notifier, opts Options, logger *logger.Logger) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = scheduler.DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		catalog:    catalog,
		jobs:       jobs,
		connectors: factory,
		pipeline:   pipeline,
		sources:    map[models.DescriptionSource]enrichment.DescriptionSource{},
		normalizer: text.NewNormalizer(),
		validator:  validation.New(logger),
		notifier:   notifier,
		opts:       opts,
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
	}
}

// RegisterSource makes an extra description source selectable per request.
func (o *Orchestrator) RegisterSource(src enrichment.DescriptionSource) {
	o.sources[src.Name()] = src
}

// StartSync claims the namespace job and runs it in the background. The
// returned snapshot is the freshly claimed running job.
func (o *Orchestrator) StartSync(ctx context.Context, req Request) (*models.SyncJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	pipeline, err := o.pipelineFor(req.DescriptionSource)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, ErrShuttingDown
	}

	run := store.Run{
		RunID:     uuid.New().String(),
		Platform:  req.Platform,
		Mode:      req.Mode,
		StartedAt: time.Now().UTC(),
	}
	job, err := o.jobs.Claim(ctx, req.Namespace, run)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Starting %s sync %s for %s", req.Mode, run.RunID, req.Namespace)
	o.notifier.SyncStarted(ctx, job)

	o.wg.Add(1)
	go o.run(req, run.RunID, pipeline)
	return job, nil
}

func (o *Orchestrator) pipelineFor(source models.DescriptionSource) (*enrichment.Pipeline, error) {
	if source == "" || source == o.pipeline.Source() {
		return o.pipeline, nil
	}
	src, ok := o.sources[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, source)
	}
	return o.pipeline.WithSource(src), nil
}

// Status returns the progress record of a namespace.
func (o *Orchestrator) Status(ctx context.Context, namespace string) (*models.SyncJob, error) {
	return o.jobs.Get(ctx, namespace)
}

// Wait blocks until every started job has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown stops accepting jobs and waits for the running ones. When ctx
// expires first the running jobs are cancelled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.cancel()
		<-done
		return ctx.Err()
	}
}

// run is the error boundary of a job: whatever happens inside, the job ends
// in done or error.
func (o *Orchestrator) run(req Request, runID string, pipeline *enrichment.Pipeline) {
	defer o.wg.Done()
	ctx := o.baseCtx
	log := o.logger.With("namespace", req.Namespace).With("run_id", runID)
	start := time.Now()

	err := o.safeExecute(ctx, req, runID, pipeline, log)

	state := models.JobDone
	if err != nil {
		state = models.JobError
		log.Error("Sync failed: %v", err)
	}

	finishCtx := context.WithoutCancel(ctx)
	if ferr := o.jobs.Finish(finishCtx, req.Namespace, runID, state, err); ferr != nil {
		log.Error("Failed to finish job: %v", ferr)
	}
	metrics.JobFinished(string(req.Platform), string(state))

	job, gerr := o.jobs.Get(finishCtx, req.Namespace)
	if gerr != nil {
		log.Error("Failed to load finished job: %v", gerr)
		return
	}
	log.Info("Sync %s in %s: %d/%d processed, %d enriched, %d failed",
		state, time.Since(start).Round(time.Millisecond), job.ProcessedCount, job.TotalProducts, job.EnrichedCount, job.FailedCount)
	o.notifier.SyncFinished(finishCtx, job)
}

func (o *Orchestrator) safeExecute(ctx context.Context, req Request, runID string, pipeline *enrichment.Pipeline, log *logger.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Sync panicked: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("sync panicked: %v", r)
		}
	}()
	return o.execute(ctx, req, runID, pipeline, log)
}

func (o *Orchestrator) execute(ctx context.Context, req Request, runID string, pipeline *enrichment.Pipeline, log *logger.Logger) error {
	var catalogSize int
	if req.Mode == models.ModeFull {
		n, err := o.refreshCatalog(ctx, req, log)
		if err != nil {
			return err
		}
		catalogSize = n
	} else {
		n, err := o.catalog.Count(ctx, req.Namespace)
		if err != nil {
			return fmt.Errorf("count catalog: %w", err)
		}
		catalogSize = int(n)
	}

	pending, err := o.catalog.Pending(ctx, req.Namespace)
	if err != nil {
		return fmt.Errorf("load pending products: %w", err)
	}
	if err := o.jobs.SetTotals(ctx, req.Namespace, runID, len(pending), catalogSize); err != nil {
		return fmt.Errorf("set totals: %w", err)
	}
	log.Info("Enriching %d of %d products", len(pending), catalogSize)

	return o.enrich(ctx, req, runID, pipeline, pending, log)
}

// refreshCatalog fetches every page before writing anything, so a failed
// fetch leaves the stored catalog untouched.
func (o *Orchestrator) refreshCatalog(ctx context.Context, req Request, log *logger.Logger) (int, error) {
	src, err := o.connectors(req.Platform, req.Credentials)
	if err != nil {
		return 0, fmt.Errorf("build connector: %w", err)
	}

	products, err := connectors.FetchAll(ctx, src, o.opts.Retry, log)
	if err != nil {
		return 0, err
	}
	metrics.ProductsFetched(string(req.Platform), len(products))

	for i := range products {
		products[i].Platform = req.Platform
		if products[i].PlainDescription == "" {
			products[i].PlainDescription = o.normalizer.PlainText(products[i].RawDescription)
		}
	}

	valid, invalid := o.validator.ValidateAll(products)
	for _, verr := range invalid {
		log.Warn("Dropping product: %v", verr)
	}

	written, err := o.catalog.BulkUpsert(ctx, req.Namespace, valid)
	if err != nil {
		return 0, err
	}

	seen := make([]string, 0, len(valid))
	for _, p := range valid {
		seen = append(seen, p.PlatformProductID)
	}
	missing, err := o.catalog.MarkMissing(ctx, req.Namespace, seen)
	if err != nil {
		return 0, fmt.Errorf("mark missing products: %w", err)
	}
	log.Info("Catalog refreshed: %d written, %d no longer in store", written, missing)
	return written, nil
}

func (o *Orchestrator) enrich(ctx context.Context, req Request, runID string, pipeline *enrichment.Pipeline, pending []models.Product, log *logger.Logger) error {
	task := func(ctx context.Context, p models.Product) error {
		return o.enrichOne(ctx, req, runID, pipeline, &p)
	}

	onDone := func(p models.Product, err error) {
		outcome, label := outcomeOf(err)
		if err != nil && !errors.Is(err, errNotEnriched) {
			log.Warn("Product %s failed: %v", p.PlatformProductID, err)
		}
		if ierr := o.jobs.IncrementProcessed(context.WithoutCancel(ctx), req.Namespace, runID, outcome); ierr != nil {
			log.Error("Failed to count product %s: %v", p.PlatformProductID, ierr)
		}
		metrics.ProductProcessed(string(p.Platform), label)
	}

	if err := scheduler.Run(ctx, pending, scheduler.Options{Concurrency: o.opts.Concurrency}, task, onDone); err != nil {
		return fmt.Errorf("enrichment scheduler: %w", err)
	}
	return nil
}

func (o *Orchestrator) enrichOne(ctx context.Context, req Request, runID string, pipeline *enrichment.Pipeline, p *models.Product) error {
	metrics.TaskStarted()
	defer metrics.TaskFinished()

	res := pipeline.Run(ctx, p, req.Categories)

	update := store.EnrichmentUpdate{
		Status:              res.Status,
		EnrichedDescription: res.EnrichedDescription,
		Embedding:           res.Embedding,
		Category:            res.Category,
		Types:               res.Types,
	}
	if err := res.Err(); err != nil {
		update.Error = err.Error()
	}
	if err := o.catalog.SaveEnrichment(ctx, req.Namespace, p.PlatformProductID, update); err != nil {
		return fmt.Errorf("save enrichment: %w", err)
	}

	if res.Status != models.EnrichmentEnriched {
		return errNotEnriched
	}

	p.EnrichedDescription = &res.EnrichedDescription
	p.Embedding = res.Embedding
	p.Category = res.Category
	p.Types = res.Types
	p.EnrichmentStatus = res.Status
	o.notifier.ProductEnriched(ctx, runID, p)
	return nil
}

func outcomeOf(err error) (store.Outcome, string) {
	switch {
	case err == nil:
		return store.OutcomeEnriched, "enriched"
	case errors.Is(err, errNotEnriched):
		return store.OutcomePartial, "partial"
	default:
		return store.OutcomeFailed, "failed"
	}
}
