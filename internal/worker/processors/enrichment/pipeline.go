package enrichment

import (
	"context"
	"errors"
	"strings"
	"time"

	"enricher/internal/logger"
	"enricher/internal/metrics"
	"enricher/internal/models"
	"enricher/internal/worker/processors/ai"
)

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, name string, attributes map[string]string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Result is the enrichment outcome of one product. Status decides what gets
// persisted: only StatusEnriched results carry a complete record.
type Result struct {
	Status              models.EnrichmentStatus
	Description         string
	EnrichedDescription string
	Category            *string
	Types               []string
	Embedding           models.Vector
	Errors              []*StageError
}

// Err joins the stage errors, nil when every stage succeeded.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Pipeline enriches one product at a time; it is safe for concurrent use.
type Pipeline struct {
	source     DescriptionSource
	translator Translator
	summarizer Summarizer
	classifier Classifier
	embedder   Embedder
	logger     *logger.Logger
}

func NewPipeline(source DescriptionSource, translator Translator, summarizer Summarizer, classifier Classifier, embedder Embedder, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		translator: translator,
		summarizer: summarizer,
		classifier: classifier,
		embedder:   embedder,
		logger:     logger,
	}
}

// WithSource returns a pipeline sharing the AI stages but describing
// products with another source.
func (p *Pipeline) WithSource(source DescriptionSource) *Pipeline {
	cp := *p
	cp.source = source
	return &cp
}

func (p *Pipeline) Source() models.DescriptionSource {
	return p.source.Name()
}

// Run enriches product against the caller's closed category list. Stage
// failures are recorded on the result and never returned as errors.
func (p *Pipeline) Run(ctx context.Context, product *models.Product, categories []string) *Result {
	res := &Result{Status: models.EnrichmentPending}
	log := p.logger.With("product", product.PlatformProductID)

	description, err := p.describe(ctx, product)
	if err != nil {
		p.fail(res, StageDescribe, err, log)
		res.Status = models.EnrichmentSkipped
		return res
	}
	if strings.TrimSpace(description) == "" {
		res.Status = models.EnrichmentSkipped
		res.Errors = append(res.Errors, &StageError{Stage: StageDescribe, Err: ErrEmptyDescription})
		log.Debug("Skipping product without description")
		return res
	}
	res.Description = description

	translated, err := p.translate(ctx, description)
	if err != nil {
		p.fail(res, StageTranslate, err, log)
		res.Status = models.EnrichmentSkipped
		return res
	}

	digest := p.summarize(ctx, product, res, log)

	enriched := compose(translated, digest, product.SourceCategories)
	res.EnrichedDescription = enriched

	p.classify(ctx, product, enriched, categories, res, log)

	start := time.Now()
	vec, err := p.embedder.Embed(ctx, enriched)
	metrics.ObserveStage(string(StageEmbed), time.Since(start))
	if err != nil {
		p.fail(res, StageEmbed, err, log)
		res.Status = models.EnrichmentPending
		return res
	}

	res.Embedding = vec
	res.Status = models.EnrichmentEnriched
	return res
}

func (p *Pipeline) describe(ctx context.Context, product *models.Product) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(string(StageDescribe), time.Since(start)) }()
	return p.source.Describe(ctx, product)
}

func (p *Pipeline) translate(ctx context.Context, text string) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(string(StageTranslate), time.Since(start)) }()

	out, err := p.translator.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyTranslation
	}
	return strings.TrimSpace(out), nil
}

// summarize degrades to an empty digest on failure.
func (p *Pipeline) summarize(ctx context.Context, product *models.Product, res *Result, log *logger.Logger) string {
	attrs := product.AttributeStrings()
	if len(attrs) == 0 {
		return ""
	}
	start := time.Now()
	digest, err := p.summarizer.Summarize(ctx, product.Name, attrs)
	metrics.ObserveStage(string(StageSummarize), time.Since(start))
	if err != nil {
		p.fail(res, StageSummarize, err, log)
		return ""
	}
	return strings.TrimSpace(digest)
}

// classify fills category and types. Local rules run even when every
// classifier failed.
func (p *Pipeline) classify(ctx context.Context, product *models.Product, enriched string, categories []string, res *Result, log *logger.Logger) {
	var aiTypes []string

	start := time.Now()
	c, err := p.classifier.Classify(ctx, ai.ClassifyInput{
		Name:       product.Name,
		Text:       enriched,
		Categories: categories,
	})
	metrics.ObserveStage(string(StageClassify), time.Since(start))
	if err == nil && c == nil {
		err = ErrNoClassifier
	}
	if err != nil {
		p.fail(res, StageClassify, err, log)
	} else {
		res.Category = matchCategory(c.Category, categories)
		if c.Category != nil && res.Category == nil {
			log.Debug("Classifier answered category %q outside the allowed list", *c.Category)
		}
		aiTypes = c.Types
	}

	texts := append([]string{product.Name, enriched}, product.SourceCategories...)
	res.Types = MergeTypes(aiTypes, LocalTypes(product.OnSale, texts...))
}

func (p *Pipeline) fail(res *Result, stage Stage, err error, log *logger.Logger) {
	res.Errors = append(res.Errors, &StageError{Stage: stage, Err: err})
	metrics.StageFailed(string(stage))
	log.Warn("Stage %s failed: %v", stage, err)
}

// compose joins the translated description, the attribute digest and the
// platform category names.
func compose(translated, digest string, categories []string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{translated, digest, strings.Join(categories, ", ")} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
