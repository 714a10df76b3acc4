package enrichment

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"enricher/internal/cache"
	"enricher/internal/logger"
	"enricher/internal/models"
	"enricher/internal/worker/processors/ai"
	"enricher/internal/worker/processors/text"
)

type fakeTranslator struct {
	calls int32
	err   error
	out   string
}

func (f *fakeTranslator) Translate(ctx context.Context, s string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	if f.out != "" {
		return f.out, nil
	}
	return s, nil
}

type fakeSummarizer struct {
	calls int32
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, name string, attrs map[string]string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return "", f.err
	}
	return "Weighs " + attrs["weight"] + ".", nil
}

type fakeClassifier struct {
	name   string
	calls  int32
	err    error
	result *ai.Classification
}

func (f *fakeClassifier) Name() string { return f.name }

func (f *fakeClassifier) Classify(ctx context.Context, in ai.ClassifyInput) (*ai.Classification, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEmbedder struct {
	calls int32
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, s string) ([]float64, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type fakeDetector struct {
	labels []string
	err    error
}

func (f *fakeDetector) Labels(ctx context.Context, url string) ([]string, error) {
	return f.labels, f.err
}

func strPtr(s string) *string { return &s }

type fixture struct {
	translator *fakeTranslator
	summarizer *fakeSummarizer
	primary    *fakeClassifier
	fallback   *fakeClassifier
	embedder   *fakeEmbedder
	pipeline   *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		translator: &fakeTranslator{},
		summarizer: &fakeSummarizer{},
		primary:    &fakeClassifier{name: "openai", result: &ai.Classification{Category: strPtr("oils"), Types: []string{"Imported"}}},
		fallback:   &fakeClassifier{name: "openrouter", result: &ai.Classification{Category: strPtr("Snacks")}},
		embedder:   &fakeEmbedder{},
	}
	f.pipeline = NewPipeline(
		NewHTMLSource(text.NewNormalizer()),
		f.translator,
		f.summarizer,
		NewClassifierChain(logger.Nop(), f.primary, f.fallback),
		f.embedder,
		logger.Nop(),
	)
	return f
}

var allowed = []string{"Oils", "Snacks", "Drinks"}

func product() *models.Product {
	return &models.Product{
		PlatformProductID: "1001",
		Name:              "Olive Oil",
		RawDescription:    "<p>Cold pressed <b>extra virgin</b> olive oil</p>",
		Attributes:        datatypes.JSONMap{"weight": "500ml"},
		SourceCategories:  datatypes.JSONSlice[string]{"Pantry"},
	}
}

func TestPipeline_FullEnrichment(t *testing.T) {
	f := newFixture()
	res := f.pipeline.Run(context.Background(), product(), allowed)

	assert.Equal(t, models.EnrichmentEnriched, res.Status)
	assert.NoError(t, res.Err())
	assert.Equal(t, "Cold pressed extra virgin olive oil", res.Description)
	assert.Equal(t, "Cold pressed extra virgin olive oil\nWeighs 500ml.\nPantry", res.EnrichedDescription)
	require.NotNil(t, res.Category)
	assert.Equal(t, "Oils", *res.Category, "category is mapped to the allowed spelling")
	assert.Equal(t, []string{"imported"}, res.Types)
	assert.Equal(t, models.Vector{0.1, 0.2, 0.3}, res.Embedding)
	assert.Zero(t, atomic.LoadInt32(&f.fallback.calls))
}

func TestPipeline_EmptyDescriptionIsHardSkip(t *testing.T) {
	f := newFixture()
	p := product()
	p.RawDescription = "<p> </p>"

	res := f.pipeline.Run(context.Background(), p, allowed)
	assert.Equal(t, models.EnrichmentSkipped, res.Status)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], ErrEmptyDescription)
	assert.Zero(t, atomic.LoadInt32(&f.translator.calls))
	assert.Zero(t, atomic.LoadInt32(&f.embedder.calls))
}

func TestPipeline_TranslationFailureShortCircuits(t *testing.T) {
	f := newFixture()
	f.translator.err = errors.New("provider down")

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Equal(t, models.EnrichmentSkipped, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, StageTranslate, res.Errors[0].Stage)
	assert.Empty(t, res.EnrichedDescription)
	assert.Nil(t, res.Embedding)
	assert.Zero(t, atomic.LoadInt32(&f.summarizer.calls))
	assert.Zero(t, atomic.LoadInt32(&f.primary.calls))
	assert.Zero(t, atomic.LoadInt32(&f.embedder.calls))
}

func TestPipeline_EmptyTranslationSkips(t *testing.T) {
	f := newFixture()
	f.pipeline.translator = translatorFunc(func(ctx context.Context, s string) (string, error) { return " ", nil })

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Equal(t, models.EnrichmentSkipped, res.Status)
	assert.ErrorIs(t, res.Err(), ErrEmptyTranslation)
}

type translatorFunc func(ctx context.Context, s string) (string, error)

func (fn translatorFunc) Translate(ctx context.Context, s string) (string, error) { return fn(ctx, s) }

func TestPipeline_SummaryFailureDegrades(t *testing.T) {
	f := newFixture()
	f.summarizer.err = errors.New("timeout")

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Equal(t, models.EnrichmentEnriched, res.Status)
	assert.Equal(t, "Cold pressed extra virgin olive oil\nPantry", res.EnrichedDescription)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, StageSummarize, res.Errors[0].Stage)
}

func TestPipeline_ClassifierFallback(t *testing.T) {
	f := newFixture()
	f.primary.err = errors.New("quota exceeded")

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Equal(t, models.EnrichmentEnriched, res.Status)
	require.NotNil(t, res.Category)
	assert.Equal(t, "Snacks", *res.Category)
	assert.EqualValues(t, 1, atomic.LoadInt32(&f.fallback.calls))
	assert.Empty(t, res.Errors)
}

func TestPipeline_AllClassifiersFail(t *testing.T) {
	f := newFixture()
	f.primary.err = errors.New("down")
	f.fallback.err = errors.New("down too")
	p := product()
	p.OnSale = true

	res := f.pipeline.Run(context.Background(), p, allowed)
	assert.Equal(t, models.EnrichmentEnriched, res.Status)
	assert.Nil(t, res.Category)
	assert.Equal(t, []string{TypeOnSale}, res.Types)
	assert.ErrorIs(t, res.Err(), ErrNoClassifier)
}

func TestPipeline_KeywordFallbackWhenModelsFail(t *testing.T) {
	f := newFixture()
	f.primary.err = errors.New("down")
	f.fallback.err = errors.New("down too")
	f.pipeline = NewPipeline(
		NewHTMLSource(text.NewNormalizer()),
		f.translator,
		f.summarizer,
		NewClassifierChain(logger.Nop(), f.primary, f.fallback, NewKeywordClassifier()),
		f.embedder,
		logger.Nop(),
	)

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Equal(t, models.EnrichmentEnriched, res.Status)
	require.NotNil(t, res.Category)
	assert.Equal(t, "Oils", *res.Category)
	assert.NoError(t, res.Err())
	assert.Equal(t, int32(1), f.primary.calls)
	assert.Equal(t, int32(1), f.fallback.calls)
}

func TestPipeline_CategoryOutsideListIsNil(t *testing.T) {
	f := newFixture()
	f.primary.result = &ai.Classification{Category: strPtr("Electronics"), Types: []string{"vegan"}}

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Nil(t, res.Category)
	assert.Equal(t, []string{"vegan"}, res.Types)
	assert.NoError(t, res.Err())
}

func TestPipeline_KosherCategoryTypeUnion(t *testing.T) {
	f := newFixture()
	f.primary.result = &ai.Classification{Category: strPtr("Oils"), Types: []string{"Kosher", "organic"}}
	p := product()
	p.SourceCategories = datatypes.JSONSlice[string]{"Kosher Products"}
	p.OnSale = true
	require.NotContains(t, strings.ToLower(p.RawDescription), "kosher")

	res := f.pipeline.Run(context.Background(), p, allowed)

	count := 0
	for _, typ := range res.Types {
		if typ == "kosher" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"kosher", "organic", TypeOnSale}, res.Types)
}

func TestPipeline_KosherFromCategoryWithoutAI(t *testing.T) {
	f := newFixture()
	f.primary.result = &ai.Classification{Category: strPtr("Oils")}
	p := product()
	p.SourceCategories = datatypes.JSONSlice[string]{"Kosher"}

	res := f.pipeline.Run(context.Background(), p, allowed)
	assert.Equal(t, []string{"kosher"}, res.Types)
}

func TestPipeline_EmbeddingFailureLeavesProductPending(t *testing.T) {
	f := newFixture()
	f.embedder.err = errors.New("503")

	res := f.pipeline.Run(context.Background(), product(), allowed)
	assert.Equal(t, models.EnrichmentPending, res.Status)
	assert.Nil(t, res.Embedding)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, StageEmbed, res.Errors[0].Stage)
}

func TestPipeline_ImageSource(t *testing.T) {
	f := newFixture()
	pl := f.pipeline.WithSource(NewImageLabelSource(&fakeDetector{labels: []string{"Bottle", "Olive"}}))
	assert.Equal(t, models.SourceImage, pl.Source())
	assert.Equal(t, models.SourceText, f.pipeline.Source())

	p := product()
	p.Image = strPtr("https://cdn.example/oil.jpg")
	res := pl.Run(context.Background(), p, allowed)
	assert.Equal(t, models.EnrichmentEnriched, res.Status)
	assert.Equal(t, "Olive Oil. Shows: Bottle, Olive.", res.Description)

	noImage := product()
	res = pl.Run(context.Background(), noImage, allowed)
	assert.Equal(t, models.EnrichmentSkipped, res.Status)
}

func TestPipeline_ImageSourceFailure(t *testing.T) {
	f := newFixture()
	pl := f.pipeline.WithSource(NewImageLabelSource(&fakeDetector{err: errors.New("access denied")}))
	p := product()
	p.Image = strPtr("https://cdn.example/oil.jpg")

	res := pl.Run(context.Background(), p, allowed)
	assert.Equal(t, models.EnrichmentSkipped, res.Status)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, StageDescribe, res.Errors[0].Stage)
}

func TestCachedTranslator(t *testing.T) {
	inner := &fakeTranslator{out: "olive oil"}
	c := cache.NewMemoryTextCache()
	tr := NewCachedTranslator(inner, c, "en")

	for i := 0; i < 3; i++ {
		out, err := tr.Translate(context.Background(), "שמן זית")
		require.NoError(t, err)
		assert.Equal(t, "olive oil", out)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))

	failing := NewCachedTranslator(&fakeTranslator{err: errors.New("down")}, c, "en")
	_, err := failing.Translate(context.Background(), "other")
	assert.Error(t, err)
	assert.Equal(t, 1, c.Len(), "failures are not cached")
}

func TestCachedSummarizer(t *testing.T) {
	inner := &fakeSummarizer{}
	s := NewCachedSummarizer(inner, cache.NewMemoryTextCache())

	attrs := map[string]string{"weight": "1kg", "color": "red"}
	for i := 0; i < 2; i++ {
		out, err := s.Summarize(context.Background(), "Box", attrs)
		require.NoError(t, err)
		assert.Equal(t, "Weighs 1kg.", out)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))

	_, err := s.Summarize(context.Background(), "Other box", attrs)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&inner.calls))
}
