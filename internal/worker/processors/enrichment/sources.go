package enrichment

import (
	"context"
	"strings"

	"enricher/internal/models"
)

// DescriptionSource produces the text the pipeline enriches.
type DescriptionSource interface {
	Name() models.DescriptionSource
	Describe(ctx context.Context, p *models.Product) (string, error)
}

type PlainTexter interface {
	PlainText(raw string) string
}

// HTMLSource uses the product's own description, stripped of markup.
type HTMLSource struct {
	normalizer PlainTexter
}

func NewHTMLSource(normalizer PlainTexter) *HTMLSource {
	return &HTMLSource{normalizer: normalizer}
}

func (s *HTMLSource) Name() models.DescriptionSource { return models.SourceText }

func (s *HTMLSource) Describe(_ context.Context, p *models.Product) (string, error) {
	if p.PlainDescription != "" {
		return p.PlainDescription, nil
	}
	return s.normalizer.PlainText(p.RawDescription), nil
}

// LabelDetector names what is visible in an image.
type LabelDetector interface {
	Labels(ctx context.Context, imageURL string) ([]string, error)
}

// ImageLabelSource captions the product photo for catalogs whose text
// descriptions are missing or useless.
type ImageLabelSource struct {
	detector LabelDetector
}

func NewImageLabelSource(detector LabelDetector) *ImageLabelSource {
	return &ImageLabelSource{detector: detector}
}

func (s *ImageLabelSource) Name() models.DescriptionSource { return models.SourceImage }

func (s *ImageLabelSource) Describe(ctx context.Context, p *models.Product) (string, error) {
	if p.Image == nil || *p.Image == "" {
		return "", nil
	}
	labels, err := s.detector.Labels(ctx, *p.Image)
	if err != nil {
		return "", err
	}
	if len(labels) == 0 {
		return "", nil
	}
	return strings.TrimSpace(p.Name + ". Shows: " + strings.Join(labels, ", ") + "."), nil
}
