package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"enricher/internal/logger"
	"enricher/internal/worker/processors/ai"
)

type Classifier interface {
	Name() string
	Classify(ctx context.Context, in ai.ClassifyInput) (*ai.Classification, error)
}

// ClassifierChain tries classifiers in order until one answers.
type ClassifierChain struct {
	classifiers []Classifier
	logger      *logger.Logger
}

func NewClassifierChain(logger *logger.Logger, classifiers ...Classifier) *ClassifierChain {
	return &ClassifierChain{classifiers: classifiers, logger: logger}
}

func (c *ClassifierChain) Name() string {
	names := make([]string, 0, len(c.classifiers))
	for _, cl := range c.classifiers {
		names = append(names, cl.Name())
	}
	return strings.Join(names, ">")
}

func (c *ClassifierChain) Classify(ctx context.Context, in ai.ClassifyInput) (*ai.Classification, error) {
	var errs []error
	for _, cl := range c.classifiers {
		result, err := cl.Classify(ctx, in)
		if err == nil && result != nil {
			return result, nil
		}
		if err == nil {
			err = errors.New("empty result")
		}
		c.logger.Warn("classifier %s failed, trying next: %v", cl.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", cl.Name(), err))
	}
	if len(errs) == 0 {
		return nil, ErrNoClassifier
	}
	return nil, fmt.Errorf("%w: %w", ErrNoClassifier, errors.Join(errs...))
}

// matchCategory returns the allowed spelling of category, or nil when the
// model answered with something outside the list.
func matchCategory(category *string, allowed []string) *string {
	if category == nil {
		return nil
	}
	want := strings.TrimSpace(*category)
	if want == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), want) {
			match := a
			return &match
		}
	}
	return nil
}

// ErrNoKeywordMatch is returned when no allowed category word appears in the
// product name or text.
var ErrNoKeywordMatch = errors.New("no category keyword matched")

// KeywordClassifier picks the allowed category whose words occur most often in
// the product name and enriched text. It needs no network and closes every
// classifier chain.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (KeywordClassifier) Name() string { return "keywords" }

func (KeywordClassifier) Classify(ctx context.Context, in ai.ClassifyInput) (*ai.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nameWords := wordSet(in.Name)
	textWords := wordSet(in.Text)

	best, bestScore := "", 0
	for _, category := range in.Categories {
		score := 0
		for _, w := range categoryWords(category) {
			if nameWords[w] {
				score += 2
			}
			if textWords[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = category, score
		}
	}
	if bestScore == 0 {
		return nil, ErrNoKeywordMatch
	}
	return &ai.Classification{Category: &best}, nil
}

var keywordStopWords = map[string]bool{"and": true, "or": true, "the": true, "of": true, "for": true, "with": true}

// categoryWords lowercases the category and adds the singular of plural words,
// so "Oils" also matches "oil".
func categoryWords(category string) []string {
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(category), isWordBreak) {
		if len(w) < 3 || keywordStopWords[w] {
			continue
		}
		out = append(out, w)
		switch {
		case strings.HasSuffix(w, "ies") && len(w) > 4:
			out = append(out, strings.TrimSuffix(w, "ies")+"y")
		case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
			out = append(out, strings.TrimSuffix(w, "s"))
		}
	}
	return out
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), isWordBreak) {
		words[w] = true
	}
	return words
}

func isWordBreak(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
