package enrichment

import (
	"context"
	"sort"
	"strings"

	"enricher/internal/cache"
)

// CachedTranslator serves repeated translations from the text cache.
type CachedTranslator struct {
	next  Translator
	cache cache.TextCache
	stage string
}

func NewCachedTranslator(next Translator, c cache.TextCache, language string) *CachedTranslator {
	return &CachedTranslator{next: next, cache: c, stage: "translate:" + language}
}

func (t *CachedTranslator) Translate(ctx context.Context, text string) (string, error) {
	if v, ok := t.cache.Get(ctx, t.stage, text); ok {
		return v, nil
	}
	out, err := t.next.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	if out != "" {
		t.cache.Set(ctx, t.stage, text, out)
	}
	return out, nil
}

// CachedSummarizer serves repeated attribute digests from the text cache.
type CachedSummarizer struct {
	next  Summarizer
	cache cache.TextCache
}

func NewCachedSummarizer(next Summarizer, c cache.TextCache) *CachedSummarizer {
	return &CachedSummarizer{next: next, cache: c}
}

func (s *CachedSummarizer) Summarize(ctx context.Context, name string, attributes map[string]string) (string, error) {
	key := summaryKey(name, attributes)
	if v, ok := s.cache.Get(ctx, "summarize", key); ok {
		return v, nil
	}
	out, err := s.next.Summarize(ctx, name, attributes)
	if err != nil {
		return "", err
	}
	if out != "" {
		s.cache.Set(ctx, "summarize", key, out)
	}
	return out, nil
}

func summaryKey(name string, attributes map[string]string) string {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("\x00")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(attributes[k])
	}
	return b.String()
}
