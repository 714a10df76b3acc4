package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"enricher/internal/logger"
)

// LanguageName turns a BCP 47 tag such as "en" or "he" into the English
// name used in prompts. Unknown tags fall back to English.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return "English"
	}
	if name := display.English.Languages().Name(t); name != "" {
		return name
	}
	return "English"
}

// Translator renders product descriptions in the catalog language.
type Translator struct {
	client   *Client
	model    string
	language string
	logger   *logger.Logger
}

func NewTranslator(client *Client, model, targetLanguage string, logger *logger.Logger) *Translator {
	return &Translator{client: client, model: model, language: LanguageName(targetLanguage), logger: logger}
}

func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(`
Translate this product description into %[1]s.

Description: %[2]s

Requirements:
- If the description is already in %[1]s, return it unchanged
- Keep product names, brands, units and numbers as they are
- Do not add information that is not in the description

Return ONLY the translated description, no explanations.
`, t.language, text)

	out, err := t.client.Chat(ctx, ChatRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []Message{
			{Role: "system", Content: "You are a professional e-commerce translator."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Summarizer writes a short digest of the attributes that matter for search.
type Summarizer struct {
	client *Client
	model  string
	logger *logger.Logger
}

func NewSummarizer(client *Client, model string, logger *logger.Logger) *Summarizer {
	return &Summarizer{client: client, model: model, logger: logger}
}

func (s *Summarizer) Summarize(ctx context.Context, name string, attributes map[string]string) (string, error) {
	if len(attributes) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lines strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&lines, "- %s: %s\n", k, attributes[k])
	}

	prompt := fmt.Sprintf(`
Summarize the attributes of the product "%s" in one or two short sentences.

Attributes:
%s
Requirements:
- Mention only attributes a shopper would search for (material, size, flavor, dietary or certification details)
- Skip internal identifiers such as SKUs
- Write in English, no marketing language

Return ONLY the summary, no explanations.
`, name, lines.String())

	out, err := s.client.Chat(ctx, ChatRequest{
		Model:       s.model,
		Temperature: 0.2,
		MaxTokens:   200,
		Messages: []Message{
			{Role: "system", Content: "You are an e-commerce catalog specialist."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ClassifyInput is what a classifier sees of a product.
type ClassifyInput struct {
	Name       string
	Text       string
	Categories []string
}

// Classification is the structured classifier answer.
type Classification struct {
	Category *string  `json:"category"`
	Types    []string `json:"type"`
}

// ChatClassifier asks a chat model to pick one category from a closed list.
type ChatClassifier struct {
	name   string
	client *Client
	model  string
	logger *logger.Logger
}

func NewChatClassifier(name string, client *Client, model string, logger *logger.Logger) *ChatClassifier {
	return &ChatClassifier{name: name, client: client, model: model, logger: logger}
}

func (c *ChatClassifier) Name() string {
	return c.name
}

func (c *ChatClassifier) Classify(ctx context.Context, in ClassifyInput) (*Classification, error) {
	categories, err := json.Marshal(in.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal categories: %w", err)
	}

	prompt := fmt.Sprintf(`
Classify this product.

Product name: %s
Product description: %s
Allowed categories: %s

Provide a JSON response with the following structure:
{
  "category": "one of the allowed categories, or null",
  "type": ["short lower case tags"]
}

Requirements:
- category must be copied exactly from the allowed categories, or null if none fits
- type lists product traits such as "organic", "kosher", "vegan", "gluten free", "bundle"
- type may be empty

Return ONLY the JSON response, no explanations.
`, in.Name, in.Text, string(categories))

	out, err := c.client.Chat(ctx, ChatRequest{
		Model:          c.model,
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		Messages: []Message{
			{Role: "system", Content: "You are a product taxonomy expert. You answer in JSON."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}
	return ParseClassification(out)
}

// ParseClassification decodes a classifier answer, tolerating markdown code
// fences around the JSON.
func ParseClassification(raw string) (*Classification, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var result Classification
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}
	return &result, nil
}

// Embedder turns enriched text into a fixed-size vector.
type Embedder struct {
	client     *Client
	model      string
	dimensions int
}

func NewEmbedder(client *Client, model string, dimensions int) *Embedder {
	return &Embedder{client: client, model: model, dimensions: dimensions}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty embedding input")
	}
	return e.client.Embed(ctx, e.model, text, e.dimensions)
}
