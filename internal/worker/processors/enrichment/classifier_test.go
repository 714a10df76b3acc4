package enrichment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enricher/internal/worker/processors/ai"
)

func TestKeywordClassifier(t *testing.T) {
	categories := []string{"Oils & Vinegars", "Snacks", "Dairy", "Candies"}
	tests := []struct {
		name string
		in   ai.ClassifyInput
		want string
	}{
		{"plural category matches singular word", ai.ClassifyInput{Name: "Extra Virgin Olive Oil"}, "Oils & Vinegars"},
		{"text match", ai.ClassifyInput{Name: "Pretzels", Text: "Salty snack for parties"}, "Snacks"},
		{"ies plural", ai.ClassifyInput{Name: "Candy cane"}, "Candies"},
		{"name outweighs text", ai.ClassifyInput{Name: "Dairy butter", Text: "great with any snack"}, "Dairy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Categories = categories
			got, err := NewKeywordClassifier().Classify(context.Background(), tt.in)
			require.NoError(t, err)
			require.NotNil(t, got.Category)
			assert.Equal(t, tt.want, *got.Category)
		})
	}
}

func TestKeywordClassifier_NoMatch(t *testing.T) {
	_, err := NewKeywordClassifier().Classify(context.Background(), ai.ClassifyInput{
		Name:       "Cordless drill",
		Text:       "18V battery",
		Categories: []string{"Snacks", "Drinks"},
	})
	assert.ErrorIs(t, err, ErrNoKeywordMatch)

	_, err = NewKeywordClassifier().Classify(context.Background(), ai.ClassifyInput{Name: "Snacks"})
	assert.ErrorIs(t, err, ErrNoKeywordMatch)
}
