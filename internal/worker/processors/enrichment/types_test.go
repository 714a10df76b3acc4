package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalTypes(t *testing.T) {
	tests := []struct {
		name   string
		onSale bool
		texts  []string
		want   []string
	}{
		{"nothing", false, []string{"Olive oil"}, nil},
		{"kosher category", false, []string{"Olive oil", "Kosher"}, []string{"kosher"}},
		{"hebrew kosher", false, []string{"שמן זית כשר"}, []string{"kosher"}},
		{"gluten free variants", false, []string{"Gluten-free crackers"}, []string{"gluten free"}},
		{"fair trade", false, []string{"Fairtrade coffee"}, []string{"fair trade"}},
		{"certified organic", false, []string{"Certified organic honey"}, []string{"organic", "certified"}},
		{"pack size", false, []string{"Sparkling water 6 pack"}, []string{"bundle"}},
		{"set of", false, []string{"Set of 3 mugs"}, []string{"bundle"}},
		{"multiplier", false, []string{"Yogurt 4 x 150g"}, []string{"bundle"}},
		{"on sale", true, []string{"Tea"}, []string{"on sale"}},
		{"biodegradable is not bio", false, []string{"Biodegradable bags"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalTypes(tt.onSale, tt.texts...))
		})
	}
}

func TestMergeTypes(t *testing.T) {
	got := MergeTypes(
		[]string{"Kosher", " organic ", ""},
		[]string{"kosher", "On  Sale"},
		nil,
		[]string{"on sale", "bundle"},
	)
	assert.Equal(t, []string{"kosher", "organic", "on sale", "bundle"}, got)
	assert.Equal(t, []string{}, MergeTypes())
}
