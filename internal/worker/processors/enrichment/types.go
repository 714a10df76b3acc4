package enrichment

import (
	"regexp"
	"strings"
)

const (
	TypeOnSale = "on sale"
	TypeBundle = "bundle"
)

type typeRule struct {
	typ     string
	pattern *regexp.Regexp
}

var certificationRules = []typeRule{
	{"kosher", regexp.MustCompile(`(?i)\bkosher\b|כשר`)},
	{"organic", regexp.MustCompile(`(?i)\b(organic|bio)\b|אורגני`)},
	{"vegan", regexp.MustCompile(`(?i)\bvegan\b|טבעוני`)},
	{"gluten free", regexp.MustCompile(`(?i)\bgluten[\s-]?free\b|ללא גלוטן`)},
	{"halal", regexp.MustCompile(`(?i)\bhalal\b`)},
	{"fair trade", regexp.MustCompile(`(?i)\bfair[\s-]?trade\b`)},
	{"certified", regexp.MustCompile(`(?i)\bcertified\b`)},
}

var bundlePattern = regexp.MustCompile(`(?i)\b\d+\s*-?\s*(pack|pk|pcs|pieces|count|ct)\b|\b(set|pack|box|case) of \d+\b|\bbundle\b|\bmulti-?pack\b|\d+\s*[x×]\s*\d+\s*(g|kg|ml|l|oz)\b`)

// LocalTypes applies the keyword rules to the given texts.
func LocalTypes(onSale bool, texts ...string) []string {
	joined := strings.Join(texts, "\n")

	var out []string
	for _, rule := range certificationRules {
		if rule.pattern.MatchString(joined) {
			out = append(out, rule.typ)
		}
	}
	if bundlePattern.MatchString(joined) {
		out = append(out, TypeBundle)
	}
	if onSale {
		out = append(out, TypeOnSale)
	}
	return out
}

// MergeTypes unions type lists case-insensitively, keeping first-seen order
// and lower-casing every tag.
func MergeTypes(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, list := range lists {
		for _, t := range list {
			t = strings.ToLower(strings.Join(strings.Fields(t), " "))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
