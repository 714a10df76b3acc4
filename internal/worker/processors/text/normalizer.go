package text

import (
	stdhtml "html"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// blockElements break words apart when their text is joined.
var blockElements = map[atom.Atom]bool{
	atom.Br: true, atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true,
	atom.Ol: true, atom.Tr: true, atom.Td: true, atom.Th: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true,
	atom.H6: true, atom.Section: true, atom.Article: true, atom.Blockquote: true,
	atom.Hr: true, atom.Dd: true, atom.Dt: true,
}

// Normalizer turns product descriptions into clean plain text.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// PlainText strips markup, unescapes entities and collapses whitespace.
// It never panics; if the HTML parser fails, the regex stripper is used.
func (n *Normalizer) PlainText(raw string) (out string) {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			out = n.StripTags(raw)
		}
	}()

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return n.StripTags(raw)
	}

	var b strings.Builder
	walk(doc, &b)
	return collapse(norm.NFC.String(b.String()))
}

func walk(node *html.Node, b *strings.Builder) {
	switch node.Type {
	case html.TextNode:
		b.WriteString(node.Data)
		return
	case html.ElementNode:
		if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
			return
		}
	case html.CommentNode:
		return
	}

	block := node.Type == html.ElementNode && blockElements[node.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
	if block {
		b.WriteByte(' ')
	}
}

// StripTags is the regex fallback: drop script/style blocks and tags, then
// unescape entities.
func (n *Normalizer) StripTags(raw string) string {
	s := scriptPattern.ReplaceAllString(raw, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	s = stdhtml.UnescapeString(s)
	return collapse(norm.NFC.String(s))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
