// Package normalize cleans and tokenizes raw user messages before they
// reach the classifier and decision engine. Messages arriving from the
// web UI may carry markup, so HTML is stripped before text cleaning.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// contractions expanded before punctuation stripping. Order matters:
// full-word forms go first so "won't" does not degrade into "wo not".
var contractions = []struct{ from, to string }{
	{"won't", "will not"},
	{"can't", "cannot"},
	{"n't", " not"},
	{"'re", " are"},
	{"'ve", " have"},
	{"'ll", " will"},
	{"'d", " would"},
	{"'m", " am"},
}

// spellFixes covers the handful of typos frequent enough in chat logs
// to throw off intent keywords.
var spellFixes = map[string]string{
	"teh":  "the",
	"adn":  "and",
	"taht": "that",
	"waht": "what",
	"hwo":  "how",
	"whne": "when",
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"being": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true,
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialRe    = regexp.MustCompile(`[^\w\s.,!?-]`)
)

// Result holds the stages of preprocessing for one message.
type Result struct {
	Original string
	Cleaned  string
	Tokens   []string
	// FilteredTokens is Tokens with stopwords removed.
	FilteredTokens []string
}

// Clean lowercases, expands contractions, collapses whitespace, and
// strips special characters while keeping basic punctuation. Empty
// input yields an empty string.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)
	for _, c := range contractions {
		text = strings.ReplaceAll(text, c.from, c.to)
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// SpellCorrect applies the fixed typo table word by word.
func SpellCorrect(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		if fixed, ok := spellFixes[w]; ok {
			words[i] = fixed
		}
	}
	return strings.Join(words, " ")
}

// Tokenize splits cleaned text into tokens, dropping single characters.
func Tokenize(text string) []string {
	var tokens []string
	for _, tok := range strings.Fields(Clean(text)) {
		if len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// RemoveStopwords filters common stopwords from a token list.
func RemoveStopwords(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		if !stopwords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// Preprocess runs the full pipeline: HTML stripping, spell correction,
// cleaning, tokenization, and stopword removal.
func Preprocess(text string) Result {
	if text == "" {
		return Result{}
	}

	plain := StripHTML(text)
	corrected := SpellCorrect(strings.ToLower(plain))
	cleaned := Clean(corrected)
	tokens := Tokenize(cleaned)

	return Result{
		Original:       text,
		Cleaned:        cleaned,
		Tokens:         tokens,
		FilteredTokens: RemoveStopwords(tokens),
	}
}

// skipElements are HTML elements whose content is never user text.
var skipElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Head:     true,
}

// StripHTML returns the visible text of a message that may contain
// markup. Input without tags passes through unchanged apart from
// whitespace normalization at later stages.
func StripHTML(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return raw
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var b strings.Builder
	extractText(doc, &b)
	return strings.TrimSpace(b.String())
}

func extractText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skipElements[n.DataAtom] {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b)
	}
}
