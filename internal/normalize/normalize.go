// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns meeting titles and account names into comparable
// tokens.
package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinTokenLength is the shortest token kept by Tokens. Shorter tokens
// ("de", "da", "&") carry no signal.
const MinTokenLength = 3

// DefaultStopWords are venue, lodging, and meeting-type terms that appear in
// titles and account names without identifying a customer.
var DefaultStopWords = []string{
	"hotel", "pousada", "beach", "praia", "resort", "flat",
	"apart", "residence", "inn", "hostel", "eco", "park",
	"reprotel", "&", "confirmad", "alinhamento", "call",
	"kick", "off", "apresentacao", "resultados", "cs",
}

// Normalizer folds and tokenizes text. It is immutable after construction
// and safe for concurrent use.
type Normalizer struct {
	stop map[string]struct{}
}

// New returns a Normalizer using DefaultStopWords plus extra.
func New(extra ...string) *Normalizer {
	stop := make(map[string]struct{}, len(DefaultStopWords)+len(extra))
	for _, w := range DefaultStopWords {
		stop[w] = struct{}{}
	}
	for _, w := range extra {
		if w = Fold(w); w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Normalizer{stop: stop}
}

// Fold lower-cases and trims text.
func Fold(text string) string {
	return strings.TrimSpace(Lower(text))
}

// Lower lower-cases text with the same Unicode rules as Fold but keeps
// surrounding whitespace.
func Lower(text string) string {
	// A Caser keeps state between calls, so one is made per call.
	return cases.Lower(language.Und).String(text)
}

// Len returns the length of s in characters.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// IsStopWord reports whether the folded token w is in the stop-word set.
func (n *Normalizer) IsStopWord(w string) bool {
	_, ok := n.stop[w]
	return ok
}

// Tokens folds text, splits it on whitespace, and drops short tokens and
// stop words. Empty input yields nil.
func (n *Normalizer) Tokens(text string) []string {
	var out []string
	for _, w := range strings.Fields(Fold(text)) {
		if Len(w) < MinTokenLength || n.IsStopWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}
