// Package guard implements the numeric-invention guardrail: numbers in a
// model draft that never appear in the reference material are flagged.
package guard

import (
	"regexp"
	"sort"
)

var numberRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

// Set is a set of numeric literal tokens.
type Set map[string]struct{}

// Has reports whether tok is in the set.
func (s Set) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Sorted returns the tokens in ascending string order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for tok := range s {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Numbers returns the distinct integer and decimal literals in text.
func Numbers(text string) Set {
	matches := numberRe.FindAllString(text, -1)
	s := make(Set, len(matches))
	for _, m := range matches {
		s[m] = struct{}{}
	}
	return s
}

// Invented returns the numbers of draft that do not occur in reference,
// sorted. Tokens are compared literally, so "5" and "5.0" differ.
func Invented(draft, reference string) []string {
	ref := Numbers(reference)
	var out []string
	for _, tok := range Numbers(draft).Sorted() {
		if !ref.Has(tok) {
			out = append(out, tok)
		}
	}
	return out
}
