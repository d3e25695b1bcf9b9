// Package parser extracts fenced blocks from model replies and checks that
// a YAML draft is structurally well formed.
package parser

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Labels of the two blocks a reply must carry.
const (
	LabelDraft = "yaml"
	LabelNotes = "markdown"
)

const fence = "```"

var (
	draftRe = fencePattern(LabelDraft)
	notesRe = fencePattern(LabelNotes)
)

// fencePattern matches a block opened by ```label and closed by the next ```.
func fencePattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)` + fence + regexp.QuoteMeta(label) + `\s*(.*?)\s*` + fence)
}

func fenceRe(label string) *regexp.Regexp {
	switch label {
	case LabelDraft:
		return draftRe
	case LabelNotes:
		return notesRe
	default:
		return fencePattern(label)
	}
}

// FencedBlock returns the trimmed interior of the first fenced block opened
// with label (case-insensitive). The second return value is false when no
// such block exists or its interior is blank. Nested fences are not handled.
func FencedBlock(text, label string) (string, bool) {
	m := fenceRe(label).FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	block := strings.TrimSpace(m[1])
	if block == "" {
		return "", false
	}
	return block, true
}

// Validation is the result of a structural parse.
type Validation struct {
	Valid   bool
	Message string
}

// ValidateYAML parses text as a single generic YAML document tree. No schema
// is applied. A stream carrying more than one document is rejected.
func ValidateYAML(text string) Validation {
	if err := decodeSingle(text); err != nil {
		return Validation{Valid: false, Message: "YAML parse error: " + err.Error()}
	}
	return Validation{Valid: true, Message: "YAML parsed successfully."}
}

var errMultipleDocuments = errors.New("expected a single document in the stream, but found another document")

func decodeSingle(text string) error {
	dec := yaml.NewDecoder(strings.NewReader(text))

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	var next any
	switch err := dec.Decode(&next); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errMultipleDocuments
	}
}

// HasHeading reports whether the first non-blank character of text is a
// Markdown heading marker.
func HasHeading(text string) bool {
	return strings.HasPrefix(strings.TrimLeft(text, " \t\r\n"), "#")
}
