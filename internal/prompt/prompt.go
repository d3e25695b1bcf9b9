// Package prompt assembles the single prompt sent to the model.
package prompt

import "strings"

const separator = "\n\n---\n\n"

// Section headings, in the order they appear in the prompt.
const (
	HeadingSpec     = "spec.md"
	HeadingRules    = "translation_rules.md"
	HeadingContract = "prompt_contract.md"
	HeadingInput    = "Human SOP (input)"
)

// References are the documents appended to the instruction template.
type References struct {
	Spec     string
	Rules    string
	Contract string
	Input    string
}

// Build returns the trimmed template followed by each reference under its
// own separator and heading. The layout is fixed so identical inputs give
// byte-identical prompts.
func Build(template string, refs References) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(template))
	for _, s := range []struct{ heading, body string }{
		{HeadingSpec, refs.Spec},
		{HeadingRules, refs.Rules},
		{HeadingContract, refs.Contract},
		{HeadingInput, refs.Input},
	} {
		sb.WriteString(separator)
		sb.WriteString("## ")
		sb.WriteString(s.heading)
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(s.body))
	}
	return sb.String()
}
