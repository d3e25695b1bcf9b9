package translator

import (
	"strings"

	"github.com/starford/soptranslator/internal/parser"
)

const notesHeading = "# Translation notes\n\n"

func errorNotes(rawName string) string {
	return notesHeading +
		"ERROR: Model output did not contain required fenced blocks.\n\n" +
		"Saved raw output to " + rawName + "\n"
}

// composeNotes prepends guardrail warnings to the model's notes. Without
// warnings the notes only gain a heading when they lack one.
func composeNotes(notes string, invented []string, v parser.Validation) string {
	notes = strings.TrimSpace(notes)

	if len(invented) == 0 && v.Valid {
		if !parser.HasHeading(notes) {
			return notesHeading + notes + "\n"
		}
		return notes + "\n"
	}

	var sb strings.Builder
	sb.WriteString(notesHeading)
	if len(invented) > 0 {
		sb.WriteString("WARNING: The YAML draft contains numeric tokens not present in the input/spec/rules/contract.\n")
		sb.WriteString("Potential invented numbers: " + strings.Join(invented, ", ") + "\n")
		sb.WriteString("Review carefully. Prefer replacing with TODO placeholders.\n\n")
	}
	if !v.Valid {
		sb.WriteString("WARNING: " + v.Message + "\n\n")
	}
	sb.WriteString(notes)
	sb.WriteString("\n")
	return sb.String()
}
