package translator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/soptranslator/internal/apperr"
	"github.com/starford/soptranslator/internal/llm"
	"github.com/starford/soptranslator/internal/testutil"
)

var testLayout = Layout{
	Spec:     "spec.md",
	Rules:    "tools/sop_translator/translation_rules.md",
	Contract: "tools/sop_translator/prompt_contract.md",
	Template: "tools/sop_translator/prompts/translate_prompt.txt",
}

var testOutputs = Outputs{
	Draft: "sop_machine_draft.yaml",
	Notes: "translation_notes.md",
	Raw:   "translator_raw_output.txt",
}

const humanSOP = "# Resin cure\n\n1. Mix 2 parts resin with 8 parts hardener.\n2. Cure for 10 minutes at 0.1 bar.\n"

// testEnv creates a repository with every companion document and an input
// file in its own directory. It returns the repo root and the input path.
func testEnv(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		testLayout.Spec:           "# Spec\nSteps use integer durations, max 5.0 retries.\n",
		testLayout.Rules:          "# Rules\nNever invent values.\n",
		testLayout.Contract:       "# Contract\nReturn a yaml block and a markdown block.\n",
		testLayout.Template:       "You translate human SOPs.\n",
		"sops/resin/sop_human.md": humanSOP,
	})
	return root, filepath.Join(root, "sops", "resin", "sop_human.md")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTranslator(t *testing.T, root string, client llm.Client) *Translator {
	t.Helper()
	return New(client, Options{
		RepoRoot: root,
		Model:    "llama3.1:8b",
		Layout:   testLayout,
		Outputs:  testOutputs,
	}, quietLogger())
}

func ollama(t *testing.T, reply string) (*testutil.ModelHost, llm.Client) {
	t.Helper()
	host := testutil.NewModelHost(t, reply)
	return host, llm.NewOllama(llm.Settings{Endpoint: host.URL, Temperature: 0.2, Timeout: 5 * time.Second})
}

func reply(yamlBody, notes string) string {
	return "Sure.\n\n```yaml\n" + yamlBody + "\n```\n\n```markdown\n" + notes + "\n```\n"
}

func readOut(t *testing.T, input, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(input), name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func exists(input, name string) bool {
	_, err := os.Stat(filepath.Join(filepath.Dir(input), name))
	return err == nil
}

func TestRun_Success(t *testing.T) {
	root, input := testEnv(t)
	draft := "sop:\n  steps:\n    - mix: {resin: 2, hardener: 8}\n    - cure: {minutes: 10, bar: 0.1}"
	host, client := ollama(t, reply(draft, "# Notes\nAll values taken from the input."))

	report, err := newTranslator(t, root, client).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Outcome != apperr.OutcomeSuccess || report.Outcome.ExitCode() != 0 {
		t.Errorf("outcome = %v", report.Outcome)
	}
	if len(report.Invented) != 0 {
		t.Errorf("invented = %v, want none", report.Invented)
	}

	if got := readOut(t, input, testOutputs.Draft); got != draft+"\n" {
		t.Errorf("draft = %q", got)
	}
	notes := readOut(t, input, testOutputs.Notes)
	if notes != "# Notes\nAll values taken from the input.\n" {
		t.Errorf("notes = %q", notes)
	}
	if strings.Contains(notes, "WARNING") {
		t.Error("no warnings expected")
	}
	if exists(input, testOutputs.Raw) {
		t.Error("raw output should only be written on extraction failure")
	}

	reqs := host.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	p := reqs[0].Content
	if !strings.HasPrefix(p, "You translate human SOPs.\n\n---\n\n## spec.md\n\n# Spec") {
		t.Errorf("prompt prefix = %q", p[:min(len(p), 80)])
	}
	if !strings.HasSuffix(p, "## Human SOP (input)\n\n"+strings.TrimSpace(humanSOP)) {
		t.Errorf("prompt should end with the human SOP")
	}
}

func TestRun_SynthesizesHeading(t *testing.T) {
	root, input := testEnv(t)
	_, client := ollama(t, reply("name: resin", "Plain notes without heading."))

	if _, err := newTranslator(t, root, client).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readOut(t, input, testOutputs.Notes); got != "# Translation notes\n\nPlain notes without heading.\n" {
		t.Errorf("notes = %q", got)
	}
}

func TestRun_InventedNumbersAreAdvisory(t *testing.T) {
	root, input := testEnv(t)
	_, client := ollama(t, reply("steps:\n  - wait_minutes: 10\n  - temperature_c: 65\n  - retries: 5.0", "# Notes\nok"))

	report, err := newTranslator(t, root, client).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("invented numbers must not fail the run: %v", err)
	}
	if report.Outcome.ExitCode() != 0 {
		t.Errorf("exit = %d, want 0", report.Outcome.ExitCode())
	}
	if len(report.Invented) != 1 || report.Invented[0] != "65" {
		t.Errorf("invented = %v, want [65]", report.Invented)
	}

	notes := readOut(t, input, testOutputs.Notes)
	want := "# Translation notes\n\n" +
		"WARNING: The YAML draft contains numeric tokens not present in the input/spec/rules/contract.\n" +
		"Potential invented numbers: 65\n" +
		"Review carefully. Prefer replacing with TODO placeholders.\n\n" +
		"# Notes\nok\n"
	if notes != want {
		t.Errorf("notes mismatch:\ngot  %q\nwant %q", notes, want)
	}
}

func TestRun_InvalidYAMLStillWritten(t *testing.T) {
	root, input := testEnv(t)
	bad := "sop:\n  name: resin\n    steps: [2\n bad: indent"
	_, client := ollama(t, reply(bad, "# Notes\nsee draft"))

	report, err := newTranslator(t, root, client).Run(context.Background(), input)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if report.Outcome != apperr.OutcomeValidationWarning || report.Outcome.ExitCode() != 1 {
		t.Errorf("outcome = %v", report.Outcome)
	}
	if got := readOut(t, input, testOutputs.Draft); got != bad+"\n" {
		t.Errorf("draft should be written verbatim, got %q", got)
	}
	notes := readOut(t, input, testOutputs.Notes)
	if !strings.HasPrefix(notes, "# Translation notes\n\nWARNING: YAML parse error: ") {
		t.Errorf("notes = %q", notes)
	}
	if !strings.HasSuffix(notes, "# Notes\nsee draft\n") {
		t.Errorf("notes should keep the model notes, got %q", notes)
	}
}

func TestRun_MalformedOutput(t *testing.T) {
	cases := map[string]string{
		"no blocks":     "I could not translate this.",
		"only yaml":     "```yaml\nname: x\n```",
		"only markdown": "```markdown\n# Notes\n```",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			root, input := testEnv(t)
			_, client := ollama(t, raw)

			report, err := newTranslator(t, root, client).Run(context.Background(), input)
			if !errors.Is(err, apperr.ErrMalformedOutput) {
				t.Fatalf("err = %v, want ErrMalformedOutput", err)
			}
			if report.Outcome.ExitCode() != 1 {
				t.Errorf("exit = %d, want 1", report.Outcome.ExitCode())
			}
			if got := readOut(t, input, testOutputs.Raw); got != raw {
				t.Errorf("raw = %q, want verbatim reply", got)
			}
			want := "# Translation notes\n\nERROR: Model output did not contain required fenced blocks.\n\n" +
				"Saved raw output to translator_raw_output.txt\n"
			if got := readOut(t, input, testOutputs.Notes); got != want {
				t.Errorf("notes = %q", got)
			}
			if exists(input, testOutputs.Draft) {
				t.Error("draft must not be written")
			}
		})
	}
}

type failingClient struct{ calls int }

func (c *failingClient) Name() string { return "failing" }

func (c *failingClient) Complete(context.Context, string, string) (string, error) {
	c.calls++
	return "", fmt.Errorf("ollama: %w: connection refused", apperr.ErrRequestFailed)
}

func TestRun_RequestFailureWritesNothing(t *testing.T) {
	root, input := testEnv(t)
	client := &failingClient{}

	report, err := newTranslator(t, root, client).Run(context.Background(), input)
	if !errors.Is(err, apperr.ErrRequestFailed) {
		t.Fatalf("err = %v, want ErrRequestFailed", err)
	}
	if report.Outcome != apperr.OutcomeRequestFailure {
		t.Errorf("outcome = %v", report.Outcome)
	}
	if client.calls != 1 {
		t.Errorf("calls = %d, want exactly 1 (no retry)", client.calls)
	}
	for _, name := range []string{testOutputs.Draft, testOutputs.Notes, testOutputs.Raw} {
		if exists(input, name) {
			t.Errorf("%s must not be written", name)
		}
	}
}

func TestRun_MissingFiles(t *testing.T) {
	for _, rel := range append(testLayout.paths(), "input") {
		t.Run(rel, func(t *testing.T) {
			root, input := testEnv(t)
			target := filepath.Join(root, filepath.FromSlash(rel))
			if rel == "input" {
				target = input
			}
			if err := os.Remove(target); err != nil {
				t.Fatal(err)
			}
			client := &failingClient{}

			report, err := newTranslator(t, root, client).Run(context.Background(), input)
			var mfe *apperr.MissingFileError
			if !errors.As(err, &mfe) {
				t.Fatalf("err = %v, want MissingFileError", err)
			}
			if len(mfe.Paths) != 1 || mfe.Paths[0] != target {
				t.Errorf("missing = %v, want [%s]", mfe.Paths, target)
			}
			if report.Outcome.ExitCode() != 1 {
				t.Errorf("exit = %d", report.Outcome.ExitCode())
			}
			if client.calls != 0 {
				t.Error("model must not be called")
			}
			for _, name := range []string{testOutputs.Draft, testOutputs.Notes, testOutputs.Raw} {
				if exists(input, name) {
					t.Errorf("%s must not be written", name)
				}
			}
		})
	}
}

func TestRun_MissingRepoRoot(t *testing.T) {
	_, input := testEnv(t)
	tr := newTranslator(t, filepath.Join(t.TempDir(), "nope"), &failingClient{})

	report, err := tr.Run(context.Background(), input)
	if !errors.Is(err, apperr.ErrMissingFile) {
		t.Fatalf("err = %v, want ErrMissingFile", err)
	}
	if len(report.Missing) != 4 {
		t.Errorf("missing = %v, want all four companions", report.Missing)
	}
}

func TestCorpus_Reference(t *testing.T) {
	c := Corpus{Template: "T 99", Spec: "S", Rules: "R", Contract: "C", Input: "I"}
	if got := c.Reference(); got != "I\nS\nR\nC" {
		t.Errorf("reference = %q", got)
	}
}

func TestRun_BrokenSecondDocument(t *testing.T) {
	root, input := testEnv(t)
	draft := "sop:\n  mix: {resin: 2}\n---\nsteps: [unclosed"
	_, client := ollama(t, reply(draft, "# Notes\nok"))

	report, err := newTranslator(t, root, client).Run(context.Background(), input)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if report.Outcome.ExitCode() != 1 {
		t.Errorf("exit = %d, want 1", report.Outcome.ExitCode())
	}
	if got := readOut(t, input, testOutputs.Draft); got != draft+"\n" {
		t.Errorf("draft = %q", got)
	}
	if notes := readOut(t, input, testOutputs.Notes); !strings.Contains(notes, "WARNING: YAML parse error: ") {
		t.Errorf("notes missing validation warning: %q", notes)
	}
}

func TestRun_EmptyReplyIsMalformed(t *testing.T) {
	root, input := testEnv(t)
	_, client := ollama(t, "")

	report, err := newTranslator(t, root, client).Run(context.Background(), input)
	if !errors.Is(err, apperr.ErrMalformedOutput) {
		t.Fatalf("err = %v, want ErrMalformedOutput", err)
	}
	if report.Outcome != apperr.OutcomeMalformedOutput {
		t.Errorf("outcome = %v", report.Outcome)
	}
	if got := readOut(t, input, testOutputs.Raw); got != "" {
		t.Errorf("raw = %q, want empty reply preserved", got)
	}
}
