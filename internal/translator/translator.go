// Package translator runs one SOP translation: it checks the required
// documents, prompts the model, extracts the draft and notes blocks, applies
// the guardrails, and writes the outputs next to the input file.
package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/soptranslator/internal/apperr"
	"github.com/starford/soptranslator/internal/guard"
	"github.com/starford/soptranslator/internal/llm"
	"github.com/starford/soptranslator/internal/parser"
	"github.com/starford/soptranslator/internal/prompt"
	"github.com/starford/soptranslator/internal/storage"
)

// Layout holds the companion document paths, relative to the repository root.
type Layout struct {
	Spec     string
	Rules    string
	Contract string
	Template string
}

func (l Layout) paths() []string {
	return []string{l.Spec, l.Rules, l.Contract, l.Template}
}

// Outputs holds the file names written next to the input.
type Outputs struct {
	Draft string
	Notes string
	Raw   string
}

// Options configure a Translator.
type Options struct {
	RepoRoot string
	Model    string
	Layout   Layout
	Outputs  Outputs
}

// Corpus is the reference material loaded fresh for every run.
type Corpus struct {
	Template string
	Spec     string
	Rules    string
	Contract string
	Input    string
}

// Reference returns the text the numeric guardrail treats as ground truth.
func (c Corpus) Reference() string {
	return c.Input + "\n" + c.Spec + "\n" + c.Rules + "\n" + c.Contract
}

// Report describes what a run did. It is returned even when the run fails.
type Report struct {
	Outcome    apperr.Outcome
	InputPath  string
	DraftPath  string
	NotesPath  string
	RawPath    string
	Missing    []string
	Invented   []string
	Validation parser.Validation
}

// Translator wires the prompt, model client, and guardrails together.
type Translator struct {
	client llm.Client
	opts   Options
	logger *slog.Logger
}

// New creates a Translator.
func New(client llm.Client, opts Options, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{client: client, opts: opts, logger: logger}
}

// workspace is the pair of roots a run reads from and writes to.
type workspace struct {
	repo      storage.Provider
	out       storage.Provider
	inputPath string
	inputName string
}

// Run translates the document at inputPath. The returned error classifies
// the outcome via apperr.OutcomeOf; a nil error means exit status 0.
func (t *Translator) Run(ctx context.Context, inputPath string) (*Report, error) {
	report := &Report{}
	err := t.run(ctx, inputPath, report)
	report.Outcome = apperr.OutcomeOf(err)
	return report, err
}

func (t *Translator) run(ctx context.Context, inputPath string, report *Report) error {
	ws, err := t.resolve(inputPath, report)
	if err != nil {
		return err
	}
	report.InputPath = ws.inputPath

	corpus, err := t.load(ws)
	if err != nil {
		return err
	}

	p := prompt.Build(corpus.Template, prompt.References{
		Spec:     corpus.Spec,
		Rules:    corpus.Rules,
		Contract: corpus.Contract,
		Input:    corpus.Input,
	})

	t.logger.Info("calling model",
		slog.String("model", t.opts.Model),
		slog.String("api", t.client.Name()),
		slog.Int("prompt_bytes", len(p)))

	reply, err := t.client.Complete(ctx, t.opts.Model, p)
	if err != nil {
		t.logger.Error("model request failed", slog.String("error", err.Error()))
		t.logger.Info("hint: ensure Ollama is running and the model is pulled: ollama pull " + t.opts.Model)
		return fmt.Errorf("translate: %w", err)
	}

	draft, okDraft := parser.FencedBlock(reply, parser.LabelDraft)
	notes, okNotes := parser.FencedBlock(reply, parser.LabelNotes)
	if !okDraft || !okNotes {
		return t.writeMalformed(ws, reply, report)
	}

	report.Invented = guard.Invented(draft, corpus.Reference())
	report.Validation = parser.ValidateYAML(draft)

	if err := ws.out.Write(t.opts.Outputs.Draft, []byte(draft+"\n")); err != nil {
		return fmt.Errorf("translate: write draft: %w", err)
	}
	report.DraftPath = filepath.Join(ws.out.Root(), t.opts.Outputs.Draft)

	final := composeNotes(notes, report.Invented, report.Validation)
	if err := ws.out.Write(t.opts.Outputs.Notes, []byte(final)); err != nil {
		return fmt.Errorf("translate: write notes: %w", err)
	}
	report.NotesPath = filepath.Join(ws.out.Root(), t.opts.Outputs.Notes)

	t.logger.Info("wrote", slog.String("path", report.DraftPath))
	t.logger.Info("wrote", slog.String("path", report.NotesPath))

	if len(report.Invented) > 0 {
		t.logger.Warn("potential invented numbers detected",
			slog.Any("numbers", report.Invented),
			slog.String("see", t.opts.Outputs.Notes))
	}
	if !report.Validation.Valid {
		t.logger.Warn("YAML parse issue detected",
			slog.String("detail", report.Validation.Message),
			slog.String("see", t.opts.Outputs.Notes))
		return fmt.Errorf("translate: %w: %s", apperr.ErrValidation, report.Validation.Message)
	}

	t.logger.Info("translation draft generated")
	return nil
}

// resolve checks that the input and every companion document exist. All
// missing paths are reported together; nothing is written.
func (t *Translator) resolve(inputPath string, report *Report) (*workspace, error) {
	inputAbs, err := filepath.Abs(inputPath)
	if err != nil {
		return nil, fmt.Errorf("translate: resolve input: %w", err)
	}
	rootAbs, err := filepath.Abs(t.opts.RepoRoot)
	if err != nil {
		return nil, fmt.Errorf("translate: resolve repo root: %w", err)
	}

	var missing []string

	ws := &workspace{inputPath: inputAbs, inputName: filepath.Base(inputAbs)}
	out, outErr := storage.NewFS(filepath.Dir(inputAbs))
	if outErr != nil || !out.Exists(ws.inputName) {
		missing = append(missing, inputAbs)
	}
	repo, repoErr := storage.NewFS(rootAbs)
	for _, rel := range t.opts.Layout.paths() {
		if repoErr != nil || !repo.Exists(rel) {
			missing = append(missing, filepath.Join(rootAbs, filepath.FromSlash(rel)))
		}
	}

	if len(missing) > 0 {
		for _, p := range missing {
			t.logger.Error("missing required file", slog.String("path", p))
		}
		report.Missing = missing
		return nil, &apperr.MissingFileError{Paths: missing}
	}

	ws.out = out
	ws.repo = repo
	return ws, nil
}

func (t *Translator) load(ws *workspace) (Corpus, error) {
	var c Corpus
	var errs []error
	read := func(p storage.Provider, rel string, dst *string) {
		data, err := p.Read(rel)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*dst = string(data)
	}
	read(ws.repo, t.opts.Layout.Template, &c.Template)
	read(ws.repo, t.opts.Layout.Spec, &c.Spec)
	read(ws.repo, t.opts.Layout.Rules, &c.Rules)
	read(ws.repo, t.opts.Layout.Contract, &c.Contract)
	read(ws.out, ws.inputName, &c.Input)
	if err := errors.Join(errs...); err != nil {
		return Corpus{}, fmt.Errorf("translate: load corpus: %w", err)
	}
	return c, nil
}

// writeMalformed preserves the raw reply and points the notes file at it.
func (t *Translator) writeMalformed(ws *workspace, reply string, report *Report) error {
	if err := ws.out.Write(t.opts.Outputs.Raw, []byte(reply)); err != nil {
		return fmt.Errorf("translate: write raw output: %w", err)
	}
	report.RawPath = filepath.Join(ws.out.Root(), t.opts.Outputs.Raw)

	if err := ws.out.Write(t.opts.Outputs.Notes, []byte(errorNotes(t.opts.Outputs.Raw))); err != nil {
		return fmt.Errorf("translate: write notes: %w", err)
	}
	report.NotesPath = filepath.Join(ws.out.Root(), t.opts.Outputs.Notes)

	t.logger.Error("output formatting invalid, saved raw output", slog.String("path", report.RawPath))
	return fmt.Errorf("translate: %w", apperr.ErrMalformedOutput)
}
