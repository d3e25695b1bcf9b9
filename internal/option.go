package internal

import (
	"io"

	"github.com/starford/soptranslator/internal/llm"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	input  string
	watch  bool
	client llm.Client
	output io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithInput sets the path of the human SOP to translate.
func WithInput(path string) Option {
	return func(a *application) {
		a.input = path
	}
}

// WithWatch keeps re-translating the input whenever it changes.
func WithWatch(enabled bool) Option {
	return func(a *application) {
		a.watch = enabled
	}
}

// WithClient overrides the model client built from the configuration.
func WithClient(c llm.Client) Option {
	return func(a *application) {
		a.client = c
	}
}

// WithLogOutput redirects log output (stderr by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.output = w
	}
}
