package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/soptranslator/internal/llm"
	"github.com/starford/soptranslator/internal/translator"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Defaults.
const (
	DefaultModel       = "llama3.1:8b"
	DefaultEndpoint    = "http://localhost:11434"
	DefaultTemperature = 0.2
	DefaultTimeout     = 180 * time.Second
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Model  ModelConfig       `yaml:"model"`
	Layout LayoutConfig      `yaml:"layout"`
	Output OutputConfig      `yaml:"output"`
	Watch  WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	RepoRoot  string     `yaml:"repo_root"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
		validation.Field(&c.RepoRoot, validation.Required),
	)
}

// ModelConfig selects the model and how to reach its host.
type ModelConfig struct {
	Name        string        `yaml:"name"`
	API         string        `yaml:"api"`
	Endpoint    string        `yaml:"endpoint"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate validates the model configuration.
func (c *ModelConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.API, validation.Required, validation.In(llm.APIOllama, llm.APIOpenAI)),
		validation.Field(&c.Endpoint, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// Settings converts the configuration for llm.New.
func (c *ModelConfig) Settings() llm.Settings {
	return llm.Settings{
		API:         c.API,
		Endpoint:    c.Endpoint,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
}

// LayoutConfig holds the companion document paths, relative to the repo root.
type LayoutConfig struct {
	Spec     string `yaml:"spec"`
	Rules    string `yaml:"rules"`
	Contract string `yaml:"contract"`
	Template string `yaml:"template"`
}

// Validate validates the layout configuration.
func (c *LayoutConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Spec, validation.Required, validation.By(relativePath)),
		validation.Field(&c.Rules, validation.Required, validation.By(relativePath)),
		validation.Field(&c.Contract, validation.Required, validation.By(relativePath)),
		validation.Field(&c.Template, validation.Required, validation.By(relativePath)),
	)
}

// OutputConfig names the files written next to the input.
type OutputConfig struct {
	Draft string `yaml:"draft"`
	Notes string `yaml:"notes"`
	Raw   string `yaml:"raw"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Draft, validation.Required, validation.By(fileName)),
		validation.Field(&c.Notes, validation.Required, validation.By(fileName)),
		validation.Field(&c.Raw, validation.Required, validation.By(fileName)),
	)
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// Translator converts the configuration for translator.New.
func (c *Config) Translator() translator.Options {
	return translator.Options{
		RepoRoot: c.App.RepoRoot,
		Model:    c.Model.Name,
		Layout: translator.Layout{
			Spec:     c.Layout.Spec,
			Rules:    c.Layout.Rules,
			Contract: c.Layout.Contract,
			Template: c.Layout.Template,
		},
		Outputs: translator.Outputs{
			Draft: c.Output.Draft,
			Notes: c.Output.Notes,
			Raw:   c.Output.Raw,
		},
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatText,
			RepoRoot:  ".",
		},
		Model: ModelConfig{
			Name:        DefaultModel,
			API:         llm.APIOllama,
			Endpoint:    DefaultEndpoint,
			Temperature: DefaultTemperature,
			Timeout:     DefaultTimeout,
		},
		Layout: LayoutConfig{
			Spec:     "spec.md",
			Rules:    "tools/sop_translator/translation_rules.md",
			Contract: "tools/sop_translator/prompt_contract.md",
			Template: "tools/sop_translator/prompts/translate_prompt.txt",
		},
		Output: OutputConfig{
			Draft: "sop_machine_draft.yaml",
			Notes: "translation_notes.md",
			Raw:   "translator_raw_output.txt",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

func relativePath(value any) error {
	s, _ := value.(string)
	if filepath.IsAbs(s) {
		return errors.New("must be relative to the repo root")
	}
	return nil
}

func fileName(value any) error {
	s, _ := value.(string)
	if s != filepath.Base(s) || s == "." || s == ".." {
		return errors.New("must be a plain file name")
	}
	return nil
}
