package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/soptranslator/internal"
	pkgconfig "github.com/starford/soptranslator/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("model") {
		cfg.Model.Name = cmd.String("model")
	}
	if cmd.IsSet("repo_root") {
		cfg.App.RepoRoot = cmd.String("repo_root")
	}
	if cmd.IsSet("endpoint") {
		cfg.Model.Endpoint = cmd.String("endpoint")
	}
	if cmd.IsSet("api") {
		cfg.Model.API = cmd.String("api")
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithInput(cmd.String("input")),
		internal.WithWatch(cmd.Bool("watch")),
	}

	return internal.Run(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "sop-translator",
		Usage:  "Translate a human SOP into an agent-readable YAML draft with notes, using a local model",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Usage:    "Path to the human SOP markdown file (sop_human.md)",
				Required: true,
			},
			&cli.StringFlag{
				Name:        "model",
				Usage:       "Model name, e.g. llama3.1:8b, qwen3:32b",
				DefaultText: internal.DefaultModel,
				Sources:     cli.EnvVars("SOP_TRANSLATOR_MODEL"),
			},
			&cli.StringFlag{
				Name:        "repo_root",
				Usage:       "Repo root path (where spec.md lives)",
				DefaultText: ".",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional config file",
				Sources: cli.EnvVars("SOP_TRANSLATOR_CONFIG"),
			},
			&cli.StringFlag{
				Name:        "endpoint",
				Usage:       "Base URL of the local model host",
				DefaultText: internal.DefaultEndpoint,
				Sources:     cli.EnvVars("OLLAMA_HOST_URL"),
			},
			&cli.StringFlag{
				Name:        "api",
				Usage:       "Wire API of the model host: ollama or openai",
				DefaultText: "ollama",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-translate whenever the input file changes",
			},
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
	}
	os.Exit(internal.ExitCode(err))
}
