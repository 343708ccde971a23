package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/taskwise/internal"
	"github.com/starford/taskwise/internal/interpreter"
	pkgconfig "github.com/starford/taskwise/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func ask(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("usage: taskwise ask <request>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if d := cmd.Duration("timeout"); d > 0 {
		cfg.LLM.Timeout = d
	}
	return internal.Ask(ctx, prompt, interpreter.AskOptions{
		APIKey:  cmd.String("api-key"),
		Verbose: cmd.Bool("verbose"),
	}, internal.WithConfig(cfg))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func importFile(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("usage: taskwise import <file>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Import(ctx, file, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:    "taskwise",
		Usage:   "Manage notebooks and tasks with plain-English requests",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Interpret a request and apply it to the task store",
				ArgsUsage: "<request>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "API key for the language model (overrides config and OPENAI_API_KEY)",
						Sources: cli.EnvVars("TASKWISE_API_KEY"),
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Show the request id, path, issued commands and debug logs",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Language model timeout (overrides llm.timeout)",
					},
				},
				Action: ask,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live events and the import watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "import",
				Usage:     "Import a .json or .md task file",
				ArgsUsage: "<file>",
				Action:    importFile,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
