// Package commands wires the justdraft CLI.
package commands

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"justdraft/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "justdraft",
		Usage: "Turn messy drafts into tasks and memos",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewExtractCommand(),
			NewTUICommand(),
			NewSecretsCommand(),
			NewStatusCommand(),
		},
	}
}

// loadConfig reads the config file named by the --config flag, falling
// back to built-in defaults when the file is absent.
func loadConfig(cmd *cli.Command) *config.Config {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", path, "error", err)
		return config.Default()
	}
	return cfg
}
