package commands

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"justdraft/clients/tui"
	"justdraft/internal/auth"
	"justdraft/internal/config"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Capture a draft from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory for export artifacts",
			},
		},
		Action: runTUI,
	}
}

func runTUI(_ context.Context, cmd *cli.Command) error {
	cfg := loadConfig(cmd)

	secret, err := gateSecret(cfg)
	if err != nil {
		return err
	}

	client, err := cliExtractor(cfg, "")
	if err != nil {
		return err
	}

	exportDir := cmd.String("out")
	if exportDir == "" {
		exportDir = cfg.Exports.Dir
	}
	if exportDir == "" {
		exportDir = filepath.Join(config.JustdraftPath(), "exports")
	}

	app := tui.NewApp(auth.NewGate(secret), client, exportDir)
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
