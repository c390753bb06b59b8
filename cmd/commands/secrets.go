package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"justdraft/internal/config"
	"justdraft/internal/secrets"
)

// NewSecretsCommand returns the secrets subcommand. Values are read
// without echo, encrypted with the local age key and stored as
// ENC[age:...] blobs in $JUSTDRAFT_PATH/.env.
func NewSecretsCommand() *cli.Command {
	return &cli.Command{
		Name:  "secrets",
		Usage: "Manage encrypted secrets in .env",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Generate the age key pair if it does not exist",
				Action: runSecretsInit,
			},
			{
				Name:      "set",
				Usage:     "Encrypt a value and store it (e.g. APP_PASSWORD)",
				ArgsUsage: "NAME",
				Action:    runSecretsSet,
			},
		},
	}
}

func runSecretsInit(_ context.Context, _ *cli.Command) error {
	path := secrets.KeyPath()
	if err := secrets.GenerateIdentity(path); err != nil {
		return err
	}
	fmt.Println("age key:", path)
	return nil
}

func runSecretsSet(_ context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.Args().First())
	if name == "" {
		return fmt.Errorf("usage: justdraft secrets set NAME")
	}

	if err := secrets.GenerateIdentity(secrets.KeyPath()); err != nil {
		return err
	}
	identity, err := secrets.LoadIdentity(secrets.KeyPath())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "value for %s: ", name)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read value: %w", err)
	}

	blob, err := secrets.Encrypt(string(raw), identity.Recipient())
	if err != nil {
		return err
	}

	if err := secrets.SetEntry(config.DotenvPath(), name, blob); err != nil {
		return err
	}
	fmt.Printf("%s written to %s\n", name, config.DotenvPath())
	return nil
}
