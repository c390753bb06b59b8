package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/urfave/cli/v3"

	"justdraft/internal/config"
	"justdraft/internal/events"
	"justdraft/internal/extract"
	"justdraft/internal/gateway"
	"justdraft/internal/heartbeat"
	"justdraft/internal/models"
	"justdraft/internal/profiles"
	"justdraft/internal/secrets"
	"justdraft/internal/sessions"
	"justdraft/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Just Draft gateway server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
		},
		Action: runServe,
	}
}

func runServe(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := loadConfig(cmd)
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}

	secret, err := gateSecret(cfg)
	if err != nil {
		return err
	}
	if secret == "" {
		slog.Warn("no application password configured, all logins will be denied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	if cfg.Usage.Path != "" {
		usage, err := storage.NewUsageLog(cfg.Usage.Path)
		if err != nil {
			return fmt.Errorf("open usage ledger: %w", err)
		}
		usage.Attach(bus)
		defer usage.Close()
	}

	prompt, err := extractionPrompt(cfg)
	if err != nil {
		return err
	}

	store := sessions.NewMemStore(secret)
	factory := extractorFactory(cfg, prompt)
	server := gateway.NewServer(bus, store, factory, cfg.Gateway.Host, cfg.Gateway.Port)

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	hb := heartbeat.NewWriter(filepath.Join(config.JustdraftPath(), "heartbeat.json"), addr)
	hb.Start()
	defer hb.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// gateSecret resolves the shared application password, decrypting an
// ENC[age:...] blob when the config carries one.
func gateSecret(cfg *config.Config) (string, error) {
	secret := cfg.Auth.Password
	if !secrets.IsEncrypted(secret) {
		return secret, nil
	}

	identity, err := secrets.LoadIdentity(secrets.KeyPath())
	if err != nil {
		return "", fmt.Errorf("load age key for password: %w", err)
	}
	return secrets.Decrypt(secret, identity)
}

// extractionPrompt loads profiles and renders the configured one.
func extractionPrompt(cfg *config.Config) (string, error) {
	registry := profiles.NewRegistry()
	if err := registry.LoadDir(config.ProfilesDir()); err != nil {
		return "", err
	}

	name := cfg.Extract.Profile
	if name == "" {
		name = profiles.DefaultName
	}
	p, err := registry.Get(name)
	if err != nil {
		return "", err
	}
	return p.Prompt(), nil
}

// extractorFactory builds per-request extraction clients: the caller's
// API key is bound to the client and forgotten with it.
func extractorFactory(cfg *config.Config, prompt string) gateway.ExtractorFactory {
	candidates := cfg.Extract.Candidates
	return func(apiKey string) (*extract.Client, error) {
		modelFactory := func(ctx context.Context, name string) (model.BaseChatModel, error) {
			return models.NewGeminiExtractor(ctx, name, apiKey)
		}
		return extract.NewClient(modelFactory, candidates, prompt), nil
	}
}
