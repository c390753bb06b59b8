package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/urfave/cli/v3"

	"justdraft/internal/config"
	"justdraft/internal/export"
	"justdraft/internal/extract"
	"justdraft/internal/models"
	"justdraft/internal/storage"
)

// NewExtractCommand returns the extract subcommand: one-shot extraction
// from the terminal, bypassing the gateway (and its password gate).
func NewExtractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract tasks and memos from text, an image or a recording",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "image",
				Usage: "Path to a PNG or JPEG image",
			},
			&cli.StringFlag{
				Name:  "audio",
				Usage: "Path to a WAV recording",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory to write brain.json / tasks.csv / memos.csv / brain.md",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Named provider from the config instead of the Gemini candidate list",
			},
		},
		Action: runExtract,
	}
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	cfg := loadConfig(cmd)

	in := extract.Input{Text: cmd.Args().First()}

	if path := cmd.String("image"); path != "" {
		media, err := readMedia(path, imageMIME(path))
		if err != nil {
			return err
		}
		in.Image = media
	}
	if path := cmd.String("audio"); path != "" {
		media, err := readMedia(path, "audio/wav")
		if err != nil {
			return err
		}
		in.Audio = media
	}

	if in.Empty() {
		return fmt.Errorf("nothing to extract: pass text, --image or --audio")
	}

	client, err := cliExtractor(cfg, cmd.String("provider"))
	if err != nil {
		return err
	}

	if cfg.Usage.Path != "" {
		usage, err := storage.NewUsageLog(cfg.Usage.Path)
		if err != nil {
			return fmt.Errorf("open usage ledger: %w", err)
		}
		defer usage.Close()
		client.SetObserver(recordUsage(usage))
	}

	result, err := client.Process(ctx, in)
	if err != nil {
		return err
	}

	if dir := cmd.String("out"); dir != "" {
		paths, err := export.WriteFiles(dir, result)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	}

	data, err := export.JSON(result)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// cliExtractor builds the extraction client for terminal use. The API
// key comes from the config or the usual environment variables, never
// from a file written by this command.
func cliExtractor(cfg *config.Config, provider string) (*extract.Client, error) {
	prompt, err := extractionPrompt(cfg)
	if err != nil {
		return nil, err
	}

	if provider != "" {
		registry := models.NewRegistry(cfg.Models)
		factory := func(ctx context.Context, _ string) (model.BaseChatModel, error) {
			return registry.Get(ctx, provider)
		}
		// One named provider, no fallback list.
		return extract.NewClient(factory, []string{providerModel(cfg, provider)}, prompt), nil
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	factory := func(ctx context.Context, name string) (model.BaseChatModel, error) {
		return models.NewGeminiExtractor(ctx, name, apiKey)
	}
	return extract.NewClient(factory, cfg.Extract.Candidates, prompt), nil
}

func recordUsage(usage *storage.UsageLog) extract.CallObserver {
	return func(name string, u *schema.TokenUsage, elapsed time.Duration, callErr error) {
		entry := storage.UsageEntry{Model: name, DurationMS: elapsed.Milliseconds(), OK: callErr == nil}
		if u != nil {
			entry.PromptTokens, entry.CompletionTokens = u.PromptTokens, u.CompletionTokens
		}
		if callErr != nil {
			entry.Error = callErr.Error()
		}
		_ = usage.Record(entry)
	}
}

func providerModel(cfg *config.Config, provider string) string {
	if p, ok := cfg.Models.Providers[provider]; ok && p.Model != "" {
		return p.Model
	}
	return provider
}

func imageMIME(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		return "image/jpeg"
	}
	return "image/png"
}

func readMedia(path, mime string) (*extract.Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &extract.Media{MIME: mime, Data: data}, nil
}
