package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"justdraft/internal/models"
)

const audioMIME = "audio/wav"

// ModelFactory produces a chat model for one candidate identifier.
// The extraction client never holds credentials itself; the factory closes
// over them.
type ModelFactory func(ctx context.Context, modelName string) (model.BaseChatModel, error)

// CallObserver is notified after every attempted model call. Used by the
// usage ledger and the event stream; a nil observer is fine.
type CallObserver func(modelName string, usage *schema.TokenUsage, elapsed time.Duration, err error)

// Client extracts tasks and memos from multi-modal input, trying an ordered
// list of candidate models until one succeeds.
type Client struct {
	factory    ModelFactory
	candidates []string
	prompt     string
	observer   CallObserver
}

// NewClient creates an extraction client. candidates must be non-empty;
// prompt defaults to the standard system prompt when empty.
func NewClient(factory ModelFactory, candidates []string, prompt string) *Client {
	if prompt == "" {
		prompt = BuildSystemPrompt(PromptSpec{})
	}
	return &Client{
		factory:    factory,
		candidates: candidates,
		prompt:     prompt,
	}
}

// SetObserver registers a per-call observer.
func (c *Client) SetObserver(obs CallObserver) {
	c.observer = obs
}

// Process runs one extraction. An all-empty input returns an empty Result
// without any model call. Candidates are tried strictly in order; the first
// success wins. Credential and quota failures abort immediately (every
// candidate shares the same credential), unknown-model and transport
// failures move on to the next candidate, and a malformed JSON body in a
// successful response is terminal rather than a fallback trigger.
func (c *Client) Process(ctx context.Context, in Input) (Result, error) {
	if in.Empty() {
		return Result{}, nil
	}

	messages := []*schema.Message{
		schema.SystemMessage(c.prompt),
		{Role: schema.User, MultiContent: buildParts(in)},
	}

	var lastErr error
	for _, name := range c.candidates {
		if in.HasMedia() && !models.SupportsMedia(name) {
			slog.Debug("skipping text-only candidate", "model", name)
			continue
		}

		msg, err := c.call(ctx, name, messages)
		if err != nil {
			lastErr = err
			if models.IsAuthError(err) || models.IsQuotaError(err) {
				// Remaining candidates would fail the same way.
				return Result{}, fmt.Errorf("extraction aborted on %s: %w", name, err)
			}
			slog.Warn("candidate failed, trying next", "model", name, "error", err)
			continue
		}

		result, err := parseResult(msg.Content)
		if err != nil {
			return Result{}, fmt.Errorf("model %s returned unparsable JSON: %w", name, err)
		}
		return result, nil
	}

	if lastErr == nil {
		return Result{}, fmt.Errorf("no candidate model accepts image or audio input")
	}
	return Result{}, fmt.Errorf("all models failed: last error: %w", lastErr)
}

func (c *Client) call(ctx context.Context, name string, messages []*schema.Message) (*schema.Message, error) {
	start := time.Now()

	m, err := c.factory(ctx, name)
	if err != nil {
		c.observe(name, nil, time.Since(start), err)
		return nil, err
	}

	msg, err := m.Generate(ctx, messages)
	if err != nil {
		c.observe(name, nil, time.Since(start), err)
		return nil, err
	}

	var usage *schema.TokenUsage
	if msg.ResponseMeta != nil {
		usage = msg.ResponseMeta.Usage
	}
	c.observe(name, usage, time.Since(start), nil)
	return msg, nil
}

func (c *Client) observe(name string, usage *schema.TokenUsage, elapsed time.Duration, err error) {
	if c.observer != nil {
		c.observer(name, usage, elapsed, err)
	}
}

// buildParts assembles the ordered content parts: text first (or the
// generic instruction when no text was given), then image, then audio.
func buildParts(in Input) []schema.ChatMessagePart {
	var parts []schema.ChatMessagePart

	text := strings.TrimSpace(in.Text)
	if text == "" {
		text = GenericInstruction
	}
	parts = append(parts, schema.ChatMessagePart{
		Type: schema.ChatMessagePartTypeText,
		Text: text,
	})

	if in.Image != nil {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeImageURL,
			ImageURL: &schema.ChatMessageImageURL{
				URL:      dataURI(in.Image.MIME, in.Image.Data),
				MIMEType: in.Image.MIME,
			},
		})
	}

	if in.Audio != nil {
		parts = append(parts, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeAudioURL,
			AudioURL: &schema.ChatMessageAudioURL{
				URL:      dataURI(audioMIME, in.Audio.Data),
				MIMEType: audioMIME,
			},
		})
	}

	return parts
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// parseResult decodes the model's JSON body. A stray markdown fence around
// the body is tolerated; anything else propagates as a parse failure.
func parseResult(body string) (Result, error) {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}

	var result Result
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return Result{}, err
	}
	return result, nil
}
