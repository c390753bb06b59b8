package models

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"justdraft/internal/config"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiChatModel implements model.ToolCallingChatModel over the Google
// GenAI SDK. It is hand-built rather than using the eino-ext component
// because the extraction contract needs a response MIME type constraint and
// inline image/audio blobs per content part.
type GeminiChatModel struct {
	client       *genai.Client
	modelName    string
	maxTokens    int
	responseMIME string
	tools        []*schema.ToolInfo
}

// NewGemini creates a Gemini ToolCallingChatModel from provider config.
func NewGemini(ctx context.Context, cfg config.ProviderConfig, apiKey string) (model.ToolCallingChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	m := &GeminiChatModel{
		client:    client,
		modelName: modelName,
		maxTokens: cfg.MaxTokens,
	}
	if mime, ok := cfg.Options["response_mime_type"].(string); ok {
		m.responseMIME = mime
	}
	return m, nil
}

// NewGeminiExtractor creates a Gemini model for one extraction call with a
// caller-supplied credential. The response is constrained to JSON.
func NewGeminiExtractor(ctx context.Context, modelName, apiKey string) (model.ToolCallingChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &GeminiChatModel{
		client:       client,
		modelName:    modelName,
		responseMIME: "application/json",
	}, nil
}

func (m *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (outMsg *schema.Message, err error) {
	ctx = callbacks.EnsureRunInfo(ctx, "Gemini", components.ComponentOfChatModel)

	cbInput := &model.CallbackInput{
		Messages: messages,
		Tools:    m.tools,
		Config:   &model.Config{Model: m.modelName},
	}
	ctx = callbacks.OnStart(ctx, cbInput)
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	contents, genCfg, err := m.buildRequest(messages, opts)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.modelName, contents, genCfg)
	if err != nil {
		return nil, HandleError(err)
	}

	outMsg = m.convertResponse(resp)

	usage := &model.TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    outMsg,
		Config:     cbInput.Config,
		TokenUsage: usage,
	})

	return outMsg, nil
}

func (m *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (outStream *schema.StreamReader[*schema.Message], err error) {
	ctx = callbacks.EnsureRunInfo(ctx, "Gemini", components.ComponentOfChatModel)

	cbInput := &model.CallbackInput{
		Messages: messages,
		Tools:    m.tools,
		Config:   &model.Config{Model: m.modelName},
	}
	ctx = callbacks.OnStart(ctx, cbInput)
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	contents, genCfg, err := m.buildRequest(messages, opts)
	if err != nil {
		return nil, err
	}

	sr, sw := schema.Pipe[*model.CallbackOutput](10)
	go m.streamResponse(ctx, contents, genCfg, sw, cbInput.Config)

	ctx, nsr := callbacks.OnEndWithStreamOutput(ctx, sr)

	outStream = schema.StreamReaderWithConvert(nsr,
		func(src *model.CallbackOutput) (*schema.Message, error) {
			if src.Message == nil {
				return nil, schema.ErrNoValue
			}
			return src.Message, nil
		})

	return outStream, nil
}

func (m *GeminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &GeminiChatModel{
		client:       m.client,
		modelName:    m.modelName,
		maxTokens:    m.maxTokens,
		responseMIME: m.responseMIME,
		tools:        tools,
	}, nil
}

// buildRequest converts eino messages into genai contents plus config.
// System messages become the system instruction; multimodal parts become
// inline data blobs.
func (m *GeminiChatModel) buildRequest(messages []*schema.Message, opts []model.Option) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	options := model.GetCommonOptions(&model.Options{
		MaxTokens: &m.maxTokens,
	}, opts...)

	genCfg := &genai.GenerateContentConfig{}
	if m.responseMIME != "" {
		genCfg.ResponseMIMEType = m.responseMIME
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(*options.MaxTokens)
	}
	if options.Temperature != nil {
		genCfg.Temperature = options.Temperature
	}

	var contents []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			genCfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case schema.Assistant:
			parts, err := convertParts(msg)
			if err != nil {
				return nil, nil, err
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		default:
			parts, err := convertParts(msg)
			if err != nil {
				return nil, nil, err
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: parts})
		}
	}

	if len(m.tools) > 0 {
		tools, err := convertTools(m.tools)
		if err != nil {
			return nil, nil, err
		}
		genCfg.Tools = tools
	}

	return contents, genCfg, nil
}

// convertParts maps an eino message to genai parts. Plain Content becomes a
// single text part; MultiContent entries map one-to-one, preserving order.
func convertParts(msg *schema.Message) ([]*genai.Part, error) {
	if len(msg.MultiContent) == 0 {
		return []*genai.Part{{Text: msg.Content}}, nil
	}

	parts := make([]*genai.Part, 0, len(msg.MultiContent))
	for _, p := range msg.MultiContent {
		switch p.Type {
		case schema.ChatMessagePartTypeText:
			parts = append(parts, &genai.Part{Text: p.Text})
		case schema.ChatMessagePartTypeImageURL:
			if p.ImageURL == nil {
				return nil, fmt.Errorf("image part without payload")
			}
			part, err := mediaPart(p.ImageURL.URL, p.ImageURL.MIMEType)
			if err != nil {
				return nil, fmt.Errorf("image part: %w", err)
			}
			parts = append(parts, part)
		case schema.ChatMessagePartTypeAudioURL:
			if p.AudioURL == nil {
				return nil, fmt.Errorf("audio part without payload")
			}
			part, err := mediaPart(p.AudioURL.URL, p.AudioURL.MIMEType)
			if err != nil {
				return nil, fmt.Errorf("audio part: %w", err)
			}
			parts = append(parts, part)
		default:
			return nil, fmt.Errorf("unsupported message part type %q", p.Type)
		}
	}
	return parts, nil
}

// mediaPart turns a data URI into an inline blob, or any other URI into a
// file reference.
func mediaPart(uri, mime string) (*genai.Part, error) {
	payload, dataMIME, ok := decodeDataURI(uri)
	if !ok {
		return &genai.Part{FileData: &genai.FileData{FileURI: uri, MIMEType: mime}}, nil
	}
	if mime == "" {
		mime = dataMIME
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}}, nil
}

// decodeDataURI splits "data:<mime>;base64,<payload>" into its pieces.
func decodeDataURI(uri string) (payload, mime string, ok bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", false
	}
	meta, payload, found := strings.Cut(uri[len("data:"):], ",")
	if !found {
		return "", "", false
	}
	mime = strings.TrimSuffix(meta, ";base64")
	return payload, mime, true
}

func (m *GeminiChatModel) convertResponse(resp *genai.GenerateContentResponse) *schema.Message {
	result := &schema.Message{
		Role:         schema.Assistant,
		Content:      resp.Text(),
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"},
	}

	if resp.UsageMetadata != nil {
		result.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	for _, fc := range resp.FunctionCalls() {
		args, err := json.Marshal(fc.Args)
		if err != nil {
			args = []byte("{}")
		}
		result.ToolCalls = append(result.ToolCalls, schema.ToolCall{
			ID: fc.ID,
			Function: schema.FunctionCall{
				Name:      fc.Name,
				Arguments: string(args),
			},
		})
	}
	if len(result.ToolCalls) > 0 {
		result.ResponseMeta.FinishReason = "tool_calls"
	}

	if len(resp.Candidates) > 0 {
		switch resp.Candidates[0].FinishReason {
		case genai.FinishReasonMaxTokens:
			result.ResponseMeta.FinishReason = "length"
		}
	}

	return result
}

func (m *GeminiChatModel) streamResponse(ctx context.Context, contents []*genai.Content, genCfg *genai.GenerateContentConfig, writer *schema.StreamWriter[*model.CallbackOutput], cfg *model.Config) {
	defer writer.Close()

	var content strings.Builder
	var usage schema.TokenUsage

	send := func(msg *schema.Message, tu *model.TokenUsage, err error) bool {
		return writer.Send(&model.CallbackOutput{
			Message:    msg,
			Config:     cfg,
			TokenUsage: tu,
		}, err)
	}

	for resp, err := range m.client.Models.GenerateContentStream(ctx, m.modelName, contents, genCfg) {
		if err != nil {
			send(nil, nil, HandleError(err))
			return
		}

		if resp.UsageMetadata != nil {
			usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}

		delta := resp.Text()
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if send(&schema.Message{Role: schema.Assistant, Content: delta}, nil, nil) {
			return
		}
	}

	send(&schema.Message{
		Role:    schema.Assistant,
		Content: content.String(),
		ResponseMeta: &schema.ResponseMeta{
			Usage:        &usage,
			FinishReason: "stop",
		},
	}, &model.TokenUsage{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.PromptTokens + usage.CompletionTokens,
	}, nil)
}

// convertTools maps eino tool definitions to genai function declarations.
func convertTools(tools []*schema.ToolInfo) ([]*genai.Tool, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Desc,
		}

		if tool.ParamsOneOf != nil {
			js, err := tool.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", tool.Name, err)
			}
			raw, err := json.Marshal(js)
			if err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", tool.Name, err)
			}
			var schemaMap map[string]any
			if err := json.Unmarshal(raw, &schemaMap); err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", tool.Name, err)
			}
			decl.Parameters = toGenaiSchema(schemaMap)
		}

		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// toGenaiSchema converts a JSON-schema map into genai.Schema, uppercasing
// type names the way the GenAI API expects.
func toGenaiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if pm, ok := raw.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(pm)
			}
		}
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := m["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	return s
}

var _ model.ToolCallingChatModel = (*GeminiChatModel)(nil)
