package config

import "time"

// Config is the root configuration for justdraft.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Auth    AuthGate      `json:"auth"`
	Models  ModelsConfig  `json:"models"`
	Extract ExtractConfig `json:"extract"`
	Exports ExportsConfig `json:"exports"`
	Events  EventsConfig  `json:"events"`
	Usage   UsageConfig   `json:"usage"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AuthGate configures the shared-password gate.
// An empty password means the gate is unconfigured and denies all access.
type AuthGate struct {
	Password string `json:"password,omitempty"` // plain value or ENC[age:...] blob
}

// ModelsConfig holds model provider configuration.
type ModelsConfig struct {
	Default   string                    `json:"default"`
	Providers map[string]ProviderConfig `json:"providers"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Driver    string         `json:"driver"` // "gemini", "openai", "claude", "ollama"
	Model     string         `json:"model"`
	BaseURL   string         `json:"base_url,omitempty"`
	Auth      AuthConfig     `json:"auth"`
	MaxTokens int            `json:"max_tokens,omitempty"`
	Timeout   Duration       `json:"timeout,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// AuthConfig configures API key resolution for a provider.
type AuthConfig struct {
	APIKey string `json:"api_key,omitempty"` // Direct API key or ${{ .Env.VAR }} template
}

// ExtractConfig holds extraction client settings.
type ExtractConfig struct {
	Candidates []string `json:"candidates,omitempty"` // ordered fallback model list
	Profile    string   `json:"profile,omitempty"`    // named extraction profile
}

// ExportsConfig configures where export artifacts are written.
type ExportsConfig struct {
	Dir string `json:"dir,omitempty"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// UsageConfig configures the sqlite usage ledger. The path defaults to
// $JUSTDRAFT_PATH/usage.db; set Disabled to turn the ledger off.
type UsageConfig struct {
	Disabled bool   `json:"disabled,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
