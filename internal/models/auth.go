package models

import (
	"fmt"
	"os"
	"strings"

	"justdraft/internal/config"
)

// ResolveAPIKey resolves the credential for a provider.
// Resolution order: direct api_key → ${ENV_VAR} indirection → driver default env.
func ResolveAPIKey(cfg config.ProviderConfig) (string, error) {
	key := strings.TrimSpace(cfg.Auth.APIKey)
	if strings.HasPrefix(key, "${") && strings.HasSuffix(key, "}") {
		key = os.Getenv(key[2 : len(key)-1])
	}
	if key != "" {
		return key, nil
	}

	switch strings.ToLower(cfg.Driver) {
	case "gemini":
		for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if v := os.Getenv(env); v != "" {
				return v, nil
			}
		}
		return "", fmt.Errorf("GEMINI_API_KEY not set")
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	case "claude":
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	case "ollama":
		return "", nil // local, no credential
	default:
		return "", fmt.Errorf("unknown driver %q: cannot resolve credential", cfg.Driver)
	}
}
