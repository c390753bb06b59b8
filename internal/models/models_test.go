package models

import (
	"context"
	"errors"
	"testing"

	"justdraft/internal/config"
)

func TestSupportsMedia(t *testing.T) {
	cases := []struct {
		model string
		want  bool
	}{
		{"gemini-1.5-flash", true},
		{"gemini-2.0-flash", true},
		{"gemini-2.5-pro", true},
		{"gemini-3-flash-preview", true},
		{"gemini-pro", false},
		{"gpt-3.5-turbo", false},
	}

	for _, tc := range cases {
		if got := SupportsMedia(tc.model); got != tc.want {
			t.Errorf("SupportsMedia(%q) = %v, want %v", tc.model, got, tc.want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsAuthError(errors.New("googleapi: Error 403: forbidden")) {
		t.Error("403 should classify as auth error")
	}
	if !IsAuthError(HandleError(errors.New("invalid API key provided"))) {
		t.Error("normalized auth error should stay classified")
	}
	if !IsQuotaError(errors.New("429 too many requests")) {
		t.Error("429 should classify as quota error")
	}
	if !IsNotFound(errors.New("model not found")) {
		t.Error("not found should classify as such")
	}
	if IsAuthError(nil) || IsQuotaError(nil) || IsNotFound(nil) {
		t.Error("nil must not classify as any error kind")
	}
	if IsAuthError(errors.New("connection refused")) {
		t.Error("connection error misclassified as auth")
	}
}

func TestHandleErrorNil(t *testing.T) {
	if HandleError(nil) != nil {
		t.Error("HandleError(nil) should be nil")
	}
}

func TestResolveAPIKeyEnvIndirection(t *testing.T) {
	t.Setenv("MY_KEY", "abc123")

	key, err := ResolveAPIKey(config.ProviderConfig{
		Driver: "gemini",
		Auth:   config.AuthConfig{APIKey: "${MY_KEY}"},
	})
	if err != nil {
		t.Fatalf("ResolveAPIKey: %v", err)
	}
	if key != "abc123" {
		t.Errorf("key = %q, want abc123", key)
	}
}

func TestResolveAPIKeyDriverDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")

	key, err := ResolveAPIKey(config.ProviderConfig{Driver: "gemini"})
	if err != nil {
		t.Fatalf("ResolveAPIKey: %v", err)
	}
	if key != "gem-key" {
		t.Errorf("key = %q, want gem-key", key)
	}

	if _, err := ResolveAPIKey(config.ProviderConfig{Driver: "warp-drive"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	r := NewRegistry(config.ModelsConfig{
		Default: "missing",
		Providers: map[string]config.ProviderConfig{
			"gemini": {Driver: "gemini", Model: "gemini-1.5-flash"},
		},
	})

	if _, err := r.Get(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown provider name")
	}
	if r.DefaultName() != "missing" {
		t.Errorf("DefaultName = %q", r.DefaultName())
	}
	if names := r.Names(); len(names) != 1 || names[0] != "gemini" {
		t.Errorf("Names = %v", names)
	}
}

func TestRegistryNoDefault(t *testing.T) {
	r := NewRegistry(config.ModelsConfig{})
	if _, err := r.Default(context.Background()); err == nil {
		t.Error("expected error when no default model is configured")
	}
}

func TestDecodeDataURI(t *testing.T) {
	payload, mime, ok := decodeDataURI("data:image/png;base64,aGVsbG8=")
	if !ok {
		t.Fatal("expected data URI to decode")
	}
	if mime != "image/png" {
		t.Errorf("mime = %q, want image/png", mime)
	}
	if payload != "aGVsbG8=" {
		t.Errorf("payload = %q", payload)
	}

	if _, _, ok := decodeDataURI("https://example.com/a.png"); ok {
		t.Error("plain URL must not decode as data URI")
	}
}
