package provider

import (
	"errors"
	"strings"
	"testing"

	"noddy-ai-backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		PrimaryModel:       "meta/llama-3.1-405b-instruct",
		NvidiaEndpoint:     "https://nvidia.test/v1/chat/completions",
		OpenRouterEndpoint: "https://openrouter.test/v1/chat/completions",
		GeminiEndpoint:     "https://gemini.test/v1/chat/completions",
		AppReferer:         "http://localhost:5173",
		AppTitle:           "Noddy AI",
	}
}

func TestResolvePrimaryWithCredential(t *testing.T) {
	cfg := testConfig()
	cfg.NvidiaAPIKey = "nv-key"
	r := NewRouter(cfg)

	desc, warnings, err := r.Resolve("meta/llama-3.1-405b-instruct")
	if err != nil {
		t.Fatal(err)
	}
	if desc.Name != "nvidia" {
		t.Fatalf("expected nvidia, got %s", desc.Name)
	}
	if len(warnings) != 0 {
		t.Fatalf("no warnings expected, got %v", warnings)
	}
}

func TestResolvePrimaryFallsBackWithoutCredential(t *testing.T) {
	cfg := testConfig()
	cfg.OpenRouterAPIKey = "or-key" // primary key absent
	r := NewRouter(cfg)

	desc, warnings, err := r.Resolve("meta/llama-3.1-405b-instruct")
	if err != nil {
		t.Fatalf("fallback must not raise: %v", err)
	}
	if desc.Name != "openrouter" {
		t.Fatalf("expected fallback to openrouter, got %s", desc.Name)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "falling back") {
		t.Fatalf("the silent fallback must surface a warning, got %v", warnings)
	}
}

func TestResolveGenericModelUsesSecondary(t *testing.T) {
	cfg := testConfig()
	cfg.OpenRouterAPIKey = "or-key"
	r := NewRouter(cfg)

	desc, _, err := r.Resolve("mistralai/mixtral-8x7b")
	if err != nil {
		t.Fatal(err)
	}
	if desc.Name != "openrouter" {
		t.Fatalf("expected openrouter, got %s", desc.Name)
	}
	if desc.ExtraHeaders["HTTP-Referer"] == "" || desc.ExtraHeaders["X-Title"] == "" {
		t.Fatal("openrouter descriptor must carry its identification headers")
	}
}

func TestResolveCapabilityTaggedProvider(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = "g-key"
	cfg.OpenRouterAPIKey = "or-key"
	r := NewRouter(cfg)

	desc, _, err := r.Resolve("gemini-2.0-flash")
	if err != nil {
		t.Fatal(err)
	}
	if desc.Name != "gemini" {
		t.Fatalf("expected capability-tagged gemini, got %s", desc.Name)
	}
	if !desc.HasCapability("vision") {
		t.Fatal("gemini descriptor should carry the vision tag")
	}
}

func TestResolveCapabilityWithoutCredentialRoutesToSecondary(t *testing.T) {
	cfg := testConfig()
	cfg.OpenRouterAPIKey = "or-key" // gemini key absent
	r := NewRouter(cfg)

	desc, _, err := r.Resolve("gemini-2.0-flash")
	if err != nil {
		t.Fatal(err)
	}
	if desc.Name != "openrouter" {
		t.Fatalf("expected secondary, got %s", desc.Name)
	}
}

func TestResolveNoCredentialsIsConfigurationError(t *testing.T) {
	r := NewRouter(testConfig()) // no keys at all

	_, _, err := r.Resolve("meta/llama-3.1-405b-instruct")
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if confErr.Provider != "openrouter" {
		t.Fatalf("error should name the resolved provider, got %s", confErr.Provider)
	}
}
