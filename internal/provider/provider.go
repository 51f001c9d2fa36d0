package provider

import (
	"fmt"
	"strings"

	"noddy-ai-backend/internal/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the ordered message list sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Descriptor maps a provider to its endpoint, credential and capabilities.
// The table is static; it is never mutated at runtime.
type Descriptor struct {
	Name         string
	Endpoint     string
	APIKey       string
	Capabilities []string
	// ModelPrefixes are requested-model prefixes this provider is the
	// preferred home for. The secondary provider accepts anything.
	ModelPrefixes []string
	// ExtraHeaders are provider-required identification headers
	// (e.g. OpenRouter's HTTP-Referer/X-Title).
	ExtraHeaders map[string]string
}

// HasCredential reports whether the provider's API key was configured.
func (d Descriptor) HasCredential() bool {
	return d.APIKey != ""
}

// HasCapability reports whether the provider carries the given tag.
func (d Descriptor) HasCapability(tag string) bool {
	for _, c := range d.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

func (d Descriptor) matchesModel(model string) bool {
	for _, prefix := range d.ModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// ConfigurationError means the resolved provider has no credential. The
// request cannot proceed; callers surface a generic "service unavailable".
type ConfigurationError struct {
	Provider string
	Missing  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s is not configured: missing %s", e.Provider, e.Missing)
}

// UpstreamError is a provider HTTP failure or malformed payload, carrying the
// provider's status and body for the caller. The core never retries it.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s returned status %d: %s", e.Provider, e.Status, e.Body)
}

// Router resolves a requested model name to a provider descriptor.
//
// Policy, in priority order: a capability-tagged provider that matches the
// model and has a credential; the primary provider when the model matches it
// and its credential is present; the secondary provider otherwise. When the
// primary matches but has no credential the route silently falls back to the
// secondary — deliberately, with a warning surfaced to the caller so the
// fallback is observable in the trace.
type Router struct {
	primary      Descriptor
	secondary    Descriptor
	tagged       []Descriptor
	primaryModel string
}

// NewRouter builds the static provider table from configuration.
func NewRouter(cfg *config.Config) *Router {
	return &Router{
		primaryModel: cfg.PrimaryModel,
		primary: Descriptor{
			Name:          "nvidia",
			Endpoint:      cfg.NvidiaEndpoint,
			APIKey:        cfg.NvidiaAPIKey,
			ModelPrefixes: []string{"meta/"},
		},
		secondary: Descriptor{
			Name:     "openrouter",
			Endpoint: cfg.OpenRouterEndpoint,
			APIKey:   cfg.OpenRouterAPIKey,
			ExtraHeaders: map[string]string{
				"HTTP-Referer": cfg.AppReferer,
				"X-Title":      cfg.AppTitle,
			},
		},
		tagged: []Descriptor{
			{
				Name:          "gemini",
				Endpoint:      cfg.GeminiEndpoint,
				APIKey:        cfg.GeminiAPIKey,
				Capabilities:  []string{"vision"},
				ModelPrefixes: []string{"gemini"},
			},
		},
	}
}

// Resolve selects the provider for a requested model. Warnings describe
// non-fatal routing decisions (the silent credential fallback); they belong
// in the caller's trace.
func (r *Router) Resolve(model string) (Descriptor, []string, error) {
	var warnings []string

	for _, d := range r.tagged {
		if d.matchesModel(model) && d.HasCredential() {
			return d, warnings, nil
		}
	}

	resolved := r.secondary
	if model == r.primaryModel || r.primary.matchesModel(model) {
		if r.primary.HasCredential() {
			resolved = r.primary
		} else {
			warnings = append(warnings,
				fmt.Sprintf("primary provider %s has no credential, falling back to %s", r.primary.Name, r.secondary.Name))
		}
	}

	if !resolved.HasCredential() {
		return Descriptor{}, warnings, &ConfigurationError{Provider: resolved.Name, Missing: "API key"}
	}
	return resolved, warnings, nil
}
