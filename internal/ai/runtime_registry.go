package ai

import "time"

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries common knobs used by runtimes.
type RuntimeConfig struct {
	// Common
	HTTPTimeout       time.Duration
	RetryMax          int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	RequestsPerMinute int
	// Gemini / OpenRouter
	APIKey  string
	BaseURL string
	// Ollama
	Host string
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider (aliases allowed) if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[NormalizeProvider(name)]; ok {
		return f(cfg), true
	}
	return nil, false
}

// Providers lists the registered runtime names.
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenRouter, ProviderOllama}
}

func init() {
	RegisterRuntime(ProviderGemini, func(c RuntimeConfig) Runtime {
		g := NewGeminiClient(c.APIKey, c.BaseURL, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
		g.paceRequests(c.RequestsPerMinute)
		return g
	})
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		cl := NewClientWithBaseURL(c.APIKey, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay, c.BaseURL)
		cl.paceRequests(c.RequestsPerMinute)
		return cl
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		o := NewOllamaClient(c.Host, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
		o.paceRequests(c.RequestsPerMinute)
		return o
	})
}
