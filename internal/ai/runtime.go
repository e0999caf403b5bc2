package ai

import (
	"context"
	"strings"
)

// Runtime is implemented by every model backend (Gemini, OpenRouter, Ollama).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used for selection.
const (
	ProviderGemini     = "gemini"
	ProviderGoogle     = "google"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderMeta       = "meta"
	ProviderLlama      = "llama"
	ProviderOllama     = "ollama"
	ProviderLocal      = "local"
)

// ResponseSchema is a structured-output contract. Runtimes pass it to the
// provider as a machine-checked constraint, not as prompt text.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// NormalizeProvider maps aliases onto the registered runtime names.
func NormalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProviderGemini, ProviderGoogle:
		return ProviderGemini
	case ProviderLocal, ProviderOllama:
		return ProviderOllama
	case ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic, ProviderMeta, ProviderLlama:
		return ProviderOpenRouter
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}
