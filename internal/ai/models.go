package ai

import "sort"

// Model metadata and simple pricing helpers for cost logging.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	Provider      string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

var models = map[string]ModelInfo{
	"gemini-2.5-flash":      {Provider: ProviderGemini, ContextTokens: 1048576, InputPerK: 0.0003, OutputPerK: 0.0025},
	"gemini-2.5-flash-lite": {Provider: ProviderGemini, ContextTokens: 1048576, InputPerK: 0.0001, OutputPerK: 0.0004},
	"gemini-2.5-pro":        {Provider: ProviderGemini, ContextTokens: 1048576, InputPerK: 0.00125, OutputPerK: 0.01},
	"gemini-2.0-flash":      {Provider: ProviderGemini, ContextTokens: 1048576, InputPerK: 0.0001, OutputPerK: 0.0004},

	"google/gemini-2.5-flash":     {Provider: ProviderOpenRouter, ContextTokens: 1048576, InputPerK: 0.0003, OutputPerK: 0.0025},
	"openai/gpt-4o-mini":          {Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.00015, OutputPerK: 0.0006},
	"openai/gpt-4o":               {Provider: ProviderOpenRouter, ContextTokens: 128000, InputPerK: 0.0025, OutputPerK: 0.01},
	"anthropic/claude-3.5-sonnet": {Provider: ProviderOpenRouter, ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015},

	"meta-llama/llama-3.1-70b-instruct": {Provider: ProviderOpenRouter, ContextTokens: 131072},

	// Common local (Ollama) tags
	"llama3.1:8b": {Provider: ProviderOllama, ContextTokens: 131072},
	"qwen2.5:7b":  {Provider: ProviderOllama, ContextTokens: 32768},
	"mistral:7b":  {Provider: ProviderOllama, ContextTokens: 32768},
	"phi3:mini":   {Provider: ProviderOllama, ContextTokens: 4096},
	"gemma2:9b":   {Provider: ProviderOllama, ContextTokens: 8192},
}

var defaultModels = map[string]string{
	ProviderGemini:     "gemini-2.5-flash",
	ProviderOpenRouter: "google/gemini-2.5-flash",
	ProviderOllama:     "llama3.1:8b",
}

// DefaultModel returns the model used when none is configured for provider.
func DefaultModel(provider string) string {
	return defaultModels[NormalizeProvider(provider)]
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	if ok {
		mi.Name = name
	}
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// Catalog returns the models for provider (all when empty), sorted by name.
func Catalog(provider string) []ModelInfo {
	want := ""
	if provider != "" {
		want = NormalizeProvider(provider)
	}
	out := make([]ModelInfo, 0, len(models))
	for name, mi := range models {
		if want != "" && mi.Provider != want {
			continue
		}
		mi.Name = name
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}
