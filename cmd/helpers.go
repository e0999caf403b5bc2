package cmd

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
	"github.com/KaramelBytes/dataagent-cli/internal/analyst"
	cfgpkg "github.com/KaramelBytes/dataagent-cli/internal/config"
	"github.com/KaramelBytes/dataagent-cli/internal/metrics"
)

// resolveProvider picks the flag, then config, then gemini.
func resolveProvider(cfg *cfgpkg.Global, flag string) string {
	name := strings.TrimSpace(flag)
	if name == "" && cfg != nil {
		name = cfg.DefaultProvider
	}
	return ai.NormalizeProvider(name)
}

func buildRuntime(cfg *cfgpkg.Global, provider string) (ai.Runtime, error) {
	if cfg == nil {
		cfg = &cfgpkg.Global{}
	}
	rt, ok := ai.GetRuntime(provider, cfg.RuntimeConfig(provider))
	if !ok {
		return nil, fmt.Errorf("provider not supported: %s (use %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, nil
}

// selectModel prefers the explicit flag, then the configured model when it
// belongs to the chosen provider, then the provider default.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" && ai.NormalizeProvider(cfg.DefaultProvider) == provider {
		return cfg.DefaultModel
	}
	return ai.DefaultModel(provider)
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

// newGateway wires runtime, model and limits from config and flags.
func newGateway(log *zap.Logger, m *metrics.Prometheus) (*analyst.Gateway, string, string, error) {
	provider := resolveProvider(cfg, flagProvider)
	rt, err := buildRuntime(cfg, provider)
	if err != nil {
		return nil, "", "", err
	}
	model := selectModel(cfg, provider, flagModel)
	opts := analyst.Options{Provider: provider, Model: model}
	if cfg != nil {
		opts.MaxTokens = cfg.MaxTokens
		opts.Temperature = cfg.Temperature
		opts.Timeout = cfg.AnalysisTimeout()
		opts.SampleRows = cfg.SampleRows
	}
	return analyst.New(rt, opts, log.Named("gateway"), m), provider, model, nil
}

// explainError adds a user-facing hint for the common provider failures.
func explainError(err error, provider, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (config 'ollama_host' or --ollama-host): %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: %s or add api_key in ~/.dataagent/config.yaml: %w", keyHint(provider), err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). See 'dataagent models show': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a smaller max_tokens or another model: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return fmt.Errorf("generation failed: %w", err)
	}
}

func keyHint(provider string) string {
	switch provider {
	case ai.ProviderOpenRouter:
		return "set OPENROUTER_API_KEY"
	case ai.ProviderOllama:
		return "check your Ollama proxy credentials"
	default:
		return "set GEMINI_API_KEY"
	}
}
