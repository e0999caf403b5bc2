package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
	"github.com/KaramelBytes/dataagent-cli/internal/utils"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// Dataset context
	SampleRows  int `mapstructure:"sample_rows" yaml:"sample_rows"`
	ContextRows int `mapstructure:"context_rows" yaml:"context_rows"`
	PreviewRows int `mapstructure:"preview_rows" yaml:"preview_rows"`

	// HTTP/Retry configuration
	HTTPTimeoutSec     int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	AnalysisTimeoutSec int `mapstructure:"analysis_timeout_sec" yaml:"analysis_timeout_sec"`
	RetryMaxAttempts   int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs   int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs    int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
	RequestsPerMinute  int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`

	// Provider endpoints
	OllamaHost        string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec  int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`
	OpenRouterBaseURL string `mapstructure:"openrouter_base_url" yaml:"openrouter_base_url"`
	GeminiBaseURL     string `mapstructure:"gemini_base_url" yaml:"gemini_base_url"`

	// HTTP service
	ServerAddr       string  `mapstructure:"server_addr" yaml:"server_addr"`
	ServerRatePerSec float64 `mapstructure:"server_rate_per_sec" yaml:"server_rate_per_sec"`
	ServerBurst      int     `mapstructure:"server_burst" yaml:"server_burst"`

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`

	// keyFromEnv marks an APIKey filled from a provider variable; Save omits it.
	keyFromEnv bool
}

// DefaultPath returns ~/.dataagent/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dataagent", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dataagent/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	out := *c
	if c.keyFromEnv {
		out.APIKey = ""
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATAAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.DefaultProvider = ai.NormalizeProvider(c.DefaultProvider)
	if c.DefaultModel == "" {
		c.DefaultModel = ai.DefaultModel(c.DefaultProvider)
	}
	if c.APIKey == "" {
		c.APIKey = envAPIKey(c.DefaultProvider)
		c.keyFromEnv = c.APIKey != ""
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("default_provider", ai.ProviderGemini)
	v.SetDefault("default_model", "")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("context_rows", 10)
	v.SetDefault("preview_rows", 100)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("analysis_timeout_sec", 90)
	v.SetDefault("retry_max_attempts", 2)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("requests_per_minute", 0)
	v.SetDefault("ollama_host", ai.DefaultOllamaHost)
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("openrouter_base_url", ai.DefaultOpenRouterBaseURL)
	v.SetDefault("gemini_base_url", ai.DefaultGeminiBaseURL)
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("server_rate_per_sec", 5.0)
	v.SetDefault("server_burst", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// envAPIKey falls back to the provider's conventional environment variables.
func envAPIKey(provider string) string {
	var names []string
	switch provider {
	case ai.ProviderOpenRouter:
		names = []string{"OPENROUTER_API_KEY"}
	case ai.ProviderOllama:
		return ""
	default:
		names = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	switch key {
	case "api_key":
		c.APIKey = val
		c.keyFromEnv = false
	case "default_provider":
		p := ai.NormalizeProvider(val)
		if !slices.Contains(ai.Providers(), p) {
			return fmt.Errorf("invalid default_provider: %s (use gemini, openrouter or ollama)", val)
		}
		c.DefaultProvider = p
		if mi, ok := ai.LookupModel(c.DefaultModel); ok && mi.Provider != p {
			c.DefaultModel = ai.DefaultModel(p)
		}
	case "default_model":
		c.DefaultModel = val
	case "ollama_host":
		c.OllamaHost = val
	case "openrouter_base_url":
		c.OpenRouterBaseURL = val
	case "gemini_base_url":
		c.GeminiBaseURL = val
	case "server_addr":
		c.ServerAddr = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "log_file":
		c.LogFile = val
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "server_rate_per_sec":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for server_rate_per_sec: %v", val)
		}
		c.ServerRatePerSec = f
	default:
		p, ok := c.intField(key)
		if !ok {
			return fmt.Errorf("unknown key: %s", key)
		}
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*p = i
	}
	return nil
}

func (c *Global) intField(key string) (*int, bool) {
	fields := map[string]*int{
		"max_tokens":           &c.MaxTokens,
		"sample_rows":          &c.SampleRows,
		"context_rows":         &c.ContextRows,
		"preview_rows":         &c.PreviewRows,
		"http_timeout_sec":     &c.HTTPTimeoutSec,
		"analysis_timeout_sec": &c.AnalysisTimeoutSec,
		"retry_max_attempts":   &c.RetryMaxAttempts,
		"retry_base_delay_ms":  &c.RetryBaseDelayMs,
		"retry_max_delay_ms":   &c.RetryMaxDelayMs,
		"requests_per_minute":  &c.RequestsPerMinute,
		"ollama_timeout_sec":   &c.OllamaTimeoutSec,
		"server_burst":         &c.ServerBurst,
	}
	p, ok := fields[key]
	return p, ok
}

// RuntimeConfig maps the settings onto the runtime for provider.
func (c *Global) RuntimeConfig(provider string) ai.RuntimeConfig {
	provider = ai.NormalizeProvider(provider)
	rc := ai.RuntimeConfig{
		HTTPTimeout:       time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:          c.RetryMaxAttempts,
		BaseDelay:         time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:          time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		RequestsPerMinute: c.RequestsPerMinute,
		APIKey:            c.APIKey,
	}
	switch provider {
	case ai.ProviderOllama:
		rc.Host = c.OllamaHost
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	case ai.ProviderOpenRouter:
		rc.BaseURL = c.OpenRouterBaseURL
	default:
		rc.BaseURL = c.GeminiBaseURL
	}
	if provider != ai.NormalizeProvider(c.DefaultProvider) || rc.APIKey == "" {
		if k := envAPIKey(provider); k != "" {
			rc.APIKey = k
		}
	}
	return rc
}

// AnalysisTimeout is the overall bound for one question.
func (c *Global) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutSec) * time.Second
}

// Mask hides all but the ends of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
