package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/dataagent-cli/internal/config"
	"github.com/KaramelBytes/dataagent-cli/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	logJSON bool
	// Provider/model flags (override config if set)
	flagProvider   string
	flagModel      string
	flagOllamaHost string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "dataagent",
	Short: "DataAgent CLI: ask questions about a CSV and get answers and charts",
	Long: `DataAgent loads a CSV dataset and lets you converse with it. Each question is sent
to a model (Gemini, OpenRouter or a local Ollama) with the column names and a few sample
rows; answers may include a chart rendered right in the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dataagent/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write console logs as JSON")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "model provider: gemini|openrouter|ollama (aliases: google, openai, anthropic, local)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name (default from config or provider)")
	rootCmd.PersistentFlags().StringVar(&flagOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if f.Changed("ollama-host") && flagOllamaHost != "" {
		cfg.OllamaHost = flagOllamaHost
	}
}

// newLogger builds the process logger from config and flags.
func newLogger() (*zap.Logger, error) {
	level := "warn"
	file := ""
	if cfg != nil {
		if cfg.LogLevel != "" {
			level = cfg.LogLevel
		}
		file = cfg.LogFile
	}
	if debug {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, File: file, JSON: logJSON})
}
