package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
	"github.com/KaramelBytes/dataagent-cli/internal/utils"
)

var (
	modelsJSON      bool
	checkTimeoutSec int
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog or check provider access",
	Example: `  dataagent models show
  dataagent models show --provider ollama
  dataagent models check --provider openrouter --model openai/gpt-4o-mini`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show known models with context size and pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cat := ai.Catalog(flagProvider)
		if modelsJSON {
			b, err := utils.PrettyJSON(cat)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		tw := tablewriter.NewWriter(out)
		tw.SetHeader([]string{"Provider", "Model", "Context", "In $/1K", "Out $/1K", "Default"})
		tw.SetAutoFormatHeaders(false)
		for _, mi := range cat {
			def := ""
			if ai.DefaultModel(mi.Provider) == mi.Name {
				def = "✓"
			}
			tw.Append([]string{
				mi.Provider,
				mi.Name,
				fmt.Sprint(mi.ContextTokens),
				price(mi.InputPerK),
				price(mi.OutputPerK),
				def,
			})
		}
		tw.Render()
		return nil
	},
}

func price(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.5f", v)
}

var modelsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a minimal request to verify credentials and model availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := resolveProvider(cfg, flagProvider)
		rt, err := buildRuntime(cfg, provider)
		if err != nil {
			return err
		}
		model := selectModel(cfg, provider, flagModel)
		ctx, cancel := context.WithTimeout(commandContext(cmd), time.Duration(checkTimeoutSec)*time.Second)
		defer cancel()

		start := time.Now()
		resp, err := rt.Generate(ctx, ai.GenerateRequest{
			Model:     model,
			Messages:  []ai.Message{{Role: "user", Content: "Reply with the single word OK."}},
			MaxTokens: 8,
		})
		if err != nil {
			return explainError(err, provider, model)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ %s/%s responded in %s\n", provider, model, time.Since(start).Round(time.Millisecond))
		if resp.RequestID != "" {
			fmt.Fprintf(out, "Request ID: %s\n", resp.RequestID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsCheckCmd)
	modelsShowCmd.Flags().BoolVar(&modelsJSON, "json", false, "emit the catalog as JSON")
	modelsCheckCmd.Flags().IntVar(&checkTimeoutSec, "timeout-sec", 30, "request timeout in seconds")
}
