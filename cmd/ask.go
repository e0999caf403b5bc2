package cmd

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataagent-cli/internal/ai"
	"github.com/KaramelBytes/dataagent-cli/internal/analyst"
	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/conversation"
	"github.com/KaramelBytes/dataagent-cli/internal/prompt"
	"github.com/KaramelBytes/dataagent-cli/internal/render"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
	"github.com/KaramelBytes/dataagent-cli/internal/utils"
)

var (
	askDryRun      bool
	askJSON        bool
	askQuiet       bool
	askNoChart     bool
	askBudgetLimit float64
	askWidth       int
	askHeight      int
)

var askCmd = &cobra.Command{
	Use:   "ask <file.csv> <question>",
	Short: "Ask one question about a CSV dataset",
	Example: `  dataagent ask sales.csv "Which region sold the most?"
  dataagent ask sales.csv "plot monthly revenue as a line chart" --provider openrouter
  dataagent ask sales.csv "average order size" --dry-run
  dataagent ask sales.csv "trend of sales" --json`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if askJSON {
			askQuiet = true
		}
		t, err := table.LoadFile(args[0])
		if err != nil {
			return err
		}
		query := strings.TrimSpace(strings.Join(args[1:], " "))
		if query == "" {
			return conversation.ErrEmptyQuery
		}

		log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gw, provider, model, err := newGateway(log, nil)
		if err != nil {
			return err
		}

		contextRows := conversation.DefaultContextRows
		if cfg != nil && cfg.ContextRows > 0 {
			contextRows = cfg.ContextRows
		}
		text := gw.Prompt(query, t.Columns, t.Head(contextRows))
		schema, _ := json.Marshal(prompt.ResponseSchema())
		breakdown := utils.TokenBreakdown(map[string]string{"prompt": text, "schema": string(schema)})
		tokens := breakdown["prompt"] + breakdown["schema"]
		maxTokens := 0
		if cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		if !askQuiet {
			fmt.Fprintf(out, "Tokens: total≈%d (prompt≈%d, schema≈%d)\n", tokens, breakdown["prompt"], breakdown["schema"])
		}
		var estCost float64
		if mi, ok := ai.LookupModel(model); ok {
			if cost, ok := ai.EstimateCostUSD(model, tokens, maxTokens); ok {
				estCost = cost
				if !askQuiet && cost > 0 {
					fmt.Fprintf(out, "Estimated max cost: ~$%.4f (in %.4f/out %.4f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
				}
			}
		}
		if err := enforceBudget(estCost, askBudgetLimit); err != nil {
			return err
		}

		if askDryRun {
			sum := sha1.Sum([]byte(text))
			fmt.Fprintln(out, "\n--dry-run: no API call will be made. Prompt preview below --")
			fmt.Fprintf(out, "Request ID (dry-run): sim_%x\n", sum[:6])
			fmt.Fprintln(out, text)
			return nil
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()

		if !askQuiet {
			fmt.Fprintf(out, "⚙ Asking %s (%s) about %s ...\n", model, provider, t.Name)
		}
		sess := conversation.NewSession(t, gw, conversation.Options{ContextRows: contextRows, Log: log})
		defer sess.Close()
		msg, err := sess.Ask(ctx, query)
		if err != nil {
			return err
		}
		return writeAnswer(out, t, msg, answerOptions{
			JSON:     askJSON,
			Quiet:    askQuiet,
			NoChart:  askNoChart,
			Provider: provider,
			Model:    model,
			Size:     render.Size{Width: askWidth, Height: askHeight},
		})
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type answerOptions struct {
	JSON     bool
	Quiet    bool
	NoChart  bool
	Provider string
	Model    string
	Size     render.Size
}

type answerJSON struct {
	Dataset  string            `json:"dataset"`
	Provider string            `json:"provider"`
	Model    string            `json:"model"`
	Answer   string            `json:"answer"`
	Fallback bool              `json:"fallback"`
	Chart    *chart.Descriptor `json:"chart,omitempty"`
	Render   *chart.Renderable `json:"render,omitempty"`
}

func writeAnswer(w io.Writer, t *table.Table, msg conversation.Message, opts answerOptions) error {
	if opts.JSON {
		res := answerJSON{
			Dataset:  t.Name,
			Provider: opts.Provider,
			Model:    opts.Model,
			Answer:   msg.Content,
			Fallback: msg.Content == analyst.FallbackAnswer,
			Chart:    msg.Chart,
		}
		if msg.Chart != nil {
			r := chart.Resolve(*msg.Chart, t.Rows)
			res.Render = &r
		}
		b, err := utils.PrettyJSON(res)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
		return nil
	}
	if !opts.Quiet {
		fmt.Fprintln(w, "\n=== Answer ===")
	}
	fmt.Fprintln(w, msg.Content)
	if msg.Chart == nil || opts.NoChart {
		return nil
	}
	fmt.Fprintln(w)
	return render.Chart(w, chart.Resolve(*msg.Chart, t.Rows), opts.Size)
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "build the prompt and print the token breakdown without calling the model")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "emit the answer, chart and resolved chart as JSON")
	askCmd.Flags().BoolVar(&askQuiet, "quiet", false, "suppress non-essential output")
	askCmd.Flags().BoolVar(&askNoChart, "no-chart", false, "do not draw the chart")
	askCmd.Flags().Float64Var(&askBudgetLimit, "budget-limit", 0, "fail if estimated max cost (USD) exceeds this budget")
	askCmd.Flags().IntVar(&askWidth, "width", render.DefaultSize.Width, "chart width in columns")
	askCmd.Flags().IntVar(&askHeight, "height", render.DefaultSize.Height, "chart height in rows")
}
