package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/KaramelBytes/dataagent-cli/internal/analysis"
	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/conversation"
	"github.com/KaramelBytes/dataagent-cli/internal/render"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

var chatNoChart bool

var chatCmd = &cobra.Command{
	Use:   "chat <file.csv>",
	Short: "Start an interactive conversation about a CSV dataset",
	Example: `  dataagent chat sales.csv
  dataagent chat sales.csv --provider ollama --model qwen2.5:7b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := table.LoadFile(args[0])
		if err != nil {
			return err
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
		opts := conversation.Options{Log: log}
		if cfg != nil {
			opts.ContextRows = cfg.ContextRows
		}
		sess := conversation.NewSession(t, gw, opts)
		defer sess.Close()

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()

		in := cmd.InOrStdin()
		interactive := false
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			interactive = true
		}
		size := render.DefaultSize
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
			size.Width = min(w-12, 100)
		}
		return runChat(ctx, in, cmd.OutOrStdout(), sess, chatOptions{
			Interactive: interactive,
			NoChart:     chatNoChart,
			Provider:    provider,
			Model:       model,
			Size:        size,
		})
	},
}

type chatOptions struct {
	Interactive bool
	NoChart     bool
	Provider    string
	Model       string
	Size        render.Size
}

var (
	userLabel      = color.New(color.FgCyan, color.Bold)
	assistantLabel = color.New(color.FgGreen, color.Bold)
	statusLine     = color.New(color.FgYellow)
)

const chatHelp = `Commands:
  /preview [n]   show the first n rows (default 10)
  /describe      column types and statistics
  /history       print the transcript
  /help          this help
  /quit          leave`

// runChat reads one question per line until EOF, /quit or ctx is done.
func runChat(ctx context.Context, in io.Reader, out io.Writer, sess *conversation.Session, opts chatOptions) error {
	t := sess.Table()
	printMessage(out, t, sess.Transcript().Messages()[0], opts)
	statusLine.Fprintf(out, "Using %s (%s). Type /help for commands.\n", opts.Model, opts.Provider)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		if opts.Interactive {
			userLabel.Fprint(out, "you> ")
		}
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, open := <-lines:
			if !open {
				return <-scanErr
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runChatCommand(out, sess, line, opts); quit {
				return nil
			}
			continue
		}

		if opts.Interactive {
			statusLine.Fprintln(out, "thinking...")
		}
		msg, err := sess.Ask(ctx, line)
		switch {
		case errors.Is(err, conversation.ErrStale), errors.Is(err, conversation.ErrClosed):
			return nil
		case err != nil:
			statusLine.Fprintf(out, "⚠ %v\n", err)
			continue
		}
		printMessage(out, t, msg, opts)
	}
}

func runChatCommand(out io.Writer, sess *conversation.Session, line string, opts chatOptions) bool {
	fields := strings.Fields(line)
	t := sess.Table()
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/preview":
		n := 10
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		render.Table(out, t, n)
	case "/describe":
		render.Profile(out, analysis.Profile(t))
	case "/history":
		for _, m := range sess.Transcript().Messages() {
			printMessage(out, t, m, chatOptions{NoChart: true})
		}
	default:
		statusLine.Fprintf(out, "unknown command %s (try /help)\n", fields[0])
	}
	return false
}

func printMessage(out io.Writer, t *table.Table, m conversation.Message, opts chatOptions) {
	label := assistantLabel
	if m.Role == conversation.RoleUser {
		label = userLabel
	}
	label.Fprintf(out, "%s: ", m.Role)
	fmt.Fprintln(out, m.Content)
	if m.Chart != nil && !opts.NoChart {
		_ = writeChart(out, t, m, opts.Size)
	}
	fmt.Fprintln(out)
}

func writeChart(out io.Writer, t *table.Table, m conversation.Message, size render.Size) error {
	return render.Chart(out, chart.Resolve(*m.Chart, t.Rows), size)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatNoChart, "no-chart", false, "do not draw charts")
}
