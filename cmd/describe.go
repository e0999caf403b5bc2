package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataagent-cli/internal/analysis"
	"github.com/KaramelBytes/dataagent-cli/internal/render"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
	"github.com/KaramelBytes/dataagent-cli/internal/utils"
)

var (
	descJSON       bool
	descMarkdown   bool
	descOutputPath string
)

var describeCmd = &cobra.Command{
	Use:   "describe <file.csv>",
	Short: "Profile the columns of a CSV dataset",
	Example: `  dataagent describe sales.csv
  dataagent describe sales.csv --markdown -o summary.md
  dataagent describe sales.csv --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := table.LoadFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		profiles := analysis.Profile(t)

		var content []byte
		switch {
		case descJSON:
			content, err = utils.PrettyJSON(map[string]any{
				"name":         t.Name,
				"rows":         t.Len(),
				"columns":      t.Columns,
				"profile":      profiles,
				"correlations": analysis.Correlations(t, profiles),
			})
			if err != nil {
				return err
			}
		case descMarkdown || descOutputPath != "":
			content = []byte(analysis.Markdown(t, profiles))
		default:
			fmt.Fprintf(out, "%s: %d rows, %d columns\n", t.Name, t.Len(), len(t.Columns))
			render.Profile(out, profiles)
			return nil
		}

		if descOutputPath != "" {
			if err := os.WriteFile(descOutputPath, content, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote summary to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprintln(out, string(content))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "emit the profile as JSON")
	describeCmd.Flags().BoolVar(&descMarkdown, "markdown", false, "emit a Markdown summary")
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary")
}
