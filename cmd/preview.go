package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/dataagent-cli/internal/render"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

var previewRows int

var previewCmd = &cobra.Command{
	Use:   "preview <file.csv>",
	Short: "Show the first rows of a CSV dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := table.LoadFile(args[0])
		if err != nil {
			return err
		}
		n := previewRows
		if !cmd.Flags().Changed("rows") && cfg != nil && cfg.PreviewRows > 0 {
			n = cfg.PreviewRows
		}
		render.Table(cmd.OutOrStdout(), t, n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", render.DefaultPreviewRows, "number of rows to show")
}
