package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/dataagent-cli/internal/analysis"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

// DefaultPreviewRows is how many rows the preview shows.
const DefaultPreviewRows = 100

// Table prints the first limit rows of t in column order.
func Table(w io.Writer, t *table.Table, limit int) {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.Columns)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	for _, row := range t.Head(limit) {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cells[i] = table.Cell(row, c)
		}
		tw.Append(cells)
	}
	tw.Render()
	shown := limit
	if t.Len() < shown {
		shown = t.Len()
	}
	fmt.Fprintf(w, "Showing %d of %d rows\n", shown, t.Len())
}

// Profile prints one line per column profile.
func Profile(w io.Writer, profiles []analysis.ColumnProfile) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Column", "Kind", "Non-null", "Missing", "Unique", "Min", "Max", "Mean", "Std"})
	tw.SetAutoFormatHeaders(false)
	for _, p := range profiles {
		row := []string{p.Name, p.Kind, fmt.Sprint(p.NonNull), fmt.Sprint(p.Missing), fmt.Sprint(p.Unique), "", "", "", ""}
		if p.Kind == analysis.KindNumeric || p.Kind == analysis.KindMixed {
			row[5] = fmt.Sprintf("%.4g", p.Min)
			row[6] = fmt.Sprintf("%.4g", p.Max)
			row[7] = fmt.Sprintf("%.4g", p.Mean)
			row[8] = fmt.Sprintf("%.4g", p.Std)
		}
		tw.Append(row)
	}
	tw.Render()
}
