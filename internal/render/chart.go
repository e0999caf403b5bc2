// Package render draws resolved charts and tables on a terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/KaramelBytes/dataagent-cli/internal/chart"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

// Size bounds the drawing area.
type Size struct {
	Width  int
	Height int
}

// DefaultSize fits an 80 column terminal.
var DefaultSize = Size{Width: 60, Height: 12}

const barWidth = 40

// Chart writes r to w.
func Chart(w io.Writer, r chart.Renderable, size Size) error {
	if size.Width <= 0 {
		size.Width = DefaultSize.Width
	}
	if size.Height <= 0 {
		size.Height = DefaultSize.Height
	}
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", r.Title)
	if !r.Supported {
		fmt.Fprintf(&b, "[%s]\n", r.Placeholder)
		_, err := io.WriteString(w, b.String())
		return err
	}
	switch r.Kind {
	case chart.KindLine, chart.KindArea:
		plotSeries(&b, r, size)
	case chart.KindScatter:
		plotScatter(&b, r, size)
	case chart.KindBar:
		drawBars(&b, r)
	case chart.KindPie:
		drawPie(&b, r)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func plotSeries(b *strings.Builder, r chart.Renderable, size Size) {
	var data [][]float64
	var legend []string
	for _, s := range r.Series {
		vals := column(r.Data, s.DataKey)
		if len(vals) == 0 {
			fmt.Fprintf(b, "(no numeric values for %s)\n", s.Name)
			continue
		}
		data = append(data, vals)
		legend = append(legend, fmt.Sprintf("* %s %s", s.Name, s.Color))
	}
	if len(data) == 0 {
		return
	}
	caption := ""
	if r.XAxis != nil && len(r.Data) > 0 {
		caption = fmt.Sprintf("%s: %s .. %s", r.XAxis.DataKey,
			table.Cell(r.Data[0], r.XAxis.DataKey), table.Cell(r.Data[len(r.Data)-1], r.XAxis.DataKey))
	}
	b.WriteString(asciigraph.PlotMany(data,
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Caption(caption),
	))
	b.WriteString("\n")
	for _, l := range legend {
		b.WriteString(l)
		b.WriteString("\n")
	}
}

// plotScatter draws Y against X ordered by X.
func plotScatter(b *strings.Builder, r chart.Renderable, size Size) {
	type point struct{ x, y float64 }
	var pts []point
	for _, row := range r.Data {
		x, okx := table.Number(row[r.XAxis.DataKey])
		y, oky := table.Number(row[r.YAxis.DataKey])
		if okx && oky {
			pts = append(pts, point{x, y})
		}
	}
	if len(pts) == 0 {
		fmt.Fprintf(b, "(no numeric points for %s vs %s)\n", r.YAxis.Name, r.XAxis.Name)
		return
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].x < pts[j].x })
	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = p.y
	}
	b.WriteString(asciigraph.Plot(ys,
		asciigraph.Height(size.Height),
		asciigraph.Width(size.Width),
		asciigraph.Caption(fmt.Sprintf("%s by %s (%g .. %g)", r.YAxis.Name, r.XAxis.Name, pts[0].x, pts[len(pts)-1].x)),
	))
	b.WriteString("\n")
}

func drawBars(b *strings.Builder, r chart.Renderable) {
	maxVal := 0.0
	labelWidth := 0
	for _, row := range r.Data {
		if l := len([]rune(table.Cell(row, r.XAxis.DataKey))); l > labelWidth {
			labelWidth = l
		}
		for _, s := range r.Series {
			if v, ok := table.Number(row[s.DataKey]); ok {
				maxVal = math.Max(maxVal, math.Abs(v))
			}
		}
	}
	multi := len(r.Series) > 1
	for _, row := range r.Data {
		label := table.Cell(row, r.XAxis.DataKey)
		for i, s := range r.Series {
			prefix := label
			if i > 0 {
				prefix = ""
			}
			fmt.Fprintf(b, "%-*s ", labelWidth, prefix)
			v, ok := table.Number(row[s.DataKey])
			if !ok {
				b.WriteString("-")
			} else {
				b.WriteString(strings.Repeat("█", scaled(math.Abs(v), maxVal, barWidth)))
				fmt.Fprintf(b, " %s", table.Format(v))
			}
			if multi {
				fmt.Fprintf(b, " (%s)", s.Name)
			}
			b.WriteString("\n")
		}
	}
	for _, s := range r.Series {
		fmt.Fprintf(b, "* %s %s\n", s.Name, s.Color)
	}
}

func drawPie(b *strings.Builder, r chart.Renderable) {
	labelWidth := 0
	for _, s := range r.Slices {
		if l := len([]rune(s.Name)); l > labelWidth {
			labelWidth = l
		}
	}
	for _, s := range r.Slices {
		fmt.Fprintf(b, "%-*s %5.1f%% %s %s\n", labelWidth, s.Name, s.Percent*100,
			strings.Repeat("▇", scaled(s.Percent, 1, barWidth/2)), s.Color)
	}
}

func scaled(v, maxVal float64, width int) int {
	if maxVal <= 0 || v <= 0 {
		return 0
	}
	n := int(math.Round(v / maxVal * float64(width)))
	if n == 0 {
		n = 1
	}
	return n
}

// column collects the numeric values of key in row order, skipping the rest.
func column(rows []table.Row, key string) []float64 {
	var out []float64
	for _, row := range rows {
		if v, ok := table.Number(row[key]); ok {
			out = append(out, v)
		}
	}
	return out
}
