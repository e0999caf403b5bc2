package chart

import (
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

const (
	// DefaultColor is used for any series without an explicit color.
	DefaultColor = "#3b82f6"
	// DefaultTitle is used when the descriptor has no title.
	DefaultTitle = "Data Visualization"

	PlaceholderUnsupported = "Unsupported chart type"
	PlaceholderNoSeries    = "Chart has no series to plot"
)

// PiePalette colors pie slices by row index, cycling.
var PiePalette = [...]string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884d8"}

// AxisType tells the drawing library how to scale an axis.
type AxisType string

const (
	AxisCategory AxisType = "category"
	AxisNumber   AxisType = "number"
)

type Axis struct {
	DataKey string   `json:"dataKey,omitempty"`
	Name    string   `json:"name,omitempty"`
	Type    AxisType `json:"type"`
}

// RenderSeries is one resolved trace with defaults applied.
type RenderSeries struct {
	DataKey     string  `json:"dataKey"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Curve       string  `json:"curve,omitempty"`
	StrokeWidth int     `json:"strokeWidth,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
	Radius      []int   `json:"radius,omitempty"`
}

// Slice is one pie segment.
type Slice struct {
	Name    string      `json:"name"`
	Value   table.Value `json:"value"`
	Percent float64     `json:"percent"`
	Color   string      `json:"color"`
}

// Renderable is a concrete chart description any drawing library can consume.
// When Supported is false only Title and Placeholder are meaningful.
type Renderable struct {
	Kind        Kind           `json:"kind"`
	Title       string         `json:"title"`
	Supported   bool           `json:"supported"`
	Placeholder string         `json:"placeholder,omitempty"`
	XAxis       *Axis          `json:"xAxis,omitempty"`
	YAxis       *Axis          `json:"yAxis,omitempty"`
	Series      []RenderSeries `json:"series,omitempty"`
	Slices      []Slice        `json:"slices,omitempty"`
	Data        []table.Row    `json:"data,omitempty"`
}

// Resolve maps a descriptor and the full dataset to a renderable chart.
// It never fails: unknown kinds and empty series produce a placeholder, and keys
// missing from rows simply yield absent values.
func Resolve(d Descriptor, rows []table.Row) Renderable {
	r := Renderable{Kind: d.Type, Title: d.Title}
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	if !d.Type.Supported() {
		r.Placeholder = PlaceholderUnsupported
		return r
	}
	if len(d.Series) == 0 {
		r.Placeholder = PlaceholderNoSeries
		return r
	}
	r.Supported = true
	r.Data = rows

	switch d.Type {
	case KindBar, KindLine, KindArea:
		r.XAxis = &Axis{DataKey: d.XAxisKey, Type: AxisCategory}
		r.YAxis = &Axis{Type: AxisNumber}
		r.Series = make([]RenderSeries, 0, len(d.Series))
		for _, s := range d.Series {
			rs := withDefaults(s)
			switch d.Type {
			case KindBar:
				rs.Radius = []int{4, 4, 0, 0}
			case KindLine:
				rs.Curve = "monotone"
				rs.StrokeWidth = 3
			case KindArea:
				rs.Curve = "monotone"
				rs.FillOpacity = 0.3
			}
			r.Series = append(r.Series, rs)
		}
	case KindScatter:
		first := withDefaults(d.Series[0])
		r.XAxis = &Axis{DataKey: d.XAxisKey, Name: d.XAxisKey, Type: AxisNumber}
		r.YAxis = &Axis{DataKey: first.DataKey, Name: first.Name, Type: AxisNumber}
		r.Series = []RenderSeries{first}
	case KindPie:
		r.Series = []RenderSeries{withDefaults(d.Series[0])}
		r.Slices = pieSlices(d.XAxisKey, d.Series[0].DataKey, rows)
	}
	return r
}

func withDefaults(s Series) RenderSeries {
	rs := RenderSeries{DataKey: s.DataKey, Name: s.Name, Color: s.Color}
	if rs.Name == "" {
		rs.Name = s.DataKey
	}
	if rs.Color == "" {
		rs.Color = DefaultColor
	}
	return rs
}

// pieSlices ignores explicit series colors; slices always take the cyclic palette.
func pieSlices(nameKey, valueKey string, rows []table.Row) []Slice {
	var total float64
	for _, row := range rows {
		if v, ok := table.Number(row[valueKey]); ok && v > 0 {
			total += v
		}
	}
	slices := make([]Slice, len(rows))
	for i, row := range rows {
		s := Slice{
			Name:  table.Format(row[nameKey]),
			Value: row[valueKey],
			Color: PiePalette[i%len(PiePalette)],
		}
		if v, ok := table.Number(row[valueKey]); ok && total > 0 && v > 0 {
			s.Percent = v / total
		}
		slices[i] = s
	}
	return slices
}
