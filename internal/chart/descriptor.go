package chart

import (
	"fmt"
	"strings"
)

// Kind is the chart variant requested by the model.
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindArea    Kind = "area"
	KindScatter Kind = "scatter"
	KindPie     Kind = "pie"
)

// Kinds lists every supported chart kind in schema order.
var Kinds = []Kind{KindBar, KindLine, KindArea, KindScatter, KindPie}

// Supported reports whether k is one of the five renderable kinds.
func (k Kind) Supported() bool {
	for _, s := range Kinds {
		if k == s {
			return true
		}
	}
	return false
}

// Series binds one value column to a visual trace.
type Series struct {
	DataKey string `json:"dataKey"`
	Name    string `json:"name,omitempty"`
	Color   string `json:"color,omitempty"`
}

// Descriptor is the structured chart specification produced by the model.
type Descriptor struct {
	Type        Kind     `json:"type"`
	XAxisKey    string   `json:"xAxisKey"`
	Series      []Series `json:"series"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ColumnError lists descriptor keys that are not columns of the dataset.
type ColumnError struct {
	Missing []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("chart references unknown columns: %s", strings.Join(e.Missing, ", "))
}

// Validate checks that XAxisKey and every series DataKey are dataset columns.
// Unknown kinds are left to Resolve, which renders a placeholder for them.
func Validate(d Descriptor, columns []string) error {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	var missing []string
	seen := map[string]bool{}
	check := func(key string) {
		if _, ok := known[key]; ok || seen[key] {
			return
		}
		seen[key] = true
		if key == "" {
			missing = append(missing, `""`)
			return
		}
		missing = append(missing, key)
	}
	check(d.XAxisKey)
	for _, s := range d.Series {
		check(s.DataKey)
	}
	if len(missing) > 0 {
		return &ColumnError{Missing: missing}
	}
	return nil
}
