// Package analysis profiles a loaded table: inferred column kinds, summary
// statistics and a Markdown digest for the describe command and the API.
package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

// Column kinds.
const (
	KindNumeric = "numeric"
	KindText    = "text"
	KindMixed   = "mixed"
	KindEmpty   = "empty"
)

// OutlierThreshold is the robust |z| above which a value counts as an outlier.
const OutlierThreshold = 3.5

const maxTopValues = 3

// ColumnProfile captures inferred type and statistics per column.
type ColumnProfile struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Unit    string `json:"unit,omitempty"`
	NonNull int    `json:"nonNull"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
	// Numeric stats
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Mean     float64 `json:"mean,omitempty"`
	Std      float64 `json:"std,omitempty"`
	Outliers int     `json:"outliers,omitempty"`
	// Text top values
	TopValues []CategoryCount `json:"topValues,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// PairCorr is a Pearson correlation between two numeric columns.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// Profile summarizes every column of t in column order.
func Profile(t *table.Table) []ColumnProfile {
	if t == nil {
		return nil
	}
	out := make([]ColumnProfile, 0, len(t.Columns))
	for _, col := range t.Columns {
		out = append(out, profileColumn(col, t.Rows))
	}
	return out
}

func profileColumn(name string, rows []table.Row) ColumnProfile {
	p := ColumnProfile{Name: name}
	_, p.Unit = splitUnits(name)
	var nums []float64
	counts := map[string]int{}
	text := 0
	for _, row := range rows {
		v := row[name]
		s := table.Format(v)
		if s == "" {
			p.Missing++
			continue
		}
		p.NonNull++
		counts[s]++
		if f, ok := v.(float64); ok {
			nums = append(nums, f)
		} else {
			text++
		}
	}
	p.Unique = len(counts)

	switch {
	case p.NonNull == 0:
		p.Kind = KindEmpty
	case text == 0:
		p.Kind = KindNumeric
	case len(nums) == 0:
		p.Kind = KindText
	default:
		p.Kind = KindMixed
	}
	if len(nums) > 0 {
		p.Min = floats.Min(nums)
		p.Max = floats.Max(nums)
		p.Mean = stat.Mean(nums, nil)
		if len(nums) > 1 {
			p.Std = stat.StdDev(nums, nil)
		}
		p.Outliers = countOutliers(nums, OutlierThreshold)
	}
	if p.Kind != KindNumeric {
		p.TopValues = topValues(counts, maxTopValues)
	}
	return p
}

func topValues(counts map[string]int, n int) []CategoryCount {
	out := make([]CategoryCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// countOutliers uses the robust z-score 0.6745*(x-median)/MAD.
func countOutliers(vals []float64, threshold float64) int {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if math.Abs(0.6745*(v-median)/mad) > threshold {
			n++
		}
	}
	return n
}

// Correlations returns Pearson r for every pair of numeric columns, strongest
// first. Only rows where both values are numeric take part; pairs with fewer
// than three such rows or zero variance are skipped.
func Correlations(t *table.Table, profiles []ColumnProfile) []PairCorr {
	var numeric []string
	for _, p := range profiles {
		if p.Kind == KindNumeric {
			numeric = append(numeric, p.Name)
		}
	}
	var pairs []PairCorr
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			var xs, ys []float64
			for _, row := range t.Rows {
				x, okx := row[numeric[i]].(float64)
				y, oky := row[numeric[j]].(float64)
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			if len(xs) < 3 {
				continue
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) || math.IsInf(r, 0) {
				continue
			}
			pairs = append(pairs, PairCorr{A: numeric[i], B: numeric[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	return pairs
}

// Markdown renders a compact summary of t.
func Markdown(t *table.Table, profiles []ColumnProfile) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if t.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", t.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", t.Len())
	fmt.Fprintf(&b, "Columns: %d\n\n", len(t.Columns))

	b.WriteString("[SCHEMA]\n")
	for _, c := range profiles {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		name := safeName(c.Name)
		if c.Unit != "" {
			name = fmt.Sprintf("%s [%s]", name, c.Unit)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct)
		switch c.Kind {
		case KindNumeric:
			fmt.Fprintf(&b, ": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.Outliers > 0 {
				fmt.Fprintf(&b, "; outliers: %d above |z|>%.1f", c.Outliers, OutlierThreshold)
			}
		case KindText, KindMixed:
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		}
		b.WriteString("\n")
	}

	if pairs := Correlations(t, profiles); len(pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, p := range pairs {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Revenue (USD)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Weight [kg]
	{regexp.MustCompile(`^(.*?)[_\s-]+(usd|eur|kg|km|ms|°[CF]|%)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return median, mad
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
