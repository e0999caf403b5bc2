package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

func sampleTable(t *testing.T) *table.Table {
	t.Helper()
	csv := strings.Join([]string{
		"month,Revenue (USD),units,note,blank",
		"Jan,9,90,a,",
		"Feb,10,100,b,",
		"Mar,10,100,7,",
		"Apr,10,101,a,",
		"May,11,110,,",
		"Jun,100,1000,a,",
	}, "\n")
	tbl, err := table.ParseCSV(strings.NewReader(csv))
	require.NoError(t, err)
	tbl.Name = "sales.csv"
	return tbl
}

func TestProfileKindsAndCounts(t *testing.T) {
	profiles := Profile(sampleTable(t))
	require.Len(t, profiles, 5)

	month := profiles[0]
	assert.Equal(t, KindText, month.Kind)
	assert.Equal(t, 6, month.NonNull)
	assert.Equal(t, 6, month.Unique)

	rev := profiles[1]
	assert.Equal(t, KindNumeric, rev.Kind)
	assert.Equal(t, "USD", rev.Unit)
	assert.Equal(t, 9.0, rev.Min)
	assert.Equal(t, 100.0, rev.Max)
	assert.InDelta(t, 25.0, rev.Mean, 1e-9)
	assert.Greater(t, rev.Std, 0.0)
	assert.Equal(t, 1, rev.Outliers)
	assert.Empty(t, rev.TopValues)

	note := profiles[3]
	assert.Equal(t, KindMixed, note.Kind)
	assert.Equal(t, 1, note.Missing)
	require.NotEmpty(t, note.TopValues)
	assert.Equal(t, CategoryCount{Value: "a", Count: 3}, note.TopValues[0])

	assert.Equal(t, KindEmpty, profiles[4].Kind)
	assert.Equal(t, 6, profiles[4].Missing)
}

func TestProfileNil(t *testing.T) {
	assert.Nil(t, Profile(nil))
}

func TestSingleValueHasZeroStd(t *testing.T) {
	tbl := &table.Table{Columns: []string{"x"}, Rows: []table.Row{{"x": 4.0}}}
	p := Profile(tbl)[0]
	assert.Equal(t, 0.0, p.Std)
	assert.False(t, math.IsNaN(p.Mean))
}

func TestCorrelations(t *testing.T) {
	tbl := sampleTable(t)
	pairs := Correlations(tbl, Profile(tbl))
	require.Len(t, pairs, 1)
	assert.Equal(t, "Revenue (USD)", pairs[0].A)
	assert.Equal(t, "units", pairs[0].B)
	assert.Greater(t, pairs[0].R, 0.99)
}

func TestMarkdown(t *testing.T) {
	tbl := sampleTable(t)
	md := Markdown(tbl, Profile(tbl))
	assert.Contains(t, md, "[DATASET SUMMARY]")
	assert.Contains(t, md, "File: sales.csv")
	assert.Contains(t, md, "Rows: 6")
	assert.Contains(t, md, "Columns: 5")
	assert.Contains(t, md, "- Revenue (USD) [USD]: numeric (non-null 6, missing 0.0%)")
	assert.Contains(t, md, "outliers: 1 above |z|>3.5")
	assert.Contains(t, md, "- note: mixed (non-null 5, missing 16.7%): top a(3)")
	assert.Contains(t, md, "[CORRELATIONS]")
	assert.Contains(t, md, "- Revenue (USD) ~ units: r=")
}

func TestSplitUnits(t *testing.T) {
	for in, want := range map[string]string{"Weight [kg]": "kg", "latency_ms": "ms", "plain": ""} {
		_, u := splitUnits(in)
		assert.Equal(t, want, u, in)
	}
}
