package prompt_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataagent-cli/internal/prompt"
	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

func TestBuildIncludesSections(t *testing.T) {
	cols := []string{"month", "sales"}
	rows := []table.Row{{"month": "Jan", "sales": 10.0}}
	p := prompt.Build("Plot sales over time", cols, rows)

	for _, h := range []string{"[ROLE]", "[DATASET]", "[USER QUERY]", "[GOAL]", "[OUTPUT CONTRACT]", "[VISUALIZATION RULES]"} {
		assert.Contains(t, p, h)
	}
	assert.Contains(t, p, "data analyst and visualization assistant")
	assert.Contains(t, p, "- Columns: month, sales")
	assert.Contains(t, p, `"Plot sales over time"`)
	assert.Contains(t, p, `"answer"`)
	assert.Contains(t, p, `"visualization"`)
	assert.Contains(t, p, "Set it to null otherwise")
	assert.Contains(t, p, "strictly match the provided column names")
}

func TestBuildSampleIsBoundedAndOrdered(t *testing.T) {
	cols := []string{"zeta", "alpha"}
	rows := make([]table.Row, 12)
	for i := range rows {
		rows[i] = table.Row{"zeta": float64(i), "alpha": "r" + string(rune('a'+i))}
	}
	p := prompt.Build("q", cols, rows)

	assert.Contains(t, p, "(first 5 rows)")
	assert.Contains(t, p, `{"zeta":0,"alpha":"ra"}`)
	assert.Contains(t, p, `{"zeta":4,"alpha":"re"}`)
	assert.NotContains(t, p, `"zeta":5`)

	line := sampleLine(t, p)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Len(t, decoded, 5)
}

func TestBuildIsPure(t *testing.T) {
	cols := []string{"a"}
	rows := []table.Row{{"a": 1.0}, {"a": nil}}
	assert.Equal(t, prompt.Build("same", cols, rows), prompt.Build("same", cols, rows))
	assert.Contains(t, prompt.Build("same", cols, rows), `{"a":null}`)
}

func TestBuildQueryVerbatim(t *testing.T) {
	q := `what's the "best" month?  <b>`
	assert.Contains(t, prompt.Build(q, []string{"m"}, nil), q)
}

func TestResponseSchema(t *testing.T) {
	s := prompt.ResponseSchema()
	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []any{"answer"}, s["required"])

	props := s["properties"].(map[string]any)
	viz := props["visualization"].(map[string]any)
	kind := viz["properties"].(map[string]any)["type"].(map[string]any)
	assert.Equal(t, []any{"bar", "line", "area", "scatter", "pie"}, kind["enum"])

	_, err := json.Marshal(s)
	assert.NoError(t, err)
}

func sampleLine(t *testing.T, p string) string {
	t.Helper()
	for _, l := range strings.Split(p, "\n") {
		if i := strings.Index(l, "rows): "); i >= 0 {
			return l[i+len("rows): "):]
		}
	}
	t.Fatalf("sample line not found")
	return ""
}
