package prompt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dataagent-cli/internal/table"
)

// MaxSampleRows bounds how many sample rows are embedded in a prompt.
const MaxSampleRows = 5

// Build assembles the analysis instruction for a single user query.
// Only the first MaxSampleRows rows of sample are embedded.
func Build(query string, columns []string, sample []table.Row) string {
	if len(sample) > MaxSampleRows {
		sample = sample[:MaxSampleRows]
	}

	var sb strings.Builder
	sb.WriteString("[ROLE]\n")
	sb.WriteString("You are an expert data analyst and visualization assistant.\n\n")

	sb.WriteString("[DATASET]\n")
	sb.WriteString("- Columns: ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString("\n- Sample Data (first ")
	sb.WriteString(strconv.Itoa(len(sample)))
	sb.WriteString(" rows): ")
	sb.WriteString(encodeSample(columns, sample))
	sb.WriteString("\n\n")

	sb.WriteString("[USER QUERY]\n")
	sb.WriteString(`"`)
	sb.WriteString(query)
	sb.WriteString("\"\n\n")

	sb.WriteString("[GOAL]\n")
	sb.WriteString("Answer the user's question. If the question implies visualizing data (e.g., \"plot\", \"graph\", \"show me\", \"trend\"), provide a configuration for a chart. If it's a textual question, just provide the answer.\n\n")

	sb.WriteString("[OUTPUT CONTRACT]\n")
	sb.WriteString("Return a JSON object with the following schema:\n")
	sb.WriteString(outputContract)
	sb.WriteString("\n")

	sb.WriteString("[VISUALIZATION RULES]\n")
	sb.WriteString("- Only return \"visualization\" if relevant. Set it to null otherwise.\n")
	sb.WriteString("- Choose vibrant, professional colors (e.g., #8884d8, #82ca9d, #ffc658, #ff7300).\n")
	sb.WriteString("- Ensure 'xAxisKey' and 'dataKey' strictly match the provided column names.\n")
	return sb.String()
}

const outputContract = `{
  "answer": "A friendly text response summarizing the data or answering the question.",
  "visualization": {
    "type": "bar" | "line" | "area" | "scatter" | "pie",
    "xAxisKey": "The key from the data to use for the X axis (must exist in columns)",
    "series": [
      { "dataKey": "The key for the Y axis value", "name": "Human readable name", "color": "#hexcode" }
    ],
    "title": "Chart title"
  }
}
`

// encodeSample writes rows as a JSON array whose object keys follow column order.
func encodeSample(columns []string, rows []table.Row) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(c)
			v, err := json.Marshal(row[c])
			if err != nil {
				v = []byte("null")
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String()
}
