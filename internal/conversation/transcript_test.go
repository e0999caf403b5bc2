package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dataagent-cli/internal/chart"
)

func TestTranscriptSinceAndLen(t *testing.T) {
	tr := NewTranscript()
	for _, c := range []string{"a", "b", "c"} {
		tr.Append(RoleUser, c, nil)
	}
	assert.Equal(t, 3, tr.Len())
	since := tr.Since(1)
	require.Len(t, since, 2)
	assert.Equal(t, "b", since[0].Content)
	assert.Equal(t, uint64(2), since[0].Seq)
	assert.Empty(t, tr.Since(3))
	assert.Empty(t, tr.Since(99))
}

func TestTranscriptIsolatesStoredMessages(t *testing.T) {
	tr := NewTranscript()
	d := &chart.Descriptor{Type: chart.KindBar, XAxisKey: "x", Series: []chart.Series{{DataKey: "y"}}}
	tr.Append(RoleAssistant, "chart", d)
	d.Series[0].DataKey = "mutated"

	msgs := tr.Messages()
	assert.Equal(t, "y", msgs[0].Chart.Series[0].DataKey)
	msgs[0].Content = "changed"
	assert.Equal(t, "chart", tr.Messages()[0].Content)
}

func TestTranscriptSubscribersSeeAppendOrder(t *testing.T) {
	tr := NewTranscript()
	var seen []uint64
	tr.Subscribe(func(m Message) { seen = append(seen, m.Seq) })
	tr.Append(RoleUser, "1", nil)
	tr.Append(RoleAssistant, "2", nil)
	assert.Equal(t, []uint64{1, 2}, seen)
}
