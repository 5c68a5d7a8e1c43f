package dashboard

import (
	"testing"

	"github.com/newthinker/quantview/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChart_Absent(t *testing.T) {
	c := NewChart(TitleHeatmap, "")
	assert.False(t, c.Ready())
	assert.Equal(t, ChartPlaceholder, c.Placeholder())
}

func TestNewChart_PassesPayloadThrough(t *testing.T) {
	payloads := []string{
		"data:image/png;base64,iVBORw0KGgo=",
		"https://charts.example.com/equity.png",
	}
	for _, p := range payloads {
		c := NewChart(TitleEquityCurve, p)
		assert.True(t, c.Ready(), p)
		assert.Equal(t, p, string(c.Src))
	}
}

func TestNewChart_RejectsScriptPayload(t *testing.T) {
	c := NewChart(TitleEquityCurve, "javascript:alert(1)")
	assert.False(t, c.Ready())
}

// Relative and protocol-relative references cannot be exported, so they are
// not shown either.
func TestNewChart_RejectsRelativePayload(t *testing.T) {
	for _, p := range []string{"/static/equity.png", "//cdn.example.com/equity.png", "equity.png"} {
		c := NewChart(TitleEquityCurve, p)
		assert.False(t, c.Ready(), p)
	}
}

func TestResultCharts(t *testing.T) {
	charts := ResultCharts(&core.BacktestResult{Charts: map[string]string{
		core.ChartEquityCurve: "data:image/png;base64,AAA",
	}})

	require.Len(t, charts, 2)
	assert.Equal(t, TitleEquityCurve, charts[0].Title)
	assert.True(t, charts[0].Ready())
	assert.Equal(t, TitleHeatmap, charts[1].Title)
	assert.False(t, charts[1].Ready())
}
