package dashboard

import (
	"html/template"
	"strings"

	"github.com/newthinker/quantview/internal/core"
)

// ChartPlaceholder is shown while a chart payload is absent.
const ChartPlaceholder = "图表数据加载中..."

// Chart panel titles
const (
	TitleEquityCurve = "净值曲线 vs 基准"
	TitleHeatmap     = "月度收益热力图"
)

// Chart is a titled, pre-rendered chart image.
type Chart struct {
	Title string
	Src   template.URL
}

// NewChart wraps payload for an <img src>. Only data:image/ and http(s)
// payloads are trusted; anything else renders as the placeholder.
func NewChart(title, payload string) Chart {
	c := Chart{Title: title}
	if embeddable(payload) {
		c.Src = template.URL(payload)
	}
	return c
}

// Ready reports whether there is an image to show.
func (c Chart) Ready() bool {
	return c.Src != ""
}

// Placeholder returns the text shown instead of an absent image.
func (c Chart) Placeholder() string {
	return ChartPlaceholder
}

// ResultCharts returns the two fixed result panels.
func ResultCharts(r *core.BacktestResult) []Chart {
	return []Chart{
		NewChart(TitleEquityCurve, r.Chart(core.ChartEquityCurve)),
		NewChart(TitleHeatmap, r.Chart(core.ChartHeatmap)),
	}
}

func embeddable(payload string) bool {
	p := strings.ToLower(payload)
	return strings.HasPrefix(p, "data:image/") ||
		strings.HasPrefix(p, "http://") ||
		strings.HasPrefix(p, "https://")
}
