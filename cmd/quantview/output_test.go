package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/newthinker/quantview/internal/client"
	"github.com/newthinker/quantview/internal/core"
)

func TestPrintStrategies(t *testing.T) {
	var buf bytes.Buffer
	printStrategies(&buf, client.FallbackStrategies())

	out := buf.String()
	if !strings.Contains(out, "双均线金叉死叉") {
		t.Errorf("expected strategy name in output:\n%s", out)
	}
	if !strings.Contains(out, "long window=200, short window=50") {
		t.Errorf("expected sorted humanised params in output:\n%s", out)
	}
}

func TestPrintStrategies_Empty(t *testing.T) {
	var buf bytes.Buffer
	printStrategies(&buf, nil)

	if !strings.Contains(buf.String(), "No strategies available") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &core.BacktestResult{
		Metrics: map[string]float64{core.MetricMaxDrawdown: -0.2},
		Charts:  map[string]string{core.ChartHeatmap: "data:image/png;base64,AA=="},
	})

	out := buf.String()
	for _, want := range []string{"最大回撤\t-20.00%", "夏普比率\t0.00", "净值曲线 vs 基准\tmissing", "月度收益热力图\tincluded"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
