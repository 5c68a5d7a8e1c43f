// Package dashboard holds the pure view models the dashboard templates render.
package dashboard

import (
	"math"

	"github.com/newthinker/quantview/internal/core"
	"github.com/shopspring/decimal"
)

// MetricFormat selects how a metric value is printed.
type MetricFormat int

const (
	FormatPercent MetricFormat = iota // x100, 2 decimals, "%"
	FormatNumber                      // 2 decimals
)

// MetricCard is one formatted indicator.
type MetricCard struct {
	Key    string       `json:"key"`
	Label  string       `json:"label"`
	Value  string       `json:"value"`
	Raw    float64      `json:"raw"`
	Format MetricFormat `json:"-"`
}

type metricSpec struct {
	key    string
	format MetricFormat
}

// metricOrder is the fixed display order, independent of response key order.
var metricOrder = []metricSpec{
	{core.MetricAnnualReturn, FormatPercent},
	{core.MetricCumulativeReturn, FormatPercent},
	{core.MetricMaxDrawdown, FormatPercent},
	{core.MetricSharpe, FormatNumber},
	{core.MetricWinRate, FormatPercent},
	{core.MetricProfitLoss, FormatNumber},
}

var hundred = decimal.NewFromInt(100)

// FormatMetrics projects a metrics mapping onto the six known indicators.
// Missing keys are treated as zero.
func FormatMetrics(metrics map[string]float64) []MetricCard {
	cards := make([]MetricCard, 0, len(metricOrder))
	for _, spec := range metricOrder {
		v := metrics[spec.key]
		cards = append(cards, MetricCard{
			Key:    spec.key,
			Label:  spec.key,
			Value:  FormatValue(v, spec.format),
			Raw:    v,
			Format: spec.format,
		})
	}
	return cards
}

// FormatValue renders v with the given rule. Rounding is half away from zero
// on the decimal digits, so 0.125 prints as 12.50% and 1.005 as 1.01.
func FormatValue(v float64, format MetricFormat) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "--"
	}
	d := decimal.NewFromFloat(v)
	if format == FormatPercent {
		return d.Mul(hundred).StringFixed(2) + "%"
	}
	return d.StringFixed(2)
}
