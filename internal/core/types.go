package core

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the 8-digit date format the backtest service expects.
const DateLayout = "20060102"

// Metric keys returned by the backtest service
const (
	MetricAnnualReturn     = "年化收益率"
	MetricCumulativeReturn = "累计收益率"
	MetricMaxDrawdown      = "最大回撤"
	MetricSharpe           = "夏普比率"
	MetricWinRate          = "胜率"
	MetricProfitLoss       = "盈亏比"
)

// Chart keys returned by the backtest service
const (
	ChartEquityCurve = "equity_curve"
	ChartHeatmap     = "heatmap"
)

// Form defaults
const (
	DefaultStockCode = "000001"
	DefaultStartDate = "20240101"
)

// Image limits for uploaded and exported pictures. Both sides and the pixel
// area are bounded so a small compressed file cannot expand without limit.
const (
	MaxImageSide   = 8192
	MaxImagePixels = 4096 * 4096
)

// ImageWithinLimits reports whether a w by h image may be decoded.
func ImageWithinLimits(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	return w <= MaxImageSide && h <= MaxImageSide && w*h <= MaxImagePixels
}

var dateRe = regexp.MustCompile(`^\d{8}$`)

// Strategy is a named, parameterised rule set offered by the backtest service
type Strategy struct {
	ID          int                `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Params      map[string]float64 `json:"params"`
}

// BacktestRequest is the body of a backtest run
type BacktestRequest struct {
	StrategyID int    `json:"strategy_id"`
	StockCode  string `json:"stock_code"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// BacktestResult holds the metrics and pre-rendered charts of a run.
// Chart values are embeddable image references (data URIs or URLs).
type BacktestResult struct {
	Metrics map[string]float64 `json:"metrics"`
	Charts  map[string]string  `json:"charts"`
}

// Chart returns the payload for the named chart, or "" if absent.
func (r *BacktestResult) Chart(name string) string {
	if r == nil || r.Charts == nil {
		return ""
	}
	return r.Charts[name]
}

// Today returns the current date in DateLayout.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// IsDate reports whether s is an 8-digit YYYYMMDD date.
func IsDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Validate checks the request fields the backtest service cannot recover
// from: a stock code and an ordered YYYYMMDD date range.
func (r BacktestRequest) Validate() error {
	if r.StockCode == "" {
		e := WrapError(ErrInvalidRequest, fmt.Errorf("stock code is required"))
		e.Message = "请输入股票代码"
		return e
	}
	if !IsDate(r.StartDate) || !IsDate(r.EndDate) {
		return WrapError(ErrInvalidDateRange, fmt.Errorf("dates %q to %q", r.StartDate, r.EndDate))
	}
	if r.StartDate > r.EndDate {
		return WrapError(ErrInvalidDateRange, fmt.Errorf("start %s after end %s", r.StartDate, r.EndDate))
	}
	return nil
}
