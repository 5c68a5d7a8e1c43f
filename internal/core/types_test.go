package core

import (
	"errors"
	"testing"
	"time"
)

func TestBacktestResult_Chart(t *testing.T) {
	r := &BacktestResult{Charts: map[string]string{ChartHeatmap: "data:image/png;base64,AA=="}}

	if got := r.Chart(ChartHeatmap); got != "data:image/png;base64,AA==" {
		t.Errorf("unexpected heatmap payload: %s", got)
	}
	if got := r.Chart(ChartEquityCurve); got != "" {
		t.Errorf("expected empty payload, got %s", got)
	}

	var nilResult *BacktestResult
	if nilResult.Chart(ChartHeatmap) != "" {
		t.Error("nil result should have no charts")
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.Local)
	if got := Today(now); got != "20240309" {
		t.Errorf("expected 20240309, got %s", got)
	}
}

func TestIsDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"20240101", true},
		{"20241231", true},
		{"2024-01-01", false},
		{"2024011", false},
		{"20241301", false},
		{"abcdefgh", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsDate(tt.in); got != tt.want {
			t.Errorf("IsDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBacktestRequest_Validate(t *testing.T) {
	valid := BacktestRequest{StrategyID: 1, StockCode: "000001", StartDate: "20240101", EndDate: "20240630"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	same := valid
	same.EndDate = same.StartDate
	if err := same.Validate(); err != nil {
		t.Errorf("single-day range should be valid, got %v", err)
	}

	noCode := valid
	noCode.StockCode = ""
	if err := noCode.Validate(); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if err := noCode.Validate(); errors.Is(err, ErrConfigMissing) {
		t.Errorf("request validation should not report a config error, got %v", err)
	}

	badDate := valid
	badDate.StartDate = "2024-01-01"
	if err := badDate.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("expected ErrInvalidDateRange, got %v", err)
	}

	reversed := valid
	reversed.StartDate, reversed.EndDate = valid.EndDate, valid.StartDate
	if err := reversed.Validate(); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("expected ErrInvalidDateRange for reversed range, got %v", err)
	}
}

func TestImageWithinLimits(t *testing.T) {
	tests := []struct {
		w, h int
		want bool
	}{
		{640, 480, true},
		{4096, 4096, true},
		{8192, 100, true},
		{640, 50000, false},
		{8193, 1, false},
		{5000, 5000, false},
		{0, 10, false},
	}
	for _, tt := range tests {
		if got := ImageWithinLimits(tt.w, tt.h); got != tt.want {
			t.Errorf("ImageWithinLimits(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
