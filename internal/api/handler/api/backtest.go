package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/newthinker/quantview/internal/api/response"
	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/dashboard"
	"go.uber.org/zap"
)

var timeNow = time.Now

// BacktestRunner runs one backtest against the remote service.
type BacktestRunner interface {
	RunBacktest(ctx context.Context, req core.BacktestRequest) (*core.BacktestResult, error)
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	runner BacktestRunner
	logger *zap.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(runner BacktestRunner, logger *zap.Logger) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{runner: runner, logger: logger}
}

// Run executes a backtest synchronously and returns the raw result together
// with the formatted metric cards.
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req core.BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidRequest, err))
		return
	}
	if req.StartDate == "" {
		req.StartDate = core.DefaultStartDate
	}
	if req.EndDate == "" {
		req.EndDate = core.Today(timeNow())
	}
	if err := req.Validate(); err != nil {
		response.Fail(w, err)
		return
	}

	result, err := h.runner.RunBacktest(r.Context(), req)
	if err != nil {
		h.logger.Warn("backtest failed", zap.Int("strategy_id", req.StrategyID), zap.Error(err))
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"request": req,
		"result":  result,
		"cards":   dashboard.FormatMetrics(result.Metrics),
	})
}
