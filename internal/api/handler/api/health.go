package api

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/quantview/internal/api/response"
	"go.uber.org/zap"
)

const healthTimeout = 3 * time.Second

// HealthChecker probes the backtest service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler reports liveness of this server and reachability of the
// backtest service. The server itself is healthy whenever it answers.
type HealthHandler struct {
	checker HealthChecker
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker HealthChecker, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{checker: checker, logger: logger}
}

// Get returns {"status":"ok","backtest":"ok"|"unavailable"}.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	backtest := "ok"
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.checker.Health(ctx); err != nil {
			h.logger.Debug("backtest service unhealthy", zap.Error(err))
			backtest = "unavailable"
		}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"backtest": backtest,
	})
}
