// Package api serves the JSON endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/quantview/internal/api/response"
	"github.com/newthinker/quantview/internal/client"
	"github.com/newthinker/quantview/internal/core"
	"go.uber.org/zap"
)

// StrategyLister lists the strategies offered by the backtest service.
type StrategyLister interface {
	ListStrategies(ctx context.Context) ([]core.Strategy, error)
}

// StrategiesHandler handles strategy API requests.
type StrategiesHandler struct {
	lister StrategyLister
	logger *zap.Logger
}

// NewStrategiesHandler creates a new strategies handler.
func NewStrategiesHandler(lister StrategyLister, logger *zap.Logger) *StrategiesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategiesHandler{lister: lister, logger: logger}
}

// List returns the strategy list. When the service is unreachable the
// built-in list is returned with source "fallback", as the dashboard does.
func (h *StrategiesHandler) List(w http.ResponseWriter, r *http.Request) {
	source := "service"
	strategies, err := h.lister.ListStrategies(r.Context())
	if err != nil {
		h.logger.Warn("strategy list unavailable", zap.Error(err))
		strategies = client.FallbackStrategies()
		source = "fallback"
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": strategies,
		"count":      len(strategies),
		"source":     source,
	})
}
