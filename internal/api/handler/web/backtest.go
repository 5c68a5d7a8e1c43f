package web

import (
	"errors"
	"net/http"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/session"
	"go.uber.org/zap"
)

// Backtest submits the form as a new backtest and renders the loading state.
func (h *Handler) Backtest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	coord := h.session(w, r)
	applyForm(coord, r)
	h.renderResults(w, coord, h.notice(coord.Confirm()))
}

// Retry re-runs the last submitted backtest.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	coord := h.session(w, r)
	h.renderResults(w, coord, h.notice(coord.Retry()))
}

// notice turns a rejected submission into a message for the user. A
// submission while loading is dropped without one.
func (h *Handler) notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, core.ErrBacktestBusy):
		h.logger.Debug("backtest already running")
		return ""
	case errors.Is(err, core.ErrNoStrategy):
		return core.ErrNoStrategy.Message
	default:
		h.logger.Warn("backtest not started", zap.Error(err))
		return core.ErrBacktestFailed.Message
	}
}

func (h *Handler) renderResults(w http.ResponseWriter, coord *session.Coordinator, notice string) {
	data := newPageData(coord.Snapshot(), coord.Uploader().View())
	data.Results.Notice = notice
	data.OOB = true
	h.renderFragment(w, http.StatusOK, "results", data)
}
