package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/export"
	"github.com/newthinker/quantview/internal/session"
	"go.uber.org/zap"
)

// Export streams the visible results panel as a PNG download. With no
// result on screen it answers 204 and nothing happens in the browser.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	coord := h.session(w, r)
	s := coord.Snapshot()

	result := s.Result
	if s.Display() != session.DisplaySuccess {
		result = nil
	}
	var req core.BacktestRequest
	if s.LastRequest != nil {
		req = *s.LastRequest
	}

	panel, err := export.NewPanel(req, result, s.UploadedImage)
	if err != nil {
		h.logger.Warn("export skipped", zap.String("display", s.Display().String()), zap.Error(err))
		h.recorder.RecordExport("skipped")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := h.exporter.Render(r.Context(), panel)
	if err != nil {
		h.logger.Error("export failed", zap.Error(err))
		h.recorder.RecordExport("error")
		http.Error(w, core.ErrExportFailed.Message, http.StatusInternalServerError)
		return
	}

	name := export.FileName(h.exportPrefix, h.now())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("export write interrupted", zap.Error(err))
	}
	h.recorder.RecordExport("ok")
}
