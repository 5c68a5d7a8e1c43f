package web

import (
	"net/http"
)

// Dashboard renders the dashboard page
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	coord := h.session(w, r)
	h.render(w, "dashboard.html", newPageData(coord.Snapshot(), coord.Uploader().View()))
}

// Form applies a form change and re-renders the results region. Any change
// clears a shown result or error unless a backtest is running.
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	coord := h.session(w, r)
	applyForm(coord, r)
	h.renderResults(w, coord, "")
}

// Results renders the results region. The loading branch polls this route.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	coord := h.session(w, r)
	h.renderResults(w, coord, "")
}
