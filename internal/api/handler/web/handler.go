// Package web serves the server-rendered dashboard.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/export"
	"github.com/newthinker/quantview/internal/session"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "quantview_session"

// pages are rendered inside layout.html; partials.html holds the htmx fragments.
var pages = []string{"dashboard.html"}

// Recorder counts uploads and exports. *metrics.Registry satisfies it.
type Recorder interface {
	RecordUpload(result string)
	RecordExport(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpload(string) {}
func (nopRecorder) RecordExport(string) {}

// Dependencies are the collaborators of the web handlers.
type Dependencies struct {
	Sessions     *session.Store
	Exporter     *export.Exporter
	ExportPrefix string
	Recorder     Recorder
	Logger       *zap.Logger
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds one template set per page: layout.html,
	// partials.html and the page itself.
	pageTemplates map[string]*template.Template

	sessions     *session.Store
	exporter     *export.Exporter
	exportPrefix string
	recorder     Recorder
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandler creates a new web handler with templates loaded from the given directory.
// If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, deps Dependencies) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(templatesDir)
	} else {
		fsys = TemplateFS()
	}
	return NewHandlerWithFS(fsys, deps)
}

// NewHandlerWithFS creates a new web handler using a custom filesystem.
// This is useful for testing or custom template sources.
func NewHandlerWithFS(fsys fs.FS, deps Dependencies) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template)

	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", "partials.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	if deps.Sessions == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("web handler needs a session store"))
	}
	if deps.Exporter == nil {
		deps.Exporter = export.New()
	}
	if deps.ExportPrefix == "" {
		deps.ExportPrefix = "回测结果"
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Handler{
		pageTemplates: pageTemplates,
		sessions:      deps.Sessions,
		exporter:      deps.Exporter,
		exportPrefix:  deps.ExportPrefix,
		recorder:      deps.Recorder,
		logger:        deps.Logger,
		now:           time.Now,
	}, nil
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering page", zap.String("page", page), zap.Error(err))
	}
}

// renderFragment executes a named partial for htmx swaps.
func (h *Handler) renderFragment(w http.ResponseWriter, status int, name string, data any) {
	tmpl := h.pageTemplates["dashboard.html"]

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("rendering fragment", zap.String("fragment", name), zap.Error(err))
	}
}

// session returns the caller's coordinator, starting a session (and setting
// the cookie) when the request carries none or an expired one.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Coordinator {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	newID, coord, created := h.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		h.logger.Debug("session started", zap.String("session_id", newID))
	}

	// Init runs once per session, so it must not inherit the cancellation of
	// whichever request happens to trigger it. The client's own timeout
	// still bounds the call.
	coord.Init(context.WithoutCancel(r.Context()))
	return coord
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// This should never happen with valid embed directive
		return templateFS
	}
	return subFS
}
