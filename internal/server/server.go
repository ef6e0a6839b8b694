// Package server provides the web UI and its JSON endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/app"
	"github.com/bryan-buckman/pantry/internal/database"
	"github.com/bryan-buckman/pantry/internal/expiry"
	"github.com/bryan-buckman/pantry/internal/model"
	"github.com/bryan-buckman/pantry/internal/refresh"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// pageFiles are parsed on top of layout.html, one template set each.
var pageFiles = []string{
	"dashboard.html", "add.html", "inventory.html", "edit.html", "delete.html",
	"calendar.html", "meals.html", "profile.html", "notifications.html",
}

// Server is the main HTTP server.
type Server struct {
	svc    *app.Service
	store  database.Store
	poller *refresh.Poller
	logger *zap.Logger
	router chi.Router
	pages  map[string]*template.Template
	http   *http.Server
	now    func() time.Time
}

// New creates a new server. poller may be nil when refreshes are driven
// elsewhere.
func New(svc *app.Service, store database.Store, poller *refresh.Poller, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		store:  store,
		poller: poller,
		logger: logger,
		now:    time.Now,
	}
	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) parseTemplates() error {
	base, err := template.New("layout.html").Funcs(s.funcs()).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	s.pages = make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return fmt.Errorf("clone layout: %w", err)
		}
		if _, err := clone.ParseFS(templatesFS, "templates/"+name); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		s.pages[name] = clone
	}
	return nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Serve static files.
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Pages.
	r.Get("/", s.handleDashboard)
	r.Get("/add", s.handleAddForm)
	r.Post("/add", s.handleAdd)
	r.Get("/inventory", s.handleInventory)
	r.Route("/items/{id}", func(r chi.Router) {
		r.Get("/edit", s.handleEditForm)
		r.Post("/edit", s.handleEdit)
		r.Post("/ai-update", s.handleAIUpdate)
		r.Get("/delete", s.handleDeleteConfirm)
		r.Post("/delete", s.handleDelete)
	})
	r.Get("/calendar", s.handleCalendar)
	r.Get("/calendar.ics", s.handleCalendarICS)
	r.Get("/meals", s.handleMeals)
	r.Post("/meals", s.handleSuggestMeals)
	r.Post("/meals/{index}/cook", s.handleCook)
	r.Get("/profile", s.handleProfile)
	r.Post("/profile", s.handleSaveProfile)
	r.Get("/notifications", s.handleNotifications)
	r.Post("/notifications/{id}/read", s.handleMarkRead)
	r.Get("/export/items.csv", s.handleExportCSV)
	r.Post("/import", s.handleImportCSV)

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the poller and serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	if s.poller != nil {
		s.poller.Start()
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server starting", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and the poller.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	return err
}

// --- Helpers ---

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// page starts the data map shared by every page.
func (s *Server) page(r *http.Request, tab, title string) map[string]interface{} {
	snap := s.svc.Snapshot()
	q := r.URL.Query()
	return map[string]interface{}{
		"Tab":       tab,
		"Title":     title,
		"Flash":     q.Get("msg"),
		"FlashKind": q.Get("kind"),
		"Unread":    snap.UnreadCount,
		"Snapshot":  snap,
		"Busy":      s.svc.Busy(),
		"Live":      false,
		"PollMs":    s.pollInterval().Milliseconds(),
	}
}

// pollInterval is how often pages check /api/state for a newer snapshot.
func (s *Server) pollInterval() time.Duration {
	var src refresh.IntervalSource
	if s.store != nil {
		src = s.store
	}
	d, err := refresh.ReadInterval(src)
	if err != nil {
		s.logger.Debug("read refresh interval", zap.Error(err))
	}
	return d
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("unknown template", zap.String("name", name))
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("template error", zap.String("name", name), zap.Error(err))
		http.Error(w, "Render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// redirect sends the browser to target with a flash message.
func redirect(w http.ResponseWriter, r *http.Request, target, kind, msg string) {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	if msg != "" {
		q := u.Query()
		q.Set("msg", msg)
		if kind != "" {
			q.Set("kind", kind)
		}
		u.RawQuery = q.Encode()
	}
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// userMessage renders err for a flash message.
func userMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrBusy):
		return "Another request is still running, try again in a moment."
	case errors.Is(err, context.DeadlineExceeded):
		return "The backend did not answer in time."
	}
	return err.Error()
}

type categoryCount struct {
	Name  string
	Icon  string
	Count int
}

func breakdown(st model.DashboardStats) []categoryCount {
	out := make([]categoryCount, 0, len(st.CategoryBreakdown))
	for name, n := range st.CategoryBreakdown {
		out = append(out, categoryCount{
			Name:  model.OptionLabel(model.Categories, name),
			Icon:  model.CategoryIcon(name),
			Count: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"status": func(t model.Time) expiry.Status {
			return expiry.StatusFor(s.now(), t.Time)
		},
		"date":         func(t model.Time) string { return expiry.FormatDate(t.Time) },
		"dateValue":    func(t model.Time) string { return t.DateString() },
		"categoryIcon": model.CategoryIcon,
		"storageIcon":  model.StorageIcon,
		"label":        model.OptionLabel,
		"qty":          func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
		"has": func(list []string, v string) bool {
			for _, x := range list {
				if x == v {
					return true
				}
			}
			return false
		},
		"inc":     func(i int) int { return i + 1 },
		"join":    strings.Join,
		"timeAgo": func(t model.Time) string { return timeAgo(s.now(), t.Time) },
	}
}

func timeAgo(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
