// Package server is the demobox development server. It renders Markdown
// pages on request and pushes reloads to open browsers when pages or demo
// sources change.
package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livetemplate/demobox"
	"github.com/livetemplate/demobox/internal/assets"
	"github.com/livetemplate/demobox/internal/cache"
	"github.com/livetemplate/demobox/internal/paths"
)

// Route is a discovered page.
type Route struct {
	Pattern  string // URL pattern (e.g., "/buttons")
	FilePath string // Path relative to the root (e.g., "buttons.md")
	Name     string // Navigation label
}

// Server serves the pages under a root directory.
type Server struct {
	rootDir  string
	md       *demobox.Markdown
	logger   *slog.Logger
	cache    cache.Cache
	debounce time.Duration
	extra    []string
	page     *template.Template

	mu         sync.RWMutex
	routes     []*Route
	liveReload bool

	hub     *hub
	watcher *Watcher
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCache sets the highlight cache that is flushed when watched files
// change.
func WithCache(c cache.Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithDebounce sets how long the watcher waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

// WithWatchDirs adds directories the watcher follows besides the root, such
// as a demo directory kept outside the pages. Empty entries and directories
// inside the root are ignored.
func WithWatchDirs(dirs ...string) Option {
	return func(s *Server) { s.extra = append(s.extra, dirs...) }
}

// New creates a server for the pages under rootDir rendered with md.
func New(rootDir string, md *demobox.Markdown, opts ...Option) *Server {
	s := &Server{
		rootDir:  rootDir,
		md:       md,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		page:     template.Must(assets.PageTemplate()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = newHub(s.logger)
	return s
}

// Discover scans the root for .md files and rebuilds the route table.
// Directories starting with _ or . are skipped.
func (s *Server) Discover() error {
	var routes []*Route
	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != s.rootDir && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		routes = append(routes, &Route{
			Pattern:  mdToPattern(rel),
			FilePath: rel,
			Name:     routeName(rel),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	sortRoutes(routes)

	s.mu.Lock()
	s.routes = routes
	s.mu.Unlock()

	s.logger.Debug("[Server] Discovered pages", "root", s.rootDir, "count", len(routes))
	return nil
}

// Routes returns the discovered routes.
func (s *Server) Routes() []*Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.routes)
}

func (s *Server) route(pattern string) (*Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.routes {
		if r.Pattern == pattern {
			return r, true
		}
	}
	return nil, false
}

// Handler returns the full server handler: pages and assets, the live
// reload socket, the rate limited playground and Prometheus metrics,
// behind security headers.
// Background work stops when ctx is cancelled.
func (s *Server) Handler(ctx context.Context) http.Handler {
	limit, _, _ := rateLimitMiddleware(ctx, playgroundRPS, playgroundBurst, 0, s.logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/playground/render", limit(http.HandlerFunc(s.handleRender)))
	mux.Handle("/", WithCompression(s))
	return SecurityHeadersMiddleware()(mux)
}

// ServeHTTP serves pages and embedded assets.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/assets/") {
		s.serveAsset(w, r)
		return
	}

	if route, ok := s.route(r.URL.Path); ok {
		s.servePage(w, r, route)
		return
	}

	// Unknown paths fall back to the home page when there is one.
	if _, ok := s.route("/"); ok && r.URL.Path != "/" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.NotFound(w, r)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		err         error
		contentType string
	)
	switch strings.TrimPrefix(r.URL.Path, "/assets/") {
	case "reload.js":
		data, err = assets.GetReloadJS()
		contentType = "application/javascript"
	case "page.css":
		data, err = assets.GetPageCSS()
		contentType = "text/css; charset=utf-8"
	case "chroma.css":
		data, err = assets.GetChromaCSS(s.md.Style())
		contentType = "text/css; charset=utf-8"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("[Server] Failed to load asset", "path", r.URL.Path, "error", err)
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// pageData is what the page shell is executed with.
type pageData struct {
	Title       string
	Description string
	Path        string
	Routes      []*Route
	Content     template.HTML
	Diagnostics []string
	LiveReload  bool
	InlineCSS   template.CSS
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, route *Route) {
	abs := filepath.Join(s.rootDir, filepath.FromSlash(route.FilePath))
	src, err := os.ReadFile(abs)
	if err != nil {
		s.logger.Error("[Server] Failed to read page", "file", route.FilePath, "error", err)
		http.Error(w, "Page not available", http.StatusNotFound)
		return
	}

	timer := prometheus.NewTimer(renderDuration.WithLabelValues(sourcePage))
	res, err := s.md.Convert(r.Context(), src, abs)
	timer.ObserveDuration()
	if err != nil {
		renderCounter.WithLabelValues(sourcePage, "error").Inc()
		s.logger.Error("[Server] Failed to render page", "file", route.FilePath, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	renderCounter.WithLabelValues(sourcePage, "ok").Inc()
	observeDemos(res.Demos, len(res.Diagnostics))

	data := pageData{
		Title:       res.Frontmatter.Title,
		Description: res.Frontmatter.Description,
		Path:        route.Pattern,
		Routes:      s.Routes(),
		// Converted output is trusted; pages are authored locally.
		Content:    template.HTML(res.HTML),
		LiveReload: s.liveReloadEnabled(),
	}
	if data.Title == "" {
		data.Title = route.Name
	}
	for _, d := range res.Diagnostics {
		s.logger.Warn("[Server] Demo diagnostic", "diagnostic", d)
		data.Diagnostics = append(data.Diagnostics, d.Format())
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.logger.Error("[Server] Failed to execute page template", "file", route.FilePath, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// mdToPattern converts a relative .md path to a URL pattern:
//   - "index.md" → "/"
//   - "buttons.md" → "/buttons"
//   - "forms/index.md" → "/forms/"
func mdToPattern(relPath string) string {
	path := filepath.ToSlash(strings.TrimSuffix(relPath, ".md"))
	if path == "index" {
		return "/"
	}
	if strings.HasSuffix(path, "/index") {
		return "/" + strings.TrimSuffix(path, "index")
	}
	return "/" + path
}

// routeName is the navigation label of a page: its path without the
// extension, or its directory for index pages.
func routeName(relPath string) string {
	name := strings.TrimSuffix(relPath, ".md")
	switch {
	case name == "index":
		return "home"
	case strings.HasSuffix(name, "/index"):
		return strings.TrimSuffix(name, "/index")
	}
	return name
}

// sortRoutes orders the root first, then directory indexes, then the rest
// alphabetically.
func sortRoutes(routes []*Route) {
	rank := func(r *Route) int {
		switch {
		case r.Pattern == "/":
			return 0
		case strings.HasSuffix(r.Pattern, "/"):
			return 1
		}
		return 2
	}
	slices.SortFunc(routes, func(a, b *Route) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a.Pattern, b.Pattern)
	})
}

// BroadcastReload tells every connected browser to reload.
func (s *Server) BroadcastReload(filePath string) {
	s.hub.broadcast(filePath)
}

func (s *Server) liveReloadEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveReload
}

// EnableWatch starts watching the root. Every settled change flushes the
// highlight cache, rediscovers pages and reloads connected browsers.
func (s *Server) EnableWatch() error {
	w, err := NewWatcher(s.rootDir, s.debounce, s.reload, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, dir := range s.extra {
		if dir == "" || paths.Within(s.rootDir, dir) {
			continue
		}
		if err := w.AddDir(dir); err != nil {
			_ = w.Stop()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	s.mu.Lock()
	s.watcher = w
	s.liveReload = true
	s.mu.Unlock()

	w.Start()
	s.logger.Info("[Watch] File watcher started", "root", s.rootDir)
	return nil
}

func (s *Server) reload(filePath string) error {
	s.logger.Info("[Watch] File changed", "file", filePath)
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	if err := s.Discover(); err != nil {
		return fmt.Errorf("failed to re-discover pages: %w", err)
	}
	reloadCounter.Inc()
	s.BroadcastReload(filePath)
	return nil
}

// StopWatch stops the file watcher if it is running.
func (s *Server) StopWatch() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}

// Close stops watching and disconnects every live reload client.
func (s *Server) Close() error {
	err := s.StopWatch()
	s.hub.closeAll()
	return err
}
