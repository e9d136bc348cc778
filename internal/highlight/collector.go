package highlight

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/livetemplate/demobox/internal/cache"
)

// Source is one highlighted file.
type Source struct {
	Path string
	Lang string
	Code string
	HTML string
	// Err is set when rendering failed; HTML is empty in that case.
	Err error
}

// Collector reads demo files and renders them through a Renderer.
type Collector struct {
	renderer Renderer
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
	readFile func(string) ([]byte, error)
}

// Option configures a Collector.
type Option func(*Collector)

// WithCache memoizes rendered markup in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(col *Collector) {
		col.cache = c
		col.ttl = ttl
	}
}

// WithLogger sets the logger for degraded renders.
func WithLogger(l *slog.Logger) Option {
	return func(col *Collector) { col.logger = l }
}

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(col *Collector) { col.readFile = fn }
}

// NewCollector returns a Collector rendering through r.
func NewCollector(r Renderer, opts ...Option) *Collector {
	c := &Collector{
		renderer: r,
		logger:   slog.Default(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRenderer returns a copy of c that renders through r and shares its cache.
func (c *Collector) WithRenderer(r Renderer) *Collector {
	cp := *c
	cp.renderer = r
	return &cp
}

// File reads path and renders it. ok is false when the file is missing,
// unreadable or empty; such files are left out, not reported.
func (c *Collector) File(path, meta string) (src Source, ok bool) {
	data, err := c.readFile(path)
	if err != nil || len(data) == 0 {
		return Source{}, false
	}
	src = Source{
		Path: path,
		Lang: Language(path),
		Code: string(data),
	}
	src.HTML, src.Err = c.Render(src.Code, src.Lang, meta)
	return src, true
}

// Render highlights code. A failed render yields "" and the cause.
func (c *Collector) Render(code, lang, meta string) (html string, err error) {
	if code == "" || c.renderer == nil {
		return "", nil
	}
	key := cache.Key(lang, meta, code)
	if c.cache != nil {
		if html, ok := c.cache.Get(key); ok {
			return html, nil
		}
	}

	defer func() {
		if r := recover(); r != nil {
			html, err = "", fmt.Errorf("highlight %s: panic: %v", lang, r)
		}
		if err != nil {
			c.logger.Debug("highlight degraded", "lang", lang, "error", err)
		}
	}()

	html, err = c.renderer.Render(Fence(code, lang, meta))
	if err != nil {
		return "", fmt.Errorf("highlight %s: %w", lang, err)
	}
	if c.cache != nil && !strings.Contains(html, placeholderMarker) {
		c.cache.Set(key, html, c.ttl)
	}
	return html, nil
}
