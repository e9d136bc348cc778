package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/livetemplate/demobox"
	"github.com/livetemplate/demobox/internal/cache"
	"github.com/livetemplate/demobox/internal/config"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}
	return dir
}

func newServer(t *testing.T, dir string, opts ...Option) *Server {
	t.Helper()
	md := demobox.New(config.Normalize(*config.DefaultPluginConfig()), demobox.WithLogger(quiet))
	srv := New(dir, md, append([]Option{WithLogger(quiet)}, opts...)...)
	if err := srv.Discover(); err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestMdToPattern(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"index.md", "/"},
		{"buttons.md", "/buttons"},
		{"forms/inputs.md", "/forms/inputs"},
		{"forms/index.md", "/forms/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mdToPattern(tt.input); got != tt.want {
				t.Errorf("mdToPattern(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRouteName(t *testing.T) {
	for input, want := range map[string]string{
		"index.md":        "home",
		"forms/index.md":  "forms",
		"forms/inputs.md": "forms/inputs",
	} {
		if got := routeName(input); got != want {
			t.Errorf("routeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestServerDiscover(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.md":         "# Home",
		"zebra.md":         "# Zebra",
		"buttons.md":       "# Buttons",
		"forms/index.md":   "# Forms",
		"_drafts/draft.md": "# Draft",
		".cache/old.md":    "# Old",
		"Button.vue":       "<template />",
	})
	srv := newServer(t, dir)

	var got []string
	for _, r := range srv.Routes() {
		got = append(got, r.Pattern)
	}
	want := []string{"/", "/forms/", "/buttons", "/zebra"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestServePage(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.md":  "# Home",
		"demo.html": "<div class=\"box\">hello</div>\n",
		"box.md":    "---\ntitle: Boxes\n---\n# Box\n\n<demo html=\"./demo.html\" />\n",
	})
	srv := newServer(t, dir)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/box", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"<title>Boxes | demobox</title>",
		`<h1 id="box">Box</h1>`,
		"<" + config.DefaultWrapperComponentName,
		`<a href="/box" class="active">box</a>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page is missing %q", want)
		}
	}
	if strings.Contains(body, "/assets/reload.js") {
		t.Error("reload script included without watching")
	}
}

func TestServePageDiagnostics(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.md": "<demo vue=\"./Missing.vue\" />\n",
	})
	srv := newServer(t, dir)

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `class="diagnostics"`) {
		t.Error("missing demo source was not reported on the page")
	}
}

func TestServeUnknownPath(t *testing.T) {
	withHome := newServer(t, writeTree(t, map[string]string{"index.md": "# Home"}))
	w := httptest.NewRecorder()
	withHome.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Errorf("got %d to %q, want redirect to /", w.Code, w.Header().Get("Location"))
	}

	noHome := newServer(t, writeTree(t, map[string]string{"a.md": "# A"}))
	w = httptest.NewRecorder()
	noHome.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServeAssets(t *testing.T) {
	srv := newServer(t, writeTree(t, map[string]string{"index.md": "# Home"}))

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/assets/reload.js", http.StatusOK, "application/javascript"},
		{"/assets/page.css", http.StatusOK, "text/css; charset=utf-8"},
		{"/assets/chroma.css", http.StatusOK, "text/css; charset=utf-8"},
		{"/assets/missing.js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.contentType != "" && w.Header().Get("Content-Type") != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", w.Header().Get("Content-Type"), tt.contentType)
			}
		})
	}
}

func TestHandlerHeadersAndCompression(t *testing.T) {
	srv := newServer(t, writeTree(t, map[string]string{"index.md": "# Home"}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := srv.Handler(ctx)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("response was not compressed")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestPlaygroundRender(t *testing.T) {
	dir := writeTree(t, map[string]string{"demo.html": "<p>hi</p>\n"})
	srv := newServer(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := srv.Handler(ctx)

	body := `{"markdown":"---\ntitle: Play\n---\n<demo html=\"./demo.html\" />\n"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/playground/render", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp RenderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Demos != 1 || resp.Title != "Play" {
		t.Errorf("got demos=%d title=%q", resp.Demos, resp.Title)
	}
	if !strings.Contains(resp.HTML, "<"+config.DefaultWrapperComponentName) {
		t.Error("demo was not compiled")
	}
}

func TestPlaygroundConfinedToRoot(t *testing.T) {
	dir := writeTree(t, map[string]string{"demo.html": "<p>hi</p>\n"})
	secret := filepath.ToSlash(filepath.Join(writeTree(t, map[string]string{"secret.vue": "TOPSECRETVALUE"}), "secret.vue"))
	srv := newServer(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := srv.Handler(ctx)

	body, err := json.Marshal(RenderRequest{
		Markdown: `<demo vue="` + secret + `" vueFiles='["` + secret + `","../secret.vue"]' />` + "\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/playground/render", bytes.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "TOPSECRETVALUE") {
		t.Fatal("file outside the served root leaked into the response")
	}
	var resp RenderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Diagnostics) == 0 {
		t.Error("expected diagnostics for the rejected sources")
	}
}

func TestPlaygroundRejectsBadRequests(t *testing.T) {
	srv := newServer(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := srv.Handler(ctx)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", "GET", "", http.StatusMethodNotAllowed},
		{"invalid json", "POST", "{", http.StatusBadRequest},
		{"empty markdown", "POST", `{"markdown":""}`, http.StatusBadRequest},
		{"too large", "POST", `{"markdown":"` + strings.Repeat("a", maxPlaygroundBody) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, "/playground/render", strings.NewReader(tt.body)))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func dialReload(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readReload(t *testing.T, conn *websocket.Conn, timeout time.Duration) reloadMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	var msg reloadMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("no reload message: %v", err)
	}
	return msg
}

func TestBroadcastReload(t *testing.T) {
	srv := newServer(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	conn := dialReload(t, ts)
	waitFor(t, func() bool { return srv.hub.len() == 1 })

	srv.BroadcastReload("index.md")

	msg := readReload(t, conn, 2*time.Second)
	if msg.Action != "reload" || msg.FilePath != "index.md" {
		t.Errorf("got %+v", msg)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return srv.hub.len() == 0 })
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.md": "# Home"})
	c := cache.NewMemoryCache()
	defer c.Stop()
	c.Set("stale", "<pre>old</pre>", time.Minute)

	srv := newServer(t, dir, WithCache(c), WithDebounce(20*time.Millisecond))
	if err := srv.EnableWatch(); err != nil {
		t.Fatalf("EnableWatch() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	conn := dialReload(t, ts)
	waitFor(t, func() bool { return srv.hub.len() == 1 })

	if err := os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644); err != nil {
		t.Fatal(err)
	}

	msg := readReload(t, conn, 3*time.Second)
	if msg.Action != "reload" {
		t.Errorf("action = %q, want reload", msg.Action)
	}
	if _, ok := srv.route("/new"); !ok {
		t.Error("new page was not discovered")
	}
	if c.Len() != 0 {
		t.Error("highlight cache was not flushed")
	}

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if !strings.Contains(w.Body.String(), `<script src="/assets/reload.js"></script>`) {
		t.Error("reload script missing while watching")
	}
}

func TestWatchFollowsOutsideDemoDir(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.md": "# Home"})
	demos := writeTree(t, map[string]string{"Button.vue": "<template/>"})

	srv := newServer(t, dir, WithDebounce(20*time.Millisecond), WithWatchDirs(demos, ""))
	if err := srv.EnableWatch(); err != nil {
		t.Fatalf("EnableWatch() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewServer(srv.Handler(ctx))
	defer ts.Close()

	conn := dialReload(t, ts)
	waitFor(t, func() bool { return srv.hub.len() == 1 })

	if err := os.WriteFile(filepath.Join(demos, "Button.vue"), []byte("<template><b/></template>"), 0o644); err != nil {
		t.Fatal(err)
	}

	msg := readReload(t, conn, 3*time.Second)
	if !strings.HasSuffix(msg.FilePath, "Button.vue") {
		t.Errorf("filePath = %q, want the demo source", msg.FilePath)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	changed := make(chan string, 4)
	w, err := NewWatcher(dir, 20*time.Millisecond, func(rel string) error {
		changed <- rel
		return nil
	}, quiet)
	if err != nil {
		t.Fatalf("NewWatcher() error: %v", err)
	}
	w.Start()
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Button.vue"), []byte("<template />"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case rel := <-changed:
		if rel != "Button.vue" {
			t.Errorf("changed = %q, want Button.vue", rel)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error: %v", err)
	}
}

func TestMetrics(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.md":  "<demo html=\"./demo.html\" />\n",
		"demo.html": "<p>hi</p>\n",
	})
	srv := newServer(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := srv.Handler(ctx)

	rendered := testutil.ToFloat64(renderCounter.WithLabelValues(sourcePage, "ok"))
	compiled := testutil.ToFloat64(demoCounter.WithLabelValues("compiled"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got := testutil.ToFloat64(renderCounter.WithLabelValues(sourcePage, "ok")); got != rendered+1 {
		t.Errorf("renders_total = %v, want %v", got, rendered+1)
	}
	if got := testutil.ToFloat64(demoCounter.WithLabelValues("compiled")); got != compiled+1 {
		t.Errorf("demos_total = %v, want %v", got, compiled+1)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(w.Body.String(), "demobox_server_renders_total") {
		t.Error("metrics endpoint does not expose render counts")
	}
}
