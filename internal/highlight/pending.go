package highlight

import (
	"context"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/livetemplate/demobox/internal/uricomp"
	"golang.org/x/sync/errgroup"
)

const placeholderMarker = "<!--::async-highlight::"

var (
	rawPlaceholderRe     = regexp.MustCompile(`<pre><!--::async-highlight::(\w+)::--><code>[\s\S]*?</code></pre>`)
	encodedPlaceholderRe = regexp.MustCompile(`%3Cpre%3E%3C!--%3A%3Aasync-highlight%3A%3A(\w+)%3A%3A--%3E%3Ccode%3E[\s\S]*?%3C%2Fcode%3E%3C%2Fpre%3E`)
)

// Job produces the markup for one deferred highlight.
type Job func(ctx context.Context) (string, error)

type pendingJob struct {
	run  Job
	lang string
}

// Pending holds the deferred highlights of one document. Each job leaves a
// placeholder in the output and runs during Resolve.
type Pending struct {
	mu     sync.Mutex
	jobs   map[string]pendingJob
	logger *slog.Logger
}

// NewPending returns an empty registry.
func NewPending(logger *slog.Logger) *Pending {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pending{jobs: make(map[string]pendingJob), logger: logger}
}

// Add registers job and returns the placeholder markup to emit in its place.
// The placeholder shows the escaped code until it is resolved.
func (p *Pending) Add(code, lang string, job Job) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	p.mu.Lock()
	p.jobs[id] = pendingJob{run: job, lang: lang}
	p.mu.Unlock()
	return "<pre>" + placeholderMarker + id + "::--><code>" + html.EscapeString(code) + "</code></pre>"
}

// Len returns the number of unresolved jobs.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

func (p *Pending) take(id string) (pendingJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	j, ok := p.jobs[id]
	if ok {
		delete(p.jobs, id)
	}
	return j, ok
}

// Resolve runs every job referenced from doc concurrently and substitutes the
// results. Encoded placeholders sit inside JSON string literals of attribute
// payloads, so they receive JSON-escaped, percent-encoded markup. Unknown ids
// and failed jobs become "".
func (p *Pending) Resolve(ctx context.Context, doc string) string {
	ids := placeholderIDs(doc)
	if len(ids) == 0 {
		return doc
	}

	results := make(map[string]string, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		job, ok := p.take(id)
		if !ok {
			mu.Lock()
			results[id] = ""
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			out := p.run(gctx, id, job)
			mu.Lock()
			results[id] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	doc = encodedPlaceholderRe.ReplaceAllStringFunc(doc, func(m string) string {
		return uricomp.Encode(jsonString(results[encodedPlaceholderRe.FindStringSubmatch(m)[1]]))
	})
	return rawPlaceholderRe.ReplaceAllStringFunc(doc, func(m string) string {
		return results[rawPlaceholderRe.FindStringSubmatch(m)[1]]
	})
}

func (p *Pending) run(ctx context.Context, id string, job pendingJob) (out string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("async highlight panicked", "id", id, "panic", r)
			out = ""
		}
	}()
	out, err := job.run(ctx)
	if err != nil {
		p.logger.Debug("async highlight failed", "id", id, "error", err)
		return ""
	}
	if out == "" {
		return ""
	}
	if !strings.HasPrefix(out, "<pre") {
		out = `<pre><code class="language-` + job.lang + `">` + out + "</code></pre>"
	}
	return out
}

// placeholderIDs lists the distinct placeholder ids in doc, raw or encoded.
func placeholderIDs(doc string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, re := range []*regexp.Regexp{encodedPlaceholderRe, rawPlaceholderRe} {
		for _, m := range re.FindAllStringSubmatch(doc, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				ids = append(ids, m[1])
			}
		}
	}
	return ids
}

// jsonString escapes s for use between the quotes of a JSON string.
func jsonString(s string) string {
	data, err := uricomp.MarshalJSON(s)
	if err != nil || len(data) < 2 {
		return ""
	}
	return string(data[1 : len(data)-1])
}
