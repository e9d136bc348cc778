package demobox

import (
	"context"

	"github.com/livetemplate/demobox/internal/highlight"
)

// ResolvePlaceholders substitutes the deferred highlights of pending into
// html. Raw placeholders and those percent-encoded inside attribute payloads
// are both replaced; jobs run concurrently. A nil pending returns html as is.
func ResolvePlaceholders(ctx context.Context, html string, pending *highlight.Pending) string {
	if pending == nil {
		return html
	}
	return pending.Resolve(ctx, html)
}
