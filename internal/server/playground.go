package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/livetemplate/demobox"
)

const (
	maxPlaygroundBody = 1 << 20

	playgroundRPS   = 5
	playgroundBurst = 10
)

// RenderRequest is the body of POST /playground/render.
type RenderRequest struct {
	Markdown string `json:"markdown"`
}

// RenderResponse is the rendered playground document.
type RenderResponse struct {
	HTML        string   `json:"html"`
	Title       string   `json:"title,omitempty"`
	Demos       int      `json:"demos"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// handleRender renders posted Markdown as if it were a page at the root.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPlaygroundBody)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Markdown == "" {
		writeJSONError(w, http.StatusBadRequest, "markdown is required")
		return
	}

	timer := prometheus.NewTimer(renderDuration.WithLabelValues(sourcePlayground))
	res, err := s.md.Convert(r.Context(), []byte(req.Markdown), filepath.Join(s.rootDir, "playground.md"),
		demobox.ConfineTo(s.rootDir))
	timer.ObserveDuration()
	if err != nil {
		renderCounter.WithLabelValues(sourcePlayground, "error").Inc()
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	renderCounter.WithLabelValues(sourcePlayground, "ok").Inc()
	observeDemos(res.Demos, len(res.Diagnostics))

	resp := RenderResponse{
		HTML:  res.HTML,
		Title: res.Frontmatter.Title,
		Demos: res.Demos,
	}
	for _, d := range res.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, d.Format())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("[Server] Failed to encode playground response", "error", err)
	}
}
