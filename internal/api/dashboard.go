package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

const dashboardHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>banter dashboard</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #1a1a2e; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f0f0f5; }
h1, h2 { color: #16213e; }
</style>
</head>
<body>
`

const dashboardFoot = `</body>
</html>
`

// handleDashboard renders the markdown analytics report as HTML.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	windowDays := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			windowDays = n
		}
	}

	report, err := s.agent.Report(r.Context(), windowDays)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "report unavailable", s.logger)
		return
	}

	var body bytes.Buffer
	if err := markdown.Convert([]byte(report), &body); err != nil {
		writeError(w, http.StatusInternalServerError, "report rendering failed", s.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHead))
	w.Write(body.Bytes())
	w.Write([]byte(dashboardFoot))
}
