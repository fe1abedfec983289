package httpapi

import (
	"fmt"
	"html"
	"html/template"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/coffersTech/logtail/internal/record"
)

// shellRowMarker is the magic comment splitting the cached shell fragment
// into before_logs/after_logs, so the server interleaves rows without
// re-rendering the shell on every request.
const shellRowMarker = "<!--LOGTAIL_ROWS-->"

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>logtail</title>
<style>
body { font-family: ui-monospace, monospace; background: #111418; color: #d8dee4; margin: 0; }
#logs { padding: 0; }
.row { padding: 3px 10px; border-bottom: 1px solid #20242b; white-space: pre-wrap; }
.level-error { color: #f36a6a; }
.level-warn  { color: #f2b35c; }
.level-info  { color: #79b8f2; }
.level-debug { color: #7d858f; }
</style>
</head>
<body>
<div id="logs">
{{.}}
</div>
`))

const loginPageHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>logtail</title></head>
<body>
<form method="get" action="/">
<input name="pwd" type="password" placeholder="password" autofocus>
<button type="submit">view logs</button>
</form>
</body></html>`

var (
	shellOnce   sync.Once
	shellBefore string
	shellAfter  string
)

// renderShell computes the shell fragment once per process and caches the
// two halves either side of the row marker.
func renderShell() (before, after string) {
	shellOnce.Do(func() {
		var buf strings.Builder
		// The marker goes in as template.HTML data: html/template strips
		// comments written directly in the template text.
		if err := shellTemplate.Execute(&buf, template.HTML(shellRowMarker)); err != nil {
			log.Fatalf("httpapi: render shell template: %v", err)
		}
		parts := strings.SplitN(buf.String(), shellRowMarker, 2)
		shellBefore, shellAfter = parts[0], parts[1]
	})
	return shellBefore, shellAfter
}

// handleIndex implements the streaming-HTML page: an immediate document
// prelude, the cached shell up to the row marker, one row per matching
// record streamed as it is found, then the rest of the shell plus a small
// hydration script. Unlike the other three endpoints it never delegates to
// authorize: that helper writes a text/plain or application/json failure
// body directly, which would corrupt this page's text/html response —
// instead it checks the secret itself and renders the static login page
// (200, text/html) on a missing or wrong pwd.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.secret == "" {
		http.Error(w, "server misconfigured: no password set", http.StatusInternalServerError)
		return
	}
	if !checkSecret(r.URL.Query().Get("pwd"), s.secret) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, loginPageHTML)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	before, after := renderShell()
	io.WriteString(w, before)
	flusher.Flush()

	spec := parseSpec(r)
	count, err := s.engine.ScanForStream(spec, func(rec record.Record) bool {
		io.WriteString(w, renderRow(rec))
		flusher.Flush()
		return true
	})
	if err != nil {
		fmt.Fprintf(w, "<!-- read error: %s -->\n", html.EscapeString(err.Error()))
	}

	io.WriteString(w, after)
	fmt.Fprintf(w, "<script>window.__LOGTAIL__=%s;</script>\n", hydrationPayload(s.secret, count))
	flusher.Flush()
}

func renderRow(r record.Record) string {
	return fmt.Sprintf(
		"<div class=\"row level-%s\" data-time=%q data-level=%q>%s [%s] %s</div>\n",
		html.EscapeString(r.Level),
		r.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		r.Level,
		html.EscapeString(r.Time.UTC().Format("2006-01-02 15:04:05.000")),
		html.EscapeString(r.Level),
		html.EscapeString(r.Msg),
	)
}

func hydrationPayload(secret string, count int) string {
	return fmt.Sprintf("{\"secret\":%q,\"count\":%d}", secret, count)
}
