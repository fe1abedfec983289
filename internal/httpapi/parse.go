package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/coffersTech/logtail/internal/filter"
	"github.com/coffersTech/logtail/internal/record"
)

// parseSpec builds a filter.Spec from the query parameters common to every
// endpoint: from, to, level, module, limit, offset.
func parseSpec(r *http.Request) filter.Spec {
	q := r.URL.Query()
	var spec filter.Spec

	if from := q.Get("from"); from != "" {
		if t, ok := record.ParseInstant(from); ok {
			spec.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, ok := record.ParseInstant(to); ok {
			spec.To = &t
		}
	}
	if lv := q.Get("level"); lv != "" {
		spec.Level = filter.NewLevelSet(strings.Split(lv, ","))
	}
	if m := q.Get("module"); m != "" {
		spec.Module = filter.NewModuleSet(strings.Split(m, ","))
	}
	if lim := q.Get("limit"); lim != "" {
		if n, err := strconv.Atoi(lim); err == nil && n > 0 {
			spec.Limit = n
		}
	}
	if off := q.Get("offset"); off != "" {
		if n, err := strconv.Atoi(off); err == nil && n >= 0 {
			spec.Offset = n
		}
	}
	return spec
}
