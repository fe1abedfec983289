package httpapi

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coffersTech/logtail/internal/record"
)

// toWireMap flattens a record into the JSON shape the bulk and stream
// endpoints emit: level/time/module/msg plus every extra key at the top
// level, matching the open set of extra keyed values the log file itself
// carries.
func toWireMap(r record.Record) map[string]any {
	m := map[string]any{
		"level": r.Level,
		"time":  r.Time.UTC().Format(time.RFC3339Nano),
		"msg":   r.Msg,
	}
	if r.Module != "" {
		m["module"] = r.Module
	}
	for k, v := range r.Extra {
		m[k] = v
	}
	return m
}

func toWireMaps(records []record.Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = toWireMap(r)
	}
	return out
}

// formatPlainLine renders a record as
// "YYYY-MM-DD HH:MM:SS.sss [level] module: msg (k1=v1 k2=v2…)".
func formatPlainLine(r record.Record) string {
	ts := r.Time.UTC().Format("2006-01-02 15:04:05.000")

	var extra string
	if len(r.Extra) > 0 {
		keys := make([]string, 0, len(r.Extra))
		for k := range r.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, r.Extra[k]))
		}
		extra = " (" + strings.Join(parts, " ") + ")"
	}

	return fmt.Sprintf("%s [%s] %s: %s%s", ts, r.Level, r.Module, r.Msg, extra)
}
