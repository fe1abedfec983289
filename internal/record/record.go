// Package record implements the line-to-record parser: the pure function
// from a raw NDJSON line to either a strict record, a permissive record, or
// nothing.
package record

import (
	"strings"
	"time"

	"github.com/valyala/fastjson"
)

// Record is a single parsed log line.
//
// Extra holds every JSON key besides level/time/module/msg, preserved so
// user-facing output can still render them.
type Record struct {
	Level  string
	Time   time.Time
	Module string
	Msg    string
	Extra  map[string]string

	// Raw is the original line, kept for permissive records and for
	// formatting the plain-text endpoint's passthrough of non-JSON lines.
	Raw string

	// Strict is true iff Time parsed from a time field on the line itself;
	// permissive records with a synthesized Time are never strict.
	Strict bool
}

var parserPool fastjson.ParserPool

// ParseStrict returns a record only if line is a well-formed JSON object
// with a time field that parses via the instant grammar in parseInstant.
// Blank lines, non-JSON lines, and JSON lines without a parseable time all
// yield (Record{}, false).
func ParseStrict(line string) (Record, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Record{}, false
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(trimmed)
	if err != nil {
		return Record{}, false
	}
	obj, err := v.Object()
	if err != nil {
		return Record{}, false
	}

	timeStr := stringField(obj, "time")
	if timeStr == "" {
		return Record{}, false
	}
	t, ok := parseInstant(timeStr)
	if !ok {
		return Record{}, false
	}

	rec := Record{
		Level:  stringField(obj, "level"),
		Time:   t,
		Module: stringField(obj, "module"),
		Msg:    stringField(obj, "msg"),
		Extra:  extraFields(obj),
		Raw:    line,
		Strict: true,
	}
	if rec.Level == "" {
		rec.Level = "info"
	}
	return rec, true
}

// ParsePermissive behaves like ParseStrict on well-formed lines, but on a
// non-structured or unparseable line returns a synthesized record instead
// of rejecting it: level="info", msg=<raw line>, time=now. It never returns
// false for a non-blank line.
func ParsePermissive(line string, now time.Time) (Record, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Record{}, false
	}
	if rec, ok := ParseStrict(line); ok {
		return rec, true
	}
	return Record{
		Level:  "info",
		Time:   now,
		Msg:    trimmed,
		Raw:    line,
		Strict: false,
	}, true
}

func stringField(obj *fastjson.Object, key string) string {
	v := obj.Get(key)
	if v == nil {
		return ""
	}
	sb, err := v.StringBytes()
	if err != nil {
		return ""
	}
	return string(sb)
}

var reservedKeys = map[string]struct{}{
	"level": {}, "time": {}, "module": {}, "msg": {},
}

func extraFields(obj *fastjson.Object) map[string]string {
	var extra map[string]string
	obj.Visit(func(key []byte, v *fastjson.Value) {
		k := string(key)
		if _, reserved := reservedKeys[k]; reserved {
			return
		}
		if extra == nil {
			extra = make(map[string]string)
		}
		extra[k] = valueToString(v)
	})
	return extra
}

func valueToString(v *fastjson.Value) string {
	if sb, err := v.StringBytes(); err == nil {
		return string(sb)
	}
	return v.String()
}

// instant layouts, tried in the order given in the log file format grammar:
// full instant with timezone, naive local instant, space-separated, date-only.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseInstant(s string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseInstant exposes the same instant grammar used for a record's time
// field, for query parameters (from/to) that carry an instant string too.
func ParseInstant(s string) (time.Time, bool) {
	return parseInstant(s)
}
