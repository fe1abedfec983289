package record

import (
	"testing"
	"time"
)

func TestParseStrict(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		wantOK  bool
		wantLvl string
		wantMsg string
	}{
		{
			name:    "full instant with timezone",
			line:    `{"level":"error","time":"2025-12-01T00:00:00Z","msg":"boom"}`,
			wantOK:  true,
			wantLvl: "error",
			wantMsg: "boom",
		},
		{
			name:    "space separated form",
			line:    `{"level":"warn","time":"2025-12-01 00:00:00","msg":"slow"}`,
			wantOK:  true,
			wantLvl: "warn",
			wantMsg: "slow",
		},
		{
			name:    "date only form",
			line:    `{"level":"info","time":"2025-12-01","msg":"daily"}`,
			wantOK:  true,
			wantLvl: "info",
			wantMsg: "daily",
		},
		{
			name:   "blank line",
			line:   "   ",
			wantOK: false,
		},
		{
			name:   "non-json line",
			line:   "panic: runtime error at frame 12",
			wantOK: false,
		},
		{
			name:   "json without time",
			line:   `{"level":"info","msg":"no time here"}`,
			wantOK: false,
		},
		{
			name:   "json with unparseable time",
			line:   `{"level":"info","time":"not-a-time","msg":"x"}`,
			wantOK: false,
		},
		{
			name:    "missing level defaults to info",
			line:    `{"time":"2025-12-01T00:00:00Z","msg":"no level"}`,
			wantOK:  true,
			wantLvl: "info",
			wantMsg: "no level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, ok := ParseStrict(tc.line)
			if ok != tc.wantOK {
				t.Fatalf("ParseStrict(%q) ok = %v, want %v", tc.line, ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if !rec.Strict {
				t.Errorf("expected Strict=true")
			}
			if rec.Level != tc.wantLvl {
				t.Errorf("level = %q, want %q", rec.Level, tc.wantLvl)
			}
			if rec.Msg != tc.wantMsg {
				t.Errorf("msg = %q, want %q", rec.Msg, tc.wantMsg)
			}
		})
	}
}

func TestParseStrictExtraFields(t *testing.T) {
	line := `{"level":"info","time":"2025-12-01T00:00:00Z","msg":"x","module":"api","trace_id":"abc123","count":3}`
	rec, ok := ParseStrict(line)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if rec.Module != "api" {
		t.Errorf("module = %q, want api", rec.Module)
	}
	if rec.Extra["trace_id"] != "abc123" {
		t.Errorf("extra[trace_id] = %q, want abc123", rec.Extra["trace_id"])
	}
	if rec.Extra["count"] != "3" {
		t.Errorf("extra[count] = %q, want 3", rec.Extra["count"])
	}
	if _, present := rec.Extra["msg"]; present {
		t.Errorf("reserved key msg leaked into Extra")
	}
}

func TestParsePermissive(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	rec, ok := ParsePermissive("a bare panic trace line", now)
	if !ok {
		t.Fatalf("expected permissive parse to succeed on a non-structured line")
	}
	if rec.Strict {
		t.Errorf("synthesized record must not be marked Strict")
	}
	if rec.Level != "info" {
		t.Errorf("level = %q, want info", rec.Level)
	}
	if rec.Msg != "a bare panic trace line" {
		t.Errorf("msg = %q, want the raw line", rec.Msg)
	}
	if !rec.Time.Equal(now) {
		t.Errorf("time = %v, want %v", rec.Time, now)
	}

	if _, ok := ParsePermissive("   ", now); ok {
		t.Errorf("blank line must still yield nothing under permissive parse")
	}

	strict := `{"level":"error","time":"2025-12-01T00:00:00Z","msg":"real"}`
	rec, ok = ParsePermissive(strict, now)
	if !ok || !rec.Strict {
		t.Errorf("well-formed line must parse strictly even through the permissive entrypoint")
	}
}

func TestParseStrictRoundTripsLargeLine(t *testing.T) {
	huge := make([]byte, 4<<20)
	for i := range huge {
		huge[i] = 'a'
	}
	line := `{"level":"debug","time":"2025-12-01T00:00:00Z","msg":"blob","payload":"` + string(huge) + `"}`
	rec, ok := ParseStrict(line)
	if !ok {
		t.Fatalf("expected a multi-MiB line to parse")
	}
	if len(rec.Extra["payload"]) != len(huge) {
		t.Errorf("payload length = %d, want %d", len(rec.Extra["payload"]), len(huge))
	}
}
