package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentAdvisor, Format: "json", Output: &buf})
	l.Info("evaluated", FieldAdviceCount, 3)

	out := buf.String()
	if !strings.Contains(out, `"component":"advisor"`) {
		t.Fatalf("missing component: %s", out)
	}
	if !strings.Contains(out, `"advice_count":3`) {
		t.Fatalf("missing field: %s", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn output, got %s", buf.String())
	}
}

func TestComponentMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	var got *Logger
	h := ComponentMiddleware(ComponentAuth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(WithLogger(req.Context(), l)))

	if got == nil || got.Component() != ComponentAuth {
		t.Fatalf("expected auth component logger, got %+v", got)
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %s", l.Component())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithUser(7, "alice").WithAdvice(3, []string{"low_savings", "high_debt"})
	if f[FieldUserID] != int64(7) || f[FieldAdviceCount] != 2 || f[FieldEntryID] != int64(3) {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("slice length mismatch")
	}
}

func TestStructuredLoggerLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Format: "json", Output: &buf})

	NewStructuredLogger(l).LogError(context.Background(), "History lookup failed",
		errors.New("database is locked"), ComponentHistory, OpList, NewFields().WithUser(7, "alice"))

	out := buf.String()
	for _, want := range []string{
		`"level":"ERROR"`,
		`"msg":"History lookup failed"`,
		`"error":"database is locked"`,
		`"operation":"list"`,
		`"user_id":7`,
		`"username":"alice"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}
