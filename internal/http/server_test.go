package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"budgetadvisor/internal/log"
	"budgetadvisor/internal/services"
	"budgetadvisor/internal/storage/memory"
)

type testServer struct {
	*Server
	store *memory.Store
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	store := memory.New()
	sessions, err := NewSessionManager(strings.Repeat("k", 32), time.Hour, false)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(Options{HistoryLimit: 10, RateLimitPerMinute: rateLimit}, Dependencies{
		Credentials: services.NewCredentialServiceWithCost(store, bcrypt.MinCost),
		Advice:      services.NewAdviceService(nil, store, nil),
		Sessions:    sessions,
		Store:       store,
		Logger:      log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return &testServer{Server: srv, store: store}
}

func (ts *testServer) do(t *testing.T, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	req.RemoteAddr = "203.0.113.10:4000"
	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// register creates a user through the form and returns its session cookie.
func (ts *testServer) register(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	rec := ts.do(t, postForm("/register", url.Values{
		"username": {username},
		"password": {password},
		"confirm":  {password},
	}), nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register status=%d body=%s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func TestHealthReadyMetrics(t *testing.T) {
	ts := newTestServer(t, 60)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := ts.do(t, httptest.NewRequest(http.MethodGet, path, nil), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
	}

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rec.Code)
	}
	for _, name := range []string{"http_requests_total", "advice_evaluations_total", "cache_hits_total", "rate_limit_hits_total"} {
		if !strings.Contains(rec.Body.String(), "# TYPE "+name) {
			t.Errorf("metrics missing %s", name)
		}
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, 60)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login page status=%d", rec.Code)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestAnonymousAccess(t *testing.T) {
	ts := newTestServer(t, 60)

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("index: status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("history: status=%d", rec.Code)
	}

	rec = ts.do(t, postForm("/advice", url.Values{"savings_percent": {"5"}}), nil)
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("HX-Redirect") != "/login" {
		t.Fatalf("advice: status=%d hx-redirect=%q", rec.Code, rec.Header().Get("HX-Redirect"))
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/rules", nil), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "low_savings") {
		t.Fatalf("rules: status=%d", rec.Code)
	}
}

func TestAdviceFlow(t *testing.T) {
	ts := newTestServer(t, 60)
	cookie := ts.register(t, "ada", "correct horse")

	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Check your budget") {
		t.Fatalf("index status=%d", rec.Code)
	}

	req := postForm("/advice", url.Values{
		"savings_percent":           {"5"},
		"debt_percent":              {"25"},
		"subscription_percent":      {"15"},
		"expenses_tracking_present": {"1"},
		"emergency_fund":            {"100"},
		"wants_percent":             {"40"},
		"goal_exists":               {"on"},
		"goal_exists_present":       {"1"},
		"savings":                   {"100"},
		"goal_amount":               {"1000"},
	})
	req.Header.Set("HX-Request", "true")
	rec = ts.do(t, req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("advice status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Your savings are below 10% of your income.",
		"More than 20% of your income goes to debt repayment.",
		"Track daily expenses",
		"Saved to your history.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("advice partial missing %q", want)
		}
	}
	triggers := rec.Header().Get("HX-Trigger")
	for _, want := range []string{"history:refresh", "form:reset", `"type":"success"`} {
		if !strings.Contains(triggers, want) {
			t.Errorf("HX-Trigger = %q, missing %s", triggers, want)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("HX-Request", "true")
	rec = ts.do(t, req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status=%d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<html") {
		t.Error("htmx history request should get only the table")
	}
	if !strings.Contains(rec.Body.String(), "Your savings are below 10% of your income.") {
		t.Error("history missing stored advice")
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/history", nil), cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<html") {
		t.Fatalf("full history page status=%d", rec.Code)
	}
}

func TestAdviceHealthyAndInvalid(t *testing.T) {
	ts := newTestServer(t, 60)
	cookie := ts.register(t, "bob", "password1")

	rec := ts.do(t, postForm("/advice", url.Values{"savings_percent": {"15"}}), cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Your budgeting looks healthy") {
		t.Fatalf("healthy: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, postForm("/advice", url.Values{"savings_percent": {"150"}}), cookie)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid: status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Savings (% of income)") {
		t.Errorf("error should name the field: %s", rec.Body.String())
	}
}

func TestAdviceJSON(t *testing.T) {
	ts := newTestServer(t, 60)
	cookie := ts.register(t, "cy", "password1")

	req := httptest.NewRequest(http.MethodPost, "/advice", strings.NewReader(`{"savings_percent": 25, "expenses_tracking": true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := ts.do(t, req, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var got adviceJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Advice) != 1 || got.Advice[0].Rule != "encourage_investment" {
		t.Errorf("advice = %+v", got.Advice)
	}
	if !got.Saved || got.EntryID == 0 {
		t.Errorf("expected saved entry, got %+v", got)
	}
}

func TestLoginLogout(t *testing.T) {
	ts := newTestServer(t, 60)
	ts.register(t, "dee", "password1")

	rec := ts.do(t, postForm("/login", url.Values{"username": {"dee"}, "password": {"wrong"}}), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Error("missing error banner")
	}

	rec = ts.do(t, postForm("/login", url.Values{"username": {"DEE"}, "password": {"password1"}}), nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("login status=%d", rec.Code)
	}
	cookie := sessionCookie(t, rec)

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("logged-in user should be redirected away from /login, got %d", rec.Code)
	}

	rec = ts.do(t, postForm("/logout", nil), cookie)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout status=%d", rec.Code)
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Error("logout should expire the cookie")
	}
}

func TestRegisterErrors(t *testing.T) {
	ts := newTestServer(t, 60)
	ts.register(t, "eve", "password1")

	tests := []struct {
		name   string
		form   url.Values
		status int
		msg    string
	}{
		{"duplicate", url.Values{"username": {"Eve"}, "password": {"x"}, "confirm": {"x"}}, http.StatusConflict, "already taken"},
		{"mismatch", url.Values{"username": {"fay"}, "password": {"a"}, "confirm": {"b"}}, http.StatusUnprocessableEntity, "do not match"},
		{"empty username", url.Values{"username": {" "}, "password": {"a"}, "confirm": {"a"}}, http.StatusUnprocessableEntity, "empty username"},
		{"empty password", url.Values{"username": {"gus"}, "password": {""}, "confirm": {""}}, http.StatusUnprocessableEntity, "empty password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, postForm("/register", tt.form), nil)
			if rec.Code != tt.status {
				t.Fatalf("status=%d want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.msg) {
				t.Errorf("body missing %q", tt.msg)
			}
		})
	}
}

func TestRateLimitOnPost(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rec := ts.do(t, postForm("/login", url.Values{"username": {"x"}, "password": {"y"}}), nil)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i+1)
		}
	}
	rec := ts.do(t, postForm("/login", url.Values{"username": {"x"}, "password": {"y"}}), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rec.Code)
	}

	rec = ts.do(t, httptest.NewRequest(http.MethodGet, "/login", nil), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET should not be limited, got %d", rec.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, 60)
	rec := ts.do(t, httptest.NewRequest(http.MethodGet, "/static/style.css", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(Options{}, Dependencies{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
