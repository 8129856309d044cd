package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeTriggers(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	raw := w.Header().Get("HX-Trigger")
	if raw == "" {
		t.Fatal("HX-Trigger header not set")
	}
	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v (%s)", err, raw)
	}
	return triggers
}

func TestSavedAdviceResponse(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerAdviceEvaluated(42, 3).
		TriggerHistoryRefresh().
		TriggerFormReset().
		TriggerSuccessNotification("Saved to your history").
		BodyHTML("<ul><li>advice</li></ul>").
		Write(w)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	triggers := decodeTriggers(t, w)
	for _, name := range []string{"advice:evaluated", "history:refresh", "form:reset", "show-notification"} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("missing trigger %q", name)
		}
	}

	var evaluated struct{ Entry, Count int64 }
	if err := json.Unmarshal(triggers["advice:evaluated"], &evaluated); err != nil {
		t.Fatal(err)
	}
	if evaluated.Entry != 42 || evaluated.Count != 3 {
		t.Errorf("advice:evaluated = %+v", evaluated)
	}

	var note struct {
		Type     string
		Message  string
		Duration int
	}
	if err := json.Unmarshal(triggers["show-notification"], &note); err != nil {
		t.Fatal(err)
	}
	if note.Type != "success" || note.Message != "Saved to your history" || note.Duration != 3000 {
		t.Errorf("notification = %+v", note)
	}
}

func TestUnsavedAdviceWarning(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerAdviceEvaluated(0, 1).
		TriggerNotification(NotificationWarning, "Advice could not be saved to your history", 5000).
		Write(w)

	triggers := decodeTriggers(t, w)
	if _, ok := triggers["history:refresh"]; ok {
		t.Error("unsaved run must not refresh history")
	}
	if !strings.Contains(string(triggers["show-notification"]), `"type":"warning"`) {
		t.Errorf("notification = %s", triggers["show-notification"])
	}
}

func TestNoTriggersNoHeader(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect("/login").Write(w)

	if _, ok := w.Header()["Hx-Trigger"]; ok {
		t.Error("HX-Trigger set without triggers")
	}
	if got := w.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *HTMXResponseBuilder
		wantStatus int
		wantBody   string
		redirect   string
	}{
		{"malformed body", BadRequestError("Invalid request format"), http.StatusBadRequest,
			`<div class="error">Invalid request format</div>`, ""},
		{"bad field", UnprocessableEntityError("Savings (% of income): must be between 0 and 100"), http.StatusUnprocessableEntity,
			`<div class="error">Savings (% of income): must be between 0 and 100</div>`, ""},
		{"store down", InternalServerError("Could not load your history"), http.StatusInternalServerError,
			`<div class="error">Could not load your history</div>`, ""},
		{"rate limited", TooManyRequestsError("Rate limit exceeded"), http.StatusTooManyRequests,
			`<div class="error">Rate limit exceeded</div>`, ""},
		{"anonymous", UnauthorizedError("Please log in to get advice"), http.StatusUnauthorized,
			`<div class="error">Please log in to get advice</div>`, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if got := w.Header().Get("HX-Redirect"); got != tt.redirect {
				t.Errorf("HX-Redirect = %q, want %q", got, tt.redirect)
			}
		})
	}
}

func TestErrorResponseWithNotification(t *testing.T) {
	w := httptest.NewRecorder()
	InternalServerError("Could not evaluate your budget").
		TriggerErrorNotification("Could not evaluate your budget").
		Write(w)

	triggers := decodeTriggers(t, w)
	if !strings.Contains(string(triggers["show-notification"]), `"type":"error"`) {
		t.Errorf("notification = %s", triggers["show-notification"])
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestErrorResponseEscapesUsername(t *testing.T) {
	w := httptest.NewRecorder()
	UnprocessableEntityError(`<img src=x onerror="alert(1)"> is not a valid username`).Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<img") {
		t.Errorf("message not escaped: %s", body)
	}
	if !strings.Contains(body, "&lt;img") {
		t.Errorf("expected escaped entity: %s", body)
	}
}
