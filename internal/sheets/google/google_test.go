package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"budgetadvisor/internal/core"
)

type fakeSheets struct {
	mu      sync.Mutex
	header  [][]any
	appends [][]any
	paths   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)

	var body struct {
		Values [][]any `json:"values"`
	}
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":append"):
		f.appends = append(f.appends, body.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "Advice!A2:L2"},
		})
	case r.Method == http.MethodPut:
		f.header = body.Values
		json.NewEncoder(w).Encode(map[string]any{})
	default:
		json.NewEncoder(w).Encode(map[string]any{"values": f.header})
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExportAdvice(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	entry := core.HistoryEntry{
		ID:         1,
		Username:   "alice",
		Profile:    core.FinancialProfile{SavingsPercent: core.Num(5), ExpensesTracking: core.Bool(false)},
		AdviceText: "⚠️ Your savings are below 10% of your income.",
		CreatedAt:  time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	ref, err := c.ExportAdvice(context.Background(), entry)
	if err != nil {
		t.Fatalf("ExportAdvice: %v", err)
	}
	if ref != "Advice!A2:L2" {
		t.Errorf("unexpected ref %q", ref)
	}
	if len(fake.appends) != 1 {
		t.Fatalf("expected one appended row, got %d", len(fake.appends))
	}
	row := fake.appends[0]
	if row[0] != "2025-03-01 09:30:00" || row[1] != "alice" || row[2] != "5" || row[5] != "no" || row[3] != "" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestEnsureHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	if len(fake.header) != 1 || fake.header[0][0] != "Created At" {
		t.Fatalf("header not written: %v", fake.header)
	}

	writes := 0
	for _, p := range fake.paths {
		if strings.HasPrefix(p, http.MethodPut) {
			writes++
		}
	}
	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	after := 0
	for _, p := range fake.paths {
		if strings.HasPrefix(p, http.MethodPut) {
			after++
		}
	}
	if after != writes {
		t.Error("header should not be rewritten when present")
	}
}

func TestNilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Advice"}
	if _, err := c.ExportAdvice(context.Background(), core.HistoryEntry{}); err == nil {
		t.Error("expected error with nil service")
	}
	if err := c.EnsureHeader(context.Background()); err == nil {
		t.Error("expected error with nil service")
	}
}

func TestLastColumn(t *testing.T) {
	if got := lastColumn(); got != "L" {
		t.Errorf("lastColumn() = %q, want L", got)
	}
}
