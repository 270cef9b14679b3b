package upload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/fitlog/internal/ingest"
)

const exportCSV = `
"Push · Day 1 · Week 4 · Push-Pull-Legs";"2026-02-17 6:10 h";"0:58 hr"
"1. Bench Press · Barbell · 8 reps"
#;KG;REPS;RIR
1;100;8;1
2;100;7;1
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeExport(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(exportCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// importServer answers the import endpoint and counts calls.
func importServer(t *testing.T, calls *atomic.Int32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/api/v1/import/alpha" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		if status != http.StatusOK {
			http.Error(w, `{"error":"nope"}`, status)
			return
		}
		_ = json.NewEncoder(w).Encode(ingest.Result{SessionsReceived: 1, SessionsInserted: 1, SetsImported: 2})
	}))
}

// TestUploaderSkipsUnchanged verifies a second run does not resend unchanged files.
func TestUploaderSkipsUnchanged(t *testing.T) {
	var calls atomic.Int32
	ts := importServer(t, &calls, http.StatusOK)
	defer ts.Close()

	dir := t.TempDir()
	exports := filepath.Join(dir, "exports")
	if err := os.MkdirAll(exports, 0o755); err != nil {
		t.Fatal(err)
	}
	writeExport(t, exports, "a.csv")
	writeExport(t, exports, "b.CSV")
	if err := os.WriteFile(filepath.Join(exports, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	state, err := OpenStateDB(filepath.Join(dir, "state"))
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	client := NewClient(ts.URL, "secret")
	ctx := context.Background()

	stats, err := New(client, FormatAlpha, state, exports, false, time.UTC, discardLogger()).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 2 || stats.FilesUploaded != 2 || stats.SessionsInserted != 2 || stats.SetsImported != 4 {
		t.Errorf("first run stats = %+v", stats)
	}

	stats, err = New(client, FormatAlpha, state, exports, false, time.UTC, discardLogger()).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesSkipped != 2 || stats.FilesUploaded != 0 {
		t.Errorf("second run stats = %+v", stats)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2", n)
	}
}

// TestUploaderDryRun verifies dry-run parses without contacting the server.
func TestUploaderDryRun(t *testing.T) {
	path := writeExport(t, t.TempDir(), "export.csv")

	stats, err := New(NewClient("http://127.0.0.1:1", ""), FormatAlpha, nil, path, true, time.UTC, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 1 || stats.SessionsParsed != 1 || stats.FilesUploaded != 0 || stats.FilesErrored != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestClientNoRetryOn4xx verifies client errors are returned after one attempt.
func TestClientNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	ts := importServer(t, &calls, http.StatusForbidden)
	defer ts.Close()

	c := NewClient(ts.URL, "secret")
	c.backoff = time.Millisecond
	if _, err := c.Send(context.Background(), FormatAlpha, []byte(exportCSV)); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

// TestClientRetriesOn5xx verifies server errors are retried three times.
func TestClientRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	ts := importServer(t, &calls, http.StatusBadGateway)
	defer ts.Close()

	c := NewClient(ts.URL, "secret")
	c.backoff = time.Millisecond
	if _, err := c.Send(context.Background(), FormatAlpha, []byte(exportCSV)); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}
