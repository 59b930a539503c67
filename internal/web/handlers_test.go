package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/lilnaht/excelfile-automation/internal/forecast"
	"github.com/lilnaht/excelfile-automation/internal/store"
)

// fakeGenerator returns a canned generation result.
type fakeGenerator struct {
	res forecast.Result
	err error
}

func (f fakeGenerator) Generate(context.Context, string) (forecast.Result, error) {
	return f.res, f.err
}

func newTestServer(t *testing.T, mem *store.Memory, gen Generator) (*Server, string) {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Source.GeneratedRoot = root

	return NewServer(mem, gen, cfg), root
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	mem := store.NewMemory()
	s, _ := newTestServer(t, mem, fakeGenerator{})

	rec := doJSON(t, s, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "connected" {
		t.Errorf("expected connected, got %q", body["status"])
	}
}

func TestStatus_Disconnected(t *testing.T) {
	mem := store.NewMemory()
	mem.FailPing = errors.New("connection refused")
	s, _ := newTestServer(t, mem, fakeGenerator{})

	rec := doJSON(t, s, http.MethodGet, "/status", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disconnected") {
		t.Errorf("expected disconnected status, got %s", rec.Body.String())
	}
}

func TestGenerateFile_MissingInput(t *testing.T) {
	s, _ := newTestServer(t, store.NewMemory(), fakeGenerator{})

	for _, body := range []string{`{}`, `{"process_input":"  "}`, `not json`} {
		rec := doJSON(t, s, http.MethodPost, "/generate-file", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestGenerateFile_NoRecords(t *testing.T) {
	gen := fakeGenerator{err: fmt.Errorf("%w GHOST-1", forecast.ErrNoRecords)}
	s, _ := newTestServer(t, store.NewMemory(), gen)

	rec := doJSON(t, s, http.MethodPost, "/generate-file", `{"process_input":"GHOST-1"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "GHOST-1") {
		t.Errorf("404 body should name the process: %s", rec.Body.String())
	}
}

func TestGenerateFile_InternalFailure(t *testing.T) {
	gen := fakeGenerator{err: errors.New("template vanished")}
	s, _ := newTestServer(t, store.NewMemory(), gen)

	rec := doJSON(t, s, http.MethodPost, "/generate-file", `{"process_input":"IMP-001"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	// Internal detail must not leak to the client.
	if strings.Contains(rec.Body.String(), "template vanished") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func TestGenerateFile_Success(t *testing.T) {
	gen := fakeGenerator{res: forecast.Result{FileName: "IMP-001 - 2026-09-01 - Cost Forecast - INV_1 - Rev1.0.xlsx"}}
	s, _ := newTestServer(t, store.NewMemory(), gen)

	rec := doJSON(t, s, http.MethodPost, "/generate-file", `{"process_input":"imp-001"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["file_name"] != gen.res.FileName {
		t.Errorf("unexpected file_name %q", body["file_name"])
	}
}

func TestDownloadFile(t *testing.T) {
	s, root := newTestServer(t, store.NewMemory(), fakeGenerator{})

	// The document lives one process directory deep.
	dir := filepath.Join(root, "IMP-001")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	name := "IMP-001 - 2026-09-01 - Cost Forecast - INV_1 - Rev1.0.xlsx"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("workbook-bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	rec := doJSON(t, s, http.MethodGet, "/download-file/"+strings.ReplaceAll(name, " ", "%20"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != xlsxContentType {
		t.Errorf("unexpected content type %q", got)
	}
	if rec.Body.String() != "workbook-bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestDownloadFile_NotFound(t *testing.T) {
	s, _ := newTestServer(t, store.NewMemory(), fakeGenerator{})

	rec := doJSON(t, s, http.MethodGet, "/download-file/nope.xlsx", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDownloadFile_RejectsPathLikeNames(t *testing.T) {
	s, root := newTestServer(t, store.NewMemory(), fakeGenerator{})

	// A file outside the generated root that must stay unreachable.
	secret := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(secret, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	rec := doJSON(t, s, http.MethodGet, "/download-file/..%2Fsecret.txt", "")
	if rec.Code == http.StatusOK {
		t.Fatal("path-like download name must not succeed")
	}
}

func TestLastUpdate(t *testing.T) {
	mem := store.NewMemory()
	s, _ := newTestServer(t, mem, fakeGenerator{})

	rec := doJSON(t, s, http.MethodGet, "/last-update", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]*string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["lastUpdate"] != nil {
		t.Errorf("expected null before any sync, got %v", *body["lastUpdate"])
	}

	at := time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)
	if err := mem.UpsertMarker(context.Background(), at); err != nil {
		t.Fatalf("upsert marker: %v", err)
	}

	rec = doJSON(t, s, http.MethodGet, "/last-update", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["lastUpdate"] == nil || *body["lastUpdate"] != "2026-09-01T08:30:00Z" {
		t.Errorf("unexpected lastUpdate %v", body["lastUpdate"])
	}
}
