package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dualtodo/internal/config"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func memoryConfig() config.Config {
	var cfg config.Config
	cfg.App.Env = "test"
	cfg.App.Version = "1.2.3"
	cfg.App.MemoryFallback = true
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

func newTestApp(t *testing.T) (*App, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	a, err := New(memoryConfig(), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, hook
}

func serve(t *testing.T, a *App, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsBackends(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		OK       bool              `json:"ok"`
		Env      string            `json:"env"`
		Backends map[string]string `json:"backends"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Env != "test" {
		t.Fatalf("unexpected health %+v", body)
	}
	if body.Backends[DocumentBackend] != kindMemory || body.Backends[RelationalBackend] != kindMemory {
		t.Fatalf("unexpected backends %v", body.Backends)
	}
}

func TestRootAndVersion(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, http.MethodGet, "/version", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"1.2.3"`) {
		t.Fatalf("unexpected version response %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, a, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("root: expected 200, got %d", rec.Code)
	}
	var root struct {
		APIs []string `json:"apis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &root); err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if len(root.APIs) != 2 || root.APIs[0] != "/todo" || root.APIs[1] != "/todoSql" {
		t.Fatalf("unexpected apis %v", root.APIs)
	}
}

func TestSwaggerDocServed(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, http.MethodGet, "/swagger-doc.json", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !json.Valid(rec.Body.Bytes()) {
		t.Fatal("swagger doc is not valid JSON")
	}
	for _, path := range []string{`"/todo/{id}"`, `"/todoSql/by-due-date"`} {
		if !bytes.Contains(rec.Body.Bytes(), []byte(path)) {
			t.Fatalf("swagger doc missing %s", path)
		}
	}
}

func TestBackendsAreIndependent(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, http.MethodPost, "/todo", `{"title":"doc only"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = serve(t, a, http.MethodGet, "/todoSql", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("relational view should be empty, got %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(t, a, http.MethodGet, "/todoSql/"+created.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("document id on relational view: expected 404, got %d", rec.Code)
	}
	rec = serve(t, a, http.MethodGet, "/todo/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("document view: expected 200, got %d", rec.Code)
	}
}

func TestCRUDOnBothPrefixes(t *testing.T) {
	a, _ := newTestApp(t)

	for _, prefix := range []string{"/todo", "/todoSql"} {
		rec := serve(t, a, http.MethodPost, prefix, `{"title":"Buy milk"}`, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s create: expected 201, got %d", prefix, rec.Code)
		}
		var created struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if created.Category != "None" {
			t.Fatalf("%s: expected default category, got %q", prefix, created.Category)
		}

		rec = serve(t, a, http.MethodPatch, prefix+"/"+created.ID, `{"isFinished":true}`, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"isFinished":true`) {
			t.Fatalf("%s patch: %d %s", prefix, rec.Code, rec.Body.String())
		}
		rec = serve(t, a, http.MethodDelete, prefix+"/"+created.ID, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s delete: expected 200, got %d", prefix, rec.Code)
		}
		rec = serve(t, a, http.MethodGet, prefix+"/"+created.ID, "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s get after delete: expected 404, got %d", prefix, rec.Code)
		}
	}
}

func TestRequestIDAndAccessLog(t *testing.T) {
	a, hook := newTestApp(t)

	rec := serve(t, a, http.MethodGet, "/health", "", http.Header{headerRequestID: []string{"abc-123"}})
	if got := rec.Header().Get(headerRequestID); got != "abc-123" {
		t.Fatalf("request id not echoed, got %q", got)
	}
	last := hook.LastEntry()
	if last == nil || last.Message != "http.request" {
		t.Fatalf("expected access log entry, got %+v", last)
	}
	if last.Data["request_id"] != "abc-123" || last.Data["status"] != http.StatusOK {
		t.Fatalf("unexpected access log fields %v", last.Data)
	}

	rec = serve(t, a, http.MethodGet, "/todo/missing", "", nil)
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatal("request id should be generated when absent")
	}
	if hook.LastEntry().Level != log.WarnLevel {
		t.Fatalf("4xx should log at warn, got %s", hook.LastEntry().Level)
	}
}

func TestCORSPreflight(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(t, a, http.MethodOptions, "/todoSql/1", "", http.Header{
		"Origin":                        []string{"http://localhost:3000"},
		"Access-Control-Request-Method": []string{http.MethodPatch},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected allow origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Fatalf("unexpected level %s", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*log.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", logger.Formatter)
	}

	logger, err = NewLogger("warn", "text")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if _, ok := logger.Formatter.(*log.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", logger.Formatter)
	}

	if _, err := NewLogger("loud", "text"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
