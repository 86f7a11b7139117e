package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/synapsedb/mnemosyne/internal/database"
	"github.com/synapsedb/mnemosyne/internal/embedding"
	"github.com/synapsedb/mnemosyne/internal/engine"
	"github.com/synapsedb/mnemosyne/internal/relationships"
	"github.com/synapsedb/mnemosyne/pkg/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	es, err := database.NewEngineStore(db)
	if err != nil {
		t.Fatalf("failed to build engine store: %v", err)
	}

	eng, err := engine.New(es, embedding.NewLocalProvider(32))
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.RestAPI.AutoPort = true
	cfg.RateLimit.Enabled = false

	return NewServer(eng, relationships.NewService(db), cfg)
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateAndSearchMemory(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/memories", CreateMemoryRequest{
		Content:    "the build pipeline runs go vet before tests",
		Importance: 0.6,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success response, got %+v", resp)
	}

	w2 := doRequest(s, http.MethodGet, "/api/v1/memories/search?q=build+pipeline", nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestCreateMemoryRequiresContent(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodPost, "/api/v1/memories", CreateMemoryRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty content, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/memories/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing query, got %d: %s", w.Code, w.Body.String())
	}
}

func TestConflictsEndpointEmpty(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/conflicts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
