package toolrunner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"OpenClaw/backend/go/internal/config"
	httpclient "OpenClaw/backend/go/pkg/http"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hc, err := httpclient.NewClient(config.CircuitBreakerConfig{Enabled: false}, 0)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return NewClient(srv.URL, "test-secret", hc)
}

func TestClient_CatalogSendsSecret(t *testing.T) {
	var gotSecret string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("X-Runner-Secret")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"alias": "fs", "tools": []map[string]any{{"name": "read_file"}}},
		})
	}))

	catalogs, err := client.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if gotSecret != "test-secret" {
		t.Errorf("Expected the shared secret header, got %q", gotSecret)
	}
	if len(catalogs) != 1 || catalogs[0].Alias != "fs" {
		t.Errorf("Expected the fs catalog, got %+v", catalogs)
	}
}

func TestClient_CallUnwrapsOutput(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/servers/fs/call" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		var req struct {
			Tool      string         `json:"tool"`
			Arguments map[string]any `json:"arguments"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Tool != "read_file" {
			t.Errorf("Expected tool=read_file, got %q", req.Tool)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"output": "file contents"})
	}))

	out, err := client.Call(context.Background(), "fs", "read_file", map[string]any{"path": "/tmp/x"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if out != "file contents" {
		t.Errorf("Expected the unwrapped output, got %q", out)
	}
}

func TestClient_SurfacesServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "包 \"x\" 不在允许列表内"})
	}))

	if _, err := client.InstallServer(context.Background(), "x", "x", nil); err == nil {
		t.Error("Expected the server error to surface")
	}
}
