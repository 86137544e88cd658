package wordpress

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"OpenClaw/backend/go/internal/config"
	httpclient "OpenClaw/backend/go/pkg/http"
)

func newTestWPClient(t *testing.T, cfg config.WordPressConfig, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.URL = srv.URL

	hc, err := httpclient.NewClient(config.CircuitBreakerConfig{Enabled: false}, 0)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return NewClient(&cfg, hc)
}

func TestRest_FormatsStatusAndBody(t *testing.T) {
	client := newTestWPClient(t, config.WordPressConfig{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))

	out := client.Rest(context.Background(), http.MethodGet, "/wp/v2/posts", nil, nil)
	if !strings.HasPrefix(out, "HTTP 200\n") {
		t.Errorf("Expected the status line prefix, got %q", out)
	}
	if !strings.Contains(out, `[{"id":1}]`) {
		t.Errorf("Expected the body, got %q", out)
	}
}

func TestRest_AppPasswordWinsOverAdminPassword(t *testing.T) {
	var gotAuth string
	cfg := config.WordPressConfig{
		AdminUser:     "admin",
		AppPassword:   "app pass word",
		AdminPassword: "admin-password",
	}
	client := newTestWPClient(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))

	client.Rest(context.Background(), http.MethodGet, "/wp/v2/users/me", nil, nil)

	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Fatalf("Expected Basic auth, got %q", gotAuth)
	}
	// The application password, not the admin password, must be in the header.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "admin-password")
	if gotAuth == req.Header.Get("Authorization") {
		t.Error("Expected the application password to take precedence")
	}
}

func TestRest_MissingURL(t *testing.T) {
	hc, _ := httpclient.NewClient(config.CircuitBreakerConfig{Enabled: false}, 0)
	client := NewClient(&config.WordPressConfig{}, hc)

	out := client.Rest(context.Background(), http.MethodGet, "/wp/v2/posts", nil, nil)
	if !strings.HasPrefix(out, "ERROR:") {
		t.Errorf("Expected an error without a configured URL, got %q", out)
	}
}

func TestBridgeCLI_SendsSecretAndUnwrapsOutput(t *testing.T) {
	var gotSecret, gotCommand string
	cfg := config.WordPressConfig{BridgeSecret: "bridge-secret"}
	client := newTestWPClient(t, cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/openclaw/v1/cli" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		gotSecret = r.Header.Get("X-OpenClaw-Secret")
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotCommand = req["command"]
		_ = json.NewEncoder(w).Encode(map[string]string{"output": "Plugin list here"})
	}))

	out := client.BridgeCLI(context.Background(), "plugin list")

	if gotSecret != "bridge-secret" {
		t.Errorf("Expected the bridge secret header, got %q", gotSecret)
	}
	if gotCommand != "plugin list" {
		t.Errorf("Expected the command in the payload, got %q", gotCommand)
	}
	if out != "Plugin list here" {
		t.Errorf("Expected the unwrapped output, got %q", out)
	}
}

func TestBridgeCLI_MissingSecret(t *testing.T) {
	hc, _ := httpclient.NewClient(config.CircuitBreakerConfig{Enabled: false}, 0)
	client := NewClient(&config.WordPressConfig{URL: "https://example.com"}, hc)

	out := client.BridgeCLI(context.Background(), "plugin list")
	if !strings.HasPrefix(out, "ERROR:") {
		t.Errorf("Expected an error without a bridge secret, got %q", out)
	}
}
