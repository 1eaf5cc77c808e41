package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// mockServer is a stand-in for the pixelsync HTTP API.
type mockServer struct {
	*httptest.Server
	mux *http.ServeMux

	// lastAuth is the Authorization header of the last request.
	lastAuth string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{mux: http.NewServeMux()}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.lastAuth = r.Header.Get("Authorization")
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockServer) handle(pattern string, h http.HandlerFunc) {
	m.mux.HandleFunc(pattern, h)
}

// reply registers pattern to answer with data in a success envelope.
func (m *mockServer) reply(pattern string, data any) {
	m.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "OK", "Success", data)
	})
}

func writeEnvelope(w http.ResponseWriter, status int, code, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "req-test",
		"data":       data,
	})
}

// runCLI runs the app with a throwaway config file and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLIWithConfig(t, filepath.Join(t.TempDir(), "cli.yaml"), args...)
}

func runCLIWithConfig(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = io.Discard

	full := append([]string{"pixelsync-cli", "--config", configPath}, args...)
	err := app.Run(full)
	return out.String(), err
}
