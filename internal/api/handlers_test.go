package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codebundle/internal/archive"
	"codebundle/internal/config"
	"codebundle/internal/history"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	fs      afero.Fs
	history *history.Store
	mux     *http.ServeMux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.Source = "/src"
	cfg.Paths.Output = "/out"
	cfg.Paths.Restore = "/restored"
	cfg.Lock = false

	fsys := afero.NewMemMapFs()
	hist, err := history.Open(history.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	mux := http.NewServeMux()
	NewBundleHandler(cfg, fsys, hist, nil).Register(mux)
	return &testServer{fs: fsys, history: hist, mux: mux}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, s.fs.MkdirAll("/src/b", 0755))
	require.NoError(t, afero.WriteFile(s.fs, "/src/a.ts", []byte("x"), 0644))
	require.NoError(t, afero.WriteFile(s.fs, "/src/b/c.js", []byte("y"), 0644))
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestArchiveRestoreManifest(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodPost, "/api/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var written archive.WriteResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&written))
	assert.Equal(t, 2, written.Records)
	assert.Equal(t, []string{"a.ts", "b/c.js"}, written.Paths)

	rec = s.do(t, http.MethodPost, "/api/restore", map[string]string{"target_dir": "/elsewhere"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var restored archive.RestoreResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&restored))
	assert.Equal(t, "/elsewhere", restored.TargetDir)
	data, err := afero.ReadFile(s.fs, "/elsewhere/b/c.js")
	require.NoError(t, err)
	assert.Equal(t, "y", string(data))

	rec = s.do(t, http.MethodPost, "/api/manifest", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data, err = afero.ReadFile(s.fs, "/out/file-list.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.ts\nb/c.js", string(data))

	rec = s.do(t, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []history.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 3)

	rec = s.do(t, http.MethodGet, "/api/runs?limit=1", nil)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)

	rec = s.do(t, http.MethodGet, "/api/runs/"+runs[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var run history.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, runs[0].ID, run.ID)
}

func TestArchive_CustomFilesAndStrictFormat(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec := s.do(t, http.MethodPost, "/api/archive", map[string]any{
		"files":  []string{"b/c.js"},
		"format": "strict",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	data, err := afero.ReadFile(s.fs, "/out/all-code-merged.txt")
	require.NoError(t, err)
	assert.Equal(t, "--- START: b/c.js (1 bytes) ---\ny\n--- END: b/c.js ---\n\n", string(data))
}

func TestErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, afero.WriteFile(s.fs, "/empty.txt", nil, 0644))
	require.NoError(t, afero.WriteFile(s.fs, "/broken.txt", []byte("--- START: a ---\nx\n"), 0644))

	tests := []struct {
		name       string
		method     string
		target     string
		body       any
		wantStatus int
		wantType   string
	}{
		{"missing root", http.MethodPost, "/api/archive", nil, http.StatusNotFound, "FILESYSTEM"},
		{"bad format", http.MethodPost, "/api/archive", map[string]string{"format": "zip"}, http.StatusBadRequest, "VALIDATION"},
		{"unknown field", http.MethodPost, "/api/manifest", map[string]string{"rot": "/src"}, http.StatusBadRequest, "VALIDATION"},
		{"empty archive", http.MethodPost, "/api/restore", map[string]string{"archive_path": "/empty.txt"}, http.StatusUnprocessableEntity, "EMPTY_RESULT"},
		{"malformed archive", http.MethodPost, "/api/restore", map[string]string{"archive_path": "/broken.txt"}, http.StatusUnprocessableEntity, "MALFORMED_ARCHIVE"},
		{"unknown run", http.MethodGet, "/api/runs/nope", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad limit", http.MethodGet, "/api/runs?limit=-1", nil, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var body errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/archive", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
