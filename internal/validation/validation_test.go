package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codebundle/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	var req ArchiveRequest
	r := httptest.NewRequest(http.MethodPost, "/api/archive", strings.NewReader(`{"root":"./src","files":["a.ts"]}`))
	require.NoError(t, DecodeRequest(r, &req))
	assert.Equal(t, "./src", req.Root)
	assert.Equal(t, []string{"a.ts"}, req.Files)

	req = ArchiveRequest{Root: "keep"}
	r = httptest.NewRequest(http.MethodPost, "/api/archive", nil)
	require.NoError(t, DecodeRequest(r, &req))
	assert.Equal(t, "keep", req.Root)

	for _, body := range []string{`{"root":`, `{"unknown":1}`} {
		r = httptest.NewRequest(http.MethodPost, "/api/archive", strings.NewReader(body))
		err := DecodeRequest(r, &req)
		assert.True(t, errors.Is(err, errors.ErrorTypeValidation), body)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Validator
		wantErr bool
	}{
		{name: "archive ok", req: &ArchiveRequest{Root: "src", OutputDir: "out"}},
		{name: "archive strict", req: &ArchiveRequest{Root: "src", OutputDir: "out", Format: "strict"}},
		{name: "archive bad format", req: &ArchiveRequest{Root: "src", OutputDir: "out", Format: "zip"}, wantErr: true},
		{name: "archive missing root", req: &ArchiveRequest{OutputDir: "out"}, wantErr: true},
		{name: "restore ok", req: &RestoreRequest{ArchivePath: "a.txt", TargetDir: "out"}},
		{name: "restore missing target", req: &RestoreRequest{ArchivePath: "a.txt"}, wantErr: true},
		{name: "manifest ok", req: &ManifestRequest{Root: "src", OutputDir: "out"}},
		{name: "manifest blank", req: &ManifestRequest{Root: " ", OutputDir: "out"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_MissingFieldsInOrder(t *testing.T) {
	tests := []struct {
		req  Validator
		want []string
	}{
		{&ArchiveRequest{}, []string{"root", "output_dir"}},
		{&RestoreRequest{}, []string{"archive_path", "target_dir"}},
		{&ManifestRequest{}, []string{"root", "output_dir"}},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			e, ok := errors.As(tt.req.Validate())
			require.True(t, ok)
			assert.Equal(t, tt.want, e.Details)
		}
	}
}
