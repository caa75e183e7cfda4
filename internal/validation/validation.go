package validation

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"codebundle/internal/archive"
	"codebundle/internal/errors"
)

type Validator interface {
	Validate() error
}

// ArchiveRequest is the body of POST /api/archive. Empty fields fall back to
// the server configuration.
type ArchiveRequest struct {
	Root      string   `json:"root"`
	OutputDir string   `json:"output_dir"`
	Files     []string `json:"files"`
	Format    string   `json:"format"`
}

func (r *ArchiveRequest) Validate() error {
	if err := requirePaths(field{"root", r.Root}, field{"output_dir", r.OutputDir}); err != nil {
		return err
	}
	_, err := archive.ParseFormat(r.Format)
	return err
}

// RestoreRequest is the body of POST /api/restore
type RestoreRequest struct {
	ArchivePath string `json:"archive_path"`
	TargetDir   string `json:"target_dir"`
}

func (r *RestoreRequest) Validate() error {
	return requirePaths(field{"archive_path", r.ArchivePath}, field{"target_dir", r.TargetDir})
}

// ManifestRequest is the body of POST /api/manifest
type ManifestRequest struct {
	Root      string `json:"root"`
	OutputDir string `json:"output_dir"`
}

func (r *ManifestRequest) Validate() error {
	return requirePaths(field{"root", r.Root}, field{"output_dir", r.OutputDir})
}

type field struct {
	name  string
	value string
}

// requirePaths reports blank fields in the order they are given
func requirePaths(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.ValidationError("missing required fields", missing)
	}
	return nil
}

// DecodeRequest reads a JSON body into v. An empty body leaves v untouched.
func DecodeRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.ValidationError("invalid request body", err.Error())
	}
	return nil
}
