// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"codebundle/internal/archive"
	"codebundle/internal/bundler"
	"codebundle/internal/config"
	"codebundle/internal/errors"
	"codebundle/internal/history"
	"codebundle/internal/logging"
	"codebundle/internal/validation"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// BundleHandler serves the three bundler entry points and the run history
type BundleHandler struct {
	cfg     *config.Config
	fs      afero.Fs
	history *history.Store
	logger  *logging.Logger
}

func NewBundleHandler(cfg *config.Config, fsys afero.Fs, hist *history.Store, logger *logging.Logger) *BundleHandler {
	if logger == nil {
		logger = &logging.Logger{Logger: zap.NewNop()}
	}
	return &BundleHandler{cfg: cfg, fs: fsys, history: hist, logger: logger}
}

// Register mounts every route on mux
func (h *BundleHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /api/archive", h.Archive)
	mux.HandleFunc("POST /api/restore", h.Restore)
	mux.HandleFunc("POST /api/manifest", h.Manifest)
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)
}

func (h *BundleHandler) bundler(r *http.Request, opts bundler.Options) *bundler.Bundler {
	opts.ArchiveName = h.cfg.Paths.Archive
	opts.HTMLName = h.cfg.Paths.HTML
	opts.ManifestName = h.cfg.Paths.Manifest
	opts.Lock = h.cfg.Lock
	return bundler.New(h.fs, h.logger.WithRequestID(r.Context()), h.history, opts)
}

func (h *BundleHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *BundleHandler) Archive(w http.ResponseWriter, r *http.Request) {
	req := validation.ArchiveRequest{
		Root:      h.cfg.Paths.Source,
		OutputDir: h.cfg.Paths.Output,
		Format:    h.cfg.Format,
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	format, _ := archive.ParseFormat(req.Format)
	b := h.bundler(r, bundler.Options{Format: format, Files: req.Files})

	res, err := b.ProduceArchive(r.Context(), req.Root, req.OutputDir, h.cfg.Policy())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BundleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	req := validation.RestoreRequest{
		ArchivePath: h.cfg.ArchivePath(),
		TargetDir:   h.cfg.Paths.Restore,
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.bundler(r, bundler.Options{}).RestoreArchive(r.Context(), req.ArchivePath, req.TargetDir, h.cfg.Policy())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *BundleHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	req := validation.ManifestRequest{
		Root:      h.cfg.Paths.Source,
		OutputDir: h.cfg.Paths.Output,
	}
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.bundler(r, bundler.Options{}).ProduceManifest(r.Context(), req.Root, req.OutputDir, h.cfg.Policy())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRuns returns recorded runs newest first; ?limit=N caps the count
func (h *BundleHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, r, errors.NotFound("run history is disabled"))
		return
	}

	runs, err := h.history.List()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			h.writeError(w, r, errors.ValidationError("limit must be a non-negative integer", s))
			return
		}
		if limit < len(runs) {
			runs = runs[:limit]
		}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *BundleHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, r, errors.NotFound("run history is disabled"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, r, errors.ValidationError("missing id", nil))
		return
	}

	run, err := h.history.Get(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func decode(r *http.Request, v validation.Validator) error {
	if err := validation.DecodeRequest(r, v); err != nil {
		return err
	}
	return v.Validate()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *BundleHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusCode(err)
	body, ok := errors.As(err)
	if !ok {
		body = errors.Internal(err.Error(), err)
	}

	log := h.logger.WithRequestID(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{"error": body})
}
