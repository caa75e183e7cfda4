package workspace

import (
	"path"
	"strings"

	"codebundle/internal/filelock"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Workspace binds a root directory to the filesystem and policy used to walk it
type Workspace struct {
	Root   string
	Fs     afero.Fs
	Policy ExclusionPolicy
	Logger *zap.Logger
}

func New(fsys afero.Fs, root string, policy ExclusionPolicy, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{
		Root:   root,
		Fs:     fsys,
		Policy: policy,
		Logger: logger,
	}
}

// Files walks the workspace
func (w *Workspace) Files() ([]string, error) {
	files, err := Walk(w.Fs, w.Root, w.Policy)
	if err != nil {
		return nil, err
	}
	w.Logger.Debug("walked workspace",
		zap.String("root", w.Root),
		zap.Int("files", len(files)))
	return files, nil
}

// Select normalizes an explicit file list and drops what the policy excludes.
// Duplicates keep their first position.
func (w *Workspace) Select(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	selected := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p == "" {
			continue
		}
		p = path.Clean(strings.TrimPrefix(p, "./"))
		if seen[p] {
			continue
		}
		seen[p] = true

		if w.Policy.ExcludesPath(p) {
			w.Logger.Debug("skipping excluded path", zap.String("path", p))
			continue
		}
		selected = append(selected, p)
	}
	return selected
}

// ShouldIgnore reports whether an event path under the root is excluded.
// Directories are checked by name, files by base name and parents.
func (w *Workspace) ShouldIgnore(rel string, isDir bool) bool {
	rel = strings.ReplaceAll(rel, "\\", "/")
	if rel == "" || rel == "." {
		return false
	}
	if isDir {
		for _, part := range strings.Split(rel, "/") {
			if w.Policy.ExcludesDir(part) {
				return true
			}
		}
		return false
	}
	if filelock.IsArtifact(path.Base(rel)) {
		return true
	}
	return w.Policy.ExcludesPath(rel)
}
