package archive

import (
	"context"
	"fmt"
	"path/filepath"

	"codebundle/internal/errors"
	"codebundle/internal/workspace"
	"codebundle/shared/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// RestoreResult lists what a restore wrote and what the policy skipped
type RestoreResult struct {
	TargetDir string   `json:"target_dir"`
	Written   []string `json:"written"`
	Skipped   []string `json:"skipped"`
}

type Restorer struct {
	Fs     afero.Fs
	Policy workspace.ExclusionPolicy
	Logger *zap.Logger
}

func NewRestorer(fsys afero.Fs, policy workspace.ExclusionPolicy, logger *zap.Logger) *Restorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Restorer{Fs: fsys, Policy: policy, Logger: logger}
}

// Restore reads the flat archive at archivePath and rebuilds its files under
// targetDir.
func (r *Restorer) Restore(ctx context.Context, archivePath, targetDir string) (*RestoreResult, error) {
	data, err := afero.ReadFile(r.Fs, archivePath)
	if err != nil {
		return nil, errors.Filesystem("reading archive", archivePath, err)
	}

	records, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	return r.RestoreRecords(ctx, records, targetDir)
}

// RestoreRecords writes each record under targetDir, creating parents and
// overwriting existing files. Records whose path the policy excludes are
// skipped; a path that would land outside targetDir stops the restore before
// anything is written.
func (r *Restorer) RestoreRecords(ctx context.Context, records shared.Archive, targetDir string) (*RestoreResult, error) {
	result := &RestoreResult{
		TargetDir: targetDir,
		Written:   make([]string, 0, len(records)),
		Skipped:   make([]string, 0),
	}

	type target struct {
		record shared.FileRecord
		abs    string
	}
	targets := make([]target, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		if r.Policy.ExcludesPath(rec.Path) {
			result.Skipped = append(result.Skipped, rec.Path)
			continue
		}

		abs, err := workspace.Resolve(targetDir, rec.Path)
		if err != nil {
			return nil, errors.MalformedArchive("unsafe record path", rec.Path, err.Error())
		}
		if seen[abs] {
			r.Logger.Warn("archive holds the same path twice; the later record wins",
				zap.String("path", rec.Path))
		}
		seen[abs] = true
		targets = append(targets, target{record: rec, abs: abs})
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("restoring archive: %w", err)
		}

		dir := filepath.Dir(t.abs)
		if err := r.Fs.MkdirAll(dir, 0755); err != nil {
			return result, errors.Filesystem("creating directory", dir, err)
		}
		if err := afero.WriteFile(r.Fs, t.abs, []byte(t.record.Content), 0644); err != nil {
			return result, errors.Filesystem("writing file", t.abs, err)
		}

		result.Written = append(result.Written, t.record.Path)
		r.Logger.Debug("created", zap.String("path", t.abs))
	}

	r.Logger.Info("archive restored",
		zap.String("target", targetDir),
		zap.Int("written", len(result.Written)),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}
