// Package verify compares a flat archive against a directory tree.
package verify

import (
	"context"
	"sort"

	"codebundle/internal/archive"
	"codebundle/internal/content"
	"codebundle/internal/diff"
	"codebundle/internal/errors"
	"codebundle/internal/workspace"
	"codebundle/shared/types"
	"codebundle/shared/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Change is one file whose archived content differs from the tree
type Change struct {
	Path  string     `json:"path"`
	Stats diff.Stats `json:"stats"`
	Diff  string     `json:"diff,omitempty"`
}

// Report groups the differences found. Missing paths are archived but absent
// from the tree; Extra paths are in the tree but not archived.
type Report struct {
	Missing   []string `json:"missing"`
	Extra     []string `json:"extra"`
	Changed   []Change `json:"changed"`
	Unchanged int      `json:"unchanged"`
}

// Clean reports whether archive and tree agree
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Changed) == 0
}

type Verifier struct {
	Fs     afero.Fs
	Policy workspace.ExclusionPolicy
	Engine *diff.Engine
	Logger *zap.Logger

	// IncludeDiff attaches a rendered diff to each change
	IncludeDiff bool
}

func NewVerifier(fsys afero.Fs, policy workspace.ExclusionPolicy, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		Fs:     fsys,
		Policy: policy,
		Engine: diff.NewEngine(3),
		Logger: logger,
	}
}

// Verify parses the archive at archivePath and compares it with dir
func (v *Verifier) Verify(ctx context.Context, archivePath, dir string) (*Report, error) {
	data, err := afero.ReadFile(v.Fs, archivePath)
	if err != nil {
		return nil, errors.Filesystem("reading archive", archivePath, err)
	}

	records, err := archive.Parse(string(data))
	if err != nil {
		return nil, err
	}
	return v.Compare(ctx, records, dir)
}

// Compare checks records against the files the policy keeps under dir.
// Excluded records are ignored on both sides.
func (v *Verifier) Compare(ctx context.Context, records shared.Archive, dir string) (*Report, error) {
	paths, err := workspace.Walk(v.Fs, dir, v.Policy)
	if err != nil {
		return nil, err
	}
	tree, err := content.NewSource(v.Fs, dir, v.Logger).Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	onDisk := utils.RecordsByPath(tree)

	report := &Report{
		Missing: []string{},
		Extra:   []string{},
		Changed: []Change{},
	}

	archived := make(map[string]bool, len(records))
	for _, rec := range utils.RecordsByPath(records) {
		if v.Policy.ExcludesPath(rec.Path) {
			continue
		}
		archived[rec.Path] = true

		got, ok := onDisk[rec.Path]
		if !ok {
			report.Missing = append(report.Missing, rec.Path)
			continue
		}
		if got.Content == rec.Content {
			report.Unchanged++
			continue
		}

		res := v.Engine.DiffStrings(rec.Content, got.Content)
		change := Change{Path: rec.Path, Stats: res.Stats}
		if v.IncludeDiff {
			change.Diff = res.Format()
		}
		report.Changed = append(report.Changed, change)
	}

	for _, p := range paths {
		if !archived[p] {
			report.Extra = append(report.Extra, p)
		}
	}

	sort.Strings(report.Missing)
	sort.Slice(report.Changed, func(i, j int) bool {
		return report.Changed[i].Path < report.Changed[j].Path
	})

	v.Logger.Info("verified archive",
		zap.String("dir", dir),
		zap.Int("missing", len(report.Missing)),
		zap.Int("extra", len(report.Extra)),
		zap.Int("changed", len(report.Changed)),
		zap.Int("unchanged", report.Unchanged))

	return report, nil
}
