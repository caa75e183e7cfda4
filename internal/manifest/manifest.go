// Package manifest writes the flat list of files a tree walk keeps.
package manifest

import (
	"path/filepath"

	"codebundle/internal/errors"
	"codebundle/internal/filelock"
	"codebundle/internal/workspace"
	"codebundle/shared/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const DefaultFileName = "file-list.txt"

type Result struct {
	Manifest shared.Manifest `json:"manifest"`
	Path     string          `json:"path"`
}

type Lister struct {
	Fs       afero.Fs
	FileName string
	Logger   *zap.Logger
}

func NewLister(fsys afero.Fs, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lister{Fs: fsys, FileName: DefaultFileName, Logger: logger}
}

// List walks root without reading any content
func (l *Lister) List(root string, policy workspace.ExclusionPolicy) (shared.Manifest, error) {
	paths, err := workspace.Walk(l.Fs, root, policy)
	if err != nil {
		return shared.Manifest{}, err
	}
	return shared.Manifest{Paths: paths}, nil
}

// Produce lists root and writes the manifest into outputDir
func (l *Lister) Produce(root, outputDir string, policy workspace.ExclusionPolicy) (*Result, error) {
	m, err := l.List(root, policy)
	if err != nil {
		return nil, err
	}
	return l.Write(m, outputDir)
}

// Write stores m as the manifest file in outputDir
func (l *Lister) Write(m shared.Manifest, outputDir string) (*Result, error) {
	if err := l.Fs.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Filesystem("creating output directory", outputDir, err)
	}

	out := filepath.Join(outputDir, l.FileName)
	if err := filelock.AtomicWrite(l.Fs, out, []byte(m.String())); err != nil {
		return nil, errors.Filesystem("writing manifest", out, err)
	}

	l.Logger.Info("manifest written",
		zap.String("path", out),
		zap.Int("files", m.Len()))

	return &Result{Manifest: m, Path: out}, nil
}
