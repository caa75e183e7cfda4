// internal/content/store.go
package content

import (
	"context"
	"fmt"

	"codebundle/internal/errors"
	"codebundle/internal/workspace"
	"codebundle/shared/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Source reads file records out of a root directory
type Source struct {
	fs     afero.Fs
	root   string
	logger *zap.Logger
}

func NewSource(fsys afero.Fs, root string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{fs: fsys, root: root, logger: logger}
}

// Read loads one record verbatim
func (s *Source) Read(rel string) (shared.FileRecord, error) {
	abs, err := workspace.Resolve(s.root, rel)
	if err != nil {
		return shared.FileRecord{}, errors.ValidationError(err.Error(), rel)
	}

	data, err := afero.ReadFile(s.fs, abs)
	if err != nil {
		return shared.FileRecord{}, errors.Filesystem("reading source file", abs, err)
	}

	return shared.FileRecord{Path: rel, Content: string(data)}, nil
}

// Load reads every path in order and stops at the first failure, so callers
// never see a partial set.
func (s *Source) Load(ctx context.Context, paths []string) (shared.Archive, error) {
	records := make(shared.Archive, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading records: %w", err)
		}

		rec, err := s.Read(p)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("read source file",
			zap.String("path", p),
			zap.Int("size", len(rec.Content)))
		records = append(records, rec)
	}
	return records, nil
}
