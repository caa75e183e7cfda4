// internal/bundler/bundler.go
package bundler

import (
	"context"
	"fmt"

	"codebundle/internal/archive"
	"codebundle/internal/content"
	"codebundle/internal/errors"
	"codebundle/internal/filelock"
	"codebundle/internal/history"
	"codebundle/internal/logging"
	"codebundle/internal/manifest"
	"codebundle/internal/workspace"
	"codebundle/shared/types"
	"codebundle/shared/utils"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Bundler exposes the archive, restore and manifest entry points. History is
// optional; when set every call is recorded as a run.
type Bundler struct {
	Fs      afero.Fs
	Logger  *zap.Logger
	History *history.Store
	Opts    Options
}

// Request carries the paths for Run. Which fields matter depends on the action.
type Request struct {
	Root        string                    `json:"root"`
	OutputDir   string                    `json:"output_dir"`
	ArchivePath string                    `json:"archive_path"`
	TargetDir   string                    `json:"target_dir"`
	Policy      workspace.ExclusionPolicy `json:"-"`
}

// Result holds whichever entry point result Run produced
type Result struct {
	Action   Action                 `json:"action"`
	Archive  *archive.WriteResult   `json:"archive,omitempty"`
	Restore  *archive.RestoreResult `json:"restore,omitempty"`
	Manifest *manifest.Result       `json:"manifest,omitempty"`
}

func New(fsys afero.Fs, logger *zap.Logger, hist *history.Store, opts Options) *Bundler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bundler{
		Fs:      fsys,
		Logger:  logger,
		History: hist,
		Opts:    opts.withDefaults(),
	}
}

// Run dispatches to the entry point named by action
func (b *Bundler) Run(ctx context.Context, action Action, req Request) (*Result, error) {
	res := &Result{Action: action}
	var err error

	switch action {
	case ActionArchive:
		res.Archive, err = b.ProduceArchive(ctx, req.Root, req.OutputDir, req.Policy)
	case ActionRestore:
		res.Restore, err = b.RestoreArchive(ctx, req.ArchivePath, req.TargetDir, req.Policy)
	case ActionManifest:
		res.Manifest, err = b.ProduceManifest(ctx, req.Root, req.OutputDir, req.Policy)
	default:
		return nil, errors.InvalidSelection(string(action))
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ProduceArchive walks root (or reads Opts.Files) and writes the flat archive
// and its HTML rendering into outputDir. An empty tree yields empty-bodied
// artifacts and zero records.
func (b *Bundler) ProduceArchive(ctx context.Context, root, outputDir string, policy workspace.ExclusionPolicy) (*archive.WriteResult, error) {
	run, ctx, logger := b.begin(ctx, ActionArchive, root, outputDir)

	res, records, err := b.produceArchive(ctx, logger, root, outputDir, policy)
	if err == nil {
		run.Records, run.Digest = history.Summarize(records, archive.Encode(records, b.Opts.Format))
	}
	b.finish(logger, run, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Bundler) produceArchive(ctx context.Context, logger *zap.Logger, root, outputDir string, policy workspace.ExclusionPolicy) (*archive.WriteResult, shared.Archive, error) {
	ws := workspace.New(b.Fs, root, policy, logger)

	var paths []string
	var err error
	if len(b.Opts.Files) > 0 {
		paths = ws.Select(b.Opts.Files)
	} else {
		paths, err = ws.Files()
		if err != nil {
			return nil, nil, err
		}
	}

	records, err := content.NewSource(b.Fs, root, logger).Load(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	// the output directory is only created once the tree has been read
	unlock, err := b.lock(outputDir)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	w := archive.NewWriter(b.Fs, b.Opts.Format, logger)
	w.ArchiveName = b.Opts.ArchiveName
	w.HTMLName = b.Opts.HTMLName

	res, err := w.Write(ctx, records, outputDir)
	if err != nil {
		return nil, nil, err
	}
	return res, records, nil
}

// RestoreArchive parses the archive at archivePath and rebuilds its files
// under targetDir. Nothing is written unless the whole archive parses.
func (b *Bundler) RestoreArchive(ctx context.Context, archivePath, targetDir string, policy workspace.ExclusionPolicy) (*archive.RestoreResult, error) {
	run, ctx, logger := b.begin(ctx, ActionRestore, archivePath, targetDir)

	res, err := b.restoreArchive(ctx, logger, run, archivePath, targetDir, policy)
	b.finish(logger, run, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Bundler) restoreArchive(ctx context.Context, logger *zap.Logger, run *history.Run, archivePath, targetDir string, policy workspace.ExclusionPolicy) (*archive.RestoreResult, error) {
	data, err := afero.ReadFile(b.Fs, archivePath)
	if err != nil {
		return nil, errors.Filesystem("reading archive", archivePath, err)
	}

	records, err := archive.Parse(string(data))
	if err != nil {
		return nil, err
	}

	unlock, err := b.lock(targetDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := archive.NewRestorer(b.Fs, policy, logger).RestoreRecords(ctx, records, targetDir)
	if err != nil {
		return nil, err
	}

	written := make(map[string]bool, len(res.Written))
	for _, p := range res.Written {
		written[p] = true
	}
	kept := make(shared.Archive, 0, len(res.Written))
	for _, r := range records {
		if written[r.Path] {
			kept = append(kept, r)
		}
	}
	run.Records, _ = history.Summarize(kept, "")
	run.Digest = utils.HashContent(data)
	run.Skipped = res.Skipped
	return res, nil
}

// ProduceManifest lists root and writes the manifest into outputDir
func (b *Bundler) ProduceManifest(ctx context.Context, root, outputDir string, policy workspace.ExclusionPolicy) (*manifest.Result, error) {
	run, ctx, logger := b.begin(ctx, ActionManifest, root, outputDir)

	res, err := b.produceManifest(ctx, logger, root, outputDir, policy)
	if err == nil {
		for _, p := range res.Manifest.Paths {
			run.Records = append(run.Records, history.RecordSummary{Path: p})
		}
		run.Digest = utils.HashContent([]byte(res.Manifest.String()))
	}
	b.finish(logger, run, err)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Bundler) produceManifest(ctx context.Context, logger *zap.Logger, root, outputDir string, policy workspace.ExclusionPolicy) (*manifest.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	l := manifest.NewLister(b.Fs, logger)
	l.FileName = b.Opts.ManifestName

	m, err := l.List(root, policy)
	if err != nil {
		return nil, err
	}

	unlock, err := b.lock(outputDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return l.Write(m, outputDir)
}

func (b *Bundler) begin(ctx context.Context, action Action, source, output string) (*history.Run, context.Context, *zap.Logger) {
	run := history.NewRun(string(action), source, output)
	ctx = logging.ContextWithRunID(ctx, run.ID)
	logger := logging.WithRunID(ctx, b.Logger).With(zap.String("action", string(action)))
	logger.Debug("run started",
		zap.String("source", source),
		zap.String("output", output))
	return run, ctx, logger
}

func (b *Bundler) finish(logger *zap.Logger, run *history.Run, err error) {
	run.Finish(err)
	if err != nil {
		logger.Error("run failed", zap.Error(err), zap.Duration("duration", run.Duration))
	} else {
		logger.Info("run finished",
			zap.Int("records", len(run.Records)),
			zap.Duration("duration", run.Duration))
	}

	if b.History == nil {
		return
	}
	if herr := b.History.Record(run); herr != nil {
		logger.Warn("failed to record run", zap.Error(herr))
	}
}

func (b *Bundler) lock(dir string) (func(), error) {
	if !b.Opts.Lock {
		return func() {}, nil
	}
	l, err := filelock.Acquire(dir)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := l.Unlock(); err != nil {
			b.Logger.Warn("failed to release lock", zap.String("path", l.Path()), zap.Error(err))
		}
	}, nil
}
