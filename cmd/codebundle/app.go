package main

import (
	"os"
	"sync"

	"codebundle/internal/bundler"
	"codebundle/internal/config"
	"codebundle/internal/history"
	"codebundle/internal/logging"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app is what every subcommand runs against
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	fs      afero.Fs
	history *history.Store
	out     *console

	once sync.Once
}

func newApp(cfgPath, level string, stdout *os.File) (*app, error) {
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if level == "" {
		level = cfg.LogLevel
	}

	logger, err := logging.NewConsole(level)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		fs:     afero.NewOsFs(),
		out:    newConsole(stdout, stdout),
	}

	// history is best effort; a running server holds the database lock
	hist, err := history.Open(history.Options{Path: cfg.Database.Path})
	if err != nil {
		logger.Warn("run history unavailable", zap.String("path", cfg.Database.Path), zap.Error(err))
	} else {
		a.history = hist
	}
	return a, nil
}

func (a *app) bundler(opts bundler.Options) *bundler.Bundler {
	if opts.Format == "" {
		opts.Format = a.cfg.ArchiveFormat()
	}
	opts.ArchiveName = a.cfg.Paths.Archive
	opts.HTMLName = a.cfg.Paths.HTML
	opts.ManifestName = a.cfg.Paths.Manifest
	opts.Lock = a.cfg.Lock
	return bundler.New(a.fs, a.logger.Logger, a.history, opts)
}

func (a *app) close() {
	a.once.Do(func() {
		if a.history != nil {
			if a.cfg.Database.Keep > 0 {
				if n, err := a.history.Prune(a.cfg.Database.Keep); err != nil {
					a.logger.Warn("pruning run history", zap.Error(err))
				} else if n > 0 {
					a.logger.Debug("pruned run history", zap.Int("removed", n))
				}
			}
			a.history.Close()
		}
		a.logger.Sync()
	})
}
