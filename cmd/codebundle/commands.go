package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"codebundle/internal/archive"
	"codebundle/internal/bundler"
	"codebundle/internal/errors"
	"codebundle/internal/verify"
	"codebundle/internal/watch"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newArchiveCmd() *cobra.Command {
	var source, output, format string
	var files []string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Merge the source tree into one flat archive and an HTML page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.archive(cmd.Context(), source, output, format, files)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source directory (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "output directory (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "archive format: legacy or strict")
	cmd.Flags().StringSliceVar(&files, "files", nil, "archive only these source-relative paths")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var archivePath, target string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Recreate files from a flat archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.restore(cmd.Context(), archivePath, target)
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "archive file (default from config)")
	cmd.Flags().StringVar(&target, "target", "", "target directory (default from config)")
	return cmd
}

func newListCmd() *cobra.Command {
	var source, output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Write the list of files a walk keeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.list(cmd.Context(), source, output)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source directory (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "output directory (default from config)")
	return cmd
}

func newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Pick an action interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.menu(cmd.Context(), cmd.InOrStdin())
		},
	}
}

func newWatchCmd() *cobra.Command {
	var source, output, debounce string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-archive the source tree whenever it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.watch(cmd.Context(), source, output, debounce)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source directory (default from config)")
	cmd.Flags().StringVar(&output, "output", "", "output directory (default from config)")
	cmd.Flags().StringVar(&debounce, "debounce", "", "quiet period before rebuilding, e.g. 500ms")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var archivePath, dir string
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare an archive against a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.verify(cmd.Context(), archivePath, dir, showDiff)
		},
	}
	cmd.Flags().StringVar(&archivePath, "archive", "", "archive file (default from config)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory to compare (default: source from config)")
	cmd.Flags().BoolVar(&showDiff, "diff", false, "print line diffs for changed files")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.historyList(limit)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show (0 for all)")

	var asJSON bool
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.historyShow(args[0], asJSON)
		},
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")

	var keep int
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return current.historyPrune(keep)
		},
	}
	pruneCmd.Flags().IntVar(&keep, "keep", 50, "runs to keep")

	cmd.AddCommand(listCmd, showCmd, pruneCmd)
	return cmd
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func (a *app) archive(ctx context.Context, source, output, format string, files []string) error {
	opts := bundler.Options{Files: files}
	if format != "" {
		f, err := archive.ParseFormat(format)
		if err != nil {
			return err
		}
		opts.Format = f
	}

	source = orDefault(source, a.cfg.Paths.Source)
	output = orDefault(output, a.cfg.Paths.Output)

	res, err := a.bundler(opts).ProduceArchive(ctx, source, output, a.cfg.Policy())
	if err != nil {
		return err
	}

	for _, p := range res.Paths {
		a.out.println("Extracted:", p)
	}
	for _, p := range res.Unsafe {
		a.out.warn("Warning: %s contains its own end marker and will be cut short on restore; use --format strict", p)
	}
	a.out.success("Extracted %d files to:\n  %s\n  %s", res.Records, res.ArchivePath, res.HTMLPath)
	return nil
}

func (a *app) restore(ctx context.Context, archivePath, target string) error {
	archivePath = orDefault(archivePath, a.cfg.ArchivePath())
	target = orDefault(target, a.cfg.Paths.Restore)

	res, err := a.bundler(bundler.Options{}).RestoreArchive(ctx, archivePath, target, a.cfg.Policy())
	if err != nil {
		return err
	}

	for _, p := range res.Written {
		a.out.println("Created:", filepath.Join(target, filepath.FromSlash(p)))
	}
	for _, p := range res.Skipped {
		a.out.warn("Skipped excluded: %s", p)
	}
	a.out.success("All files recreated in %s", target)
	return nil
}

func (a *app) list(ctx context.Context, source, output string) error {
	source = orDefault(source, a.cfg.Paths.Source)
	output = orDefault(output, a.cfg.Paths.Output)

	res, err := a.bundler(bundler.Options{}).ProduceManifest(ctx, source, output, a.cfg.Policy())
	if err != nil {
		return err
	}

	a.out.success("Saved %d file paths to %s", res.Manifest.Len(), res.Path)
	for _, p := range res.Manifest.Paths {
		a.out.println(p)
	}
	return nil
}

// menu offers the three actions once and runs the chosen one
func (a *app) menu(ctx context.Context, in io.Reader) error {
	a.out.header("\nSelect an action:")
	a.out.println("1 - Extract code from files into a single file")
	a.out.println("2 - Recreate files from the merged file")
	a.out.println("3 - Generate a file list")
	a.out.println("4 - Exit")
	fmt.Fprint(a.out.w, "\nEnter the number of the action you want to perform: ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading selection: %w", err)
	}
	answer = strings.TrimSpace(answer)

	if answer == "4" || strings.EqualFold(answer, "exit") {
		a.out.println("Exiting...")
		return nil
	}

	action, err := bundler.ParseAction(answer)
	if err != nil {
		return err
	}

	switch action {
	case bundler.ActionArchive:
		return a.archive(ctx, "", "", "", nil)
	case bundler.ActionRestore:
		return a.restore(ctx, "", "")
	default:
		return a.list(ctx, "", "")
	}
}

func (a *app) watch(ctx context.Context, source, output, debounce string) error {
	source = orDefault(source, a.cfg.Paths.Source)
	output = orDefault(output, a.cfg.Paths.Output)

	d, err := time.ParseDuration(orDefault(debounce, a.cfg.Watch.Debounce))
	if err != nil {
		return errors.ValidationError("invalid debounce", debounce)
	}

	rebuild := func(ctx context.Context) error {
		return a.archive(ctx, source, output, "", nil)
	}
	if err := rebuild(ctx); err != nil {
		return err
	}

	w, err := watch.New(watch.Options{
		Root:     source,
		Policy:   a.cfg.Policy(),
		Debounce: d,
		Ignore:   []string{output},
	}, rebuild, a.logger.Logger)
	if err != nil {
		return err
	}

	a.out.header("Watching %s (Ctrl+C to stop)", source)
	return w.Run(ctx)
}

func (a *app) verify(ctx context.Context, archivePath, dir string, showDiff bool) error {
	archivePath = orDefault(archivePath, a.cfg.ArchivePath())
	dir = orDefault(dir, a.cfg.Paths.Source)

	v := verify.NewVerifier(a.fs, a.cfg.Policy(), a.logger.Logger)
	v.IncludeDiff = showDiff

	report, err := v.Verify(ctx, archivePath, dir)
	if err != nil {
		return err
	}

	if report.Clean() {
		a.out.success("%s matches %s (%d files)", archivePath, dir, report.Unchanged)
		return nil
	}

	for _, p := range report.Missing {
		a.out.warn("missing:  %s", p)
	}
	for _, p := range report.Extra {
		a.out.warn("extra:    %s", p)
	}
	for _, c := range report.Changed {
		a.out.warn("changed:  %s (+%d -%d)", c.Path, c.Stats.Additions, c.Stats.Deletions)
		if showDiff {
			a.out.diff(c.Diff)
		}
	}
	return errors.ValidationError(
		fmt.Sprintf("archive differs from %s: %d missing, %d extra, %d changed",
			dir, len(report.Missing), len(report.Extra), len(report.Changed)),
		nil)
}

func (a *app) requireHistory() error {
	if a.history == nil {
		return errors.NotFound("run history is unavailable")
	}
	return nil
}

func (a *app) historyList(limit int) error {
	if err := a.requireHistory(); err != nil {
		return err
	}

	runs, err := a.history.List()
	if err != nil {
		return err
	}
	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}

	if len(runs) == 0 {
		a.out.println("No runs recorded")
		return nil
	}
	for _, run := range runs {
		status := a.out.green.Sprint("ok")
		if run.Error != "" {
			status = a.out.red.Sprint("failed")
		}
		a.out.println(fmt.Sprintf("%s  %-8s %-6s %4d files  %s -> %s",
			run.StartedAt.Local().Format(time.DateTime),
			run.Action, status, len(run.Records), run.Source, run.Output))
		a.out.println("  " + run.ID)
	}
	return nil
}

func (a *app) historyShow(id string, asJSON bool) error {
	if err := a.requireHistory(); err != nil {
		return err
	}

	run, err := a.history.Get(id)
	if err != nil {
		return err
	}

	var out []byte
	if asJSON {
		out, err = json.MarshalIndent(run, "", "  ")
		out = append(out, '\n')
	} else {
		out, err = yaml.Marshal(run)
	}
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	_, err = a.out.w.Write(out)
	return err
}

func (a *app) historyPrune(keep int) error {
	if err := a.requireHistory(); err != nil {
		return err
	}

	removed, err := a.history.Prune(keep)
	if err != nil {
		return err
	}
	a.out.success("Removed %d runs", removed)
	return nil
}
