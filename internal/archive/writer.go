package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"codebundle/internal/errors"
	"codebundle/internal/filelock"
	"codebundle/shared/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Default artifact names
const (
	DefaultArchiveName = "all-code-merged.txt"
	DefaultHTMLName    = "all-code-merged.html"
)

// Rendered holds both artifacts built from the same records in one pass
type Rendered struct {
	Text    string
	HTML    string
	Records int
	Unsafe  []string // legacy records that will not survive a restore
}

// WriteResult describes the files a Writer produced
type WriteResult struct {
	ArchivePath string   `json:"archive_path"`
	HTMLPath    string   `json:"html_path"`
	Records     int      `json:"records"`
	Paths       []string `json:"paths"`
	Bytes       int      `json:"bytes"`
	Unsafe      []string `json:"unsafe,omitempty"`
}

type Writer struct {
	Fs          afero.Fs
	Format      Format
	ArchiveName string
	HTMLName    string
	Logger      *zap.Logger
}

func NewWriter(fsys afero.Fs, format Format, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == "" {
		format = FormatLegacy
	}
	return &Writer{
		Fs:          fsys,
		Format:      format,
		ArchiveName: DefaultArchiveName,
		HTMLName:    DefaultHTMLName,
		Logger:      logger,
	}
}

// Render builds the flat archive and the HTML page together so both always
// describe the same records in the same order.
func Render(records shared.Archive, format Format) Rendered {
	var text, html strings.Builder
	out := Rendered{Records: len(records)}

	htmlOpen(&html)
	for _, r := range records {
		AppendRecord(&text, r, format)
		htmlRecord(&html, r)

		if format != FormatStrict && Unsafe(r) {
			out.Unsafe = append(out.Unsafe, r.Path)
		}
	}
	htmlClose(&html)

	out.Text = text.String()
	out.HTML = html.String()
	return out
}

// Write renders records and replaces both artifacts in outputDir. Nothing is
// written when ctx is already done.
func (w *Writer) Write(ctx context.Context, records shared.Archive, outputDir string) (*WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}

	if err := w.Fs.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Filesystem("creating output directory", outputDir, err)
	}

	out := Render(records, w.Format)
	for _, p := range out.Unsafe {
		w.Logger.Warn("content contains its own end marker; use the strict format to restore it intact",
			zap.String("path", p))
	}

	archivePath := filepath.Join(outputDir, w.ArchiveName)
	htmlPath := filepath.Join(outputDir, w.HTMLName)

	if err := filelock.AtomicWrite(w.Fs, archivePath, []byte(out.Text)); err != nil {
		return nil, errors.Filesystem("writing archive", archivePath, err)
	}
	if err := filelock.AtomicWrite(w.Fs, htmlPath, []byte(out.HTML)); err != nil {
		return nil, errors.Filesystem("writing html rendering", htmlPath, err)
	}

	for _, r := range records {
		w.Logger.Debug("extracted", zap.String("path", r.Path))
	}
	w.Logger.Info("archive written",
		zap.String("archive", archivePath),
		zap.String("html", htmlPath),
		zap.Int("records", out.Records),
		zap.String("format", string(w.Format)))

	return &WriteResult{
		ArchivePath: archivePath,
		HTMLPath:    htmlPath,
		Records:     out.Records,
		Paths:       records.Paths(),
		Bytes:       len(out.Text),
		Unsafe:      out.Unsafe,
	}, nil
}
