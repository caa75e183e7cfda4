package bundler

import (
	"codebundle/internal/archive"
	"codebundle/internal/manifest"
)

// Options tunes how the entry points name and guard their output
type Options struct {
	Format       archive.Format
	ArchiveName  string
	HTMLName     string
	ManifestName string

	// Lock takes an exclusive lock file in the directory being written.
	// It only works on the OS filesystem.
	Lock bool

	// Files replaces the archive walk with an explicit root-relative list
	Files []string
}

// DefaultOptions mirrors the stock artifact names
func DefaultOptions() Options {
	return Options{
		Format:       archive.FormatLegacy,
		ArchiveName:  archive.DefaultArchiveName,
		HTMLName:     archive.DefaultHTMLName,
		ManifestName: manifest.DefaultFileName,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.ArchiveName == "" {
		o.ArchiveName = d.ArchiveName
	}
	if o.HTMLName == "" {
		o.HTMLName = d.HTMLName
	}
	if o.ManifestName == "" {
		o.ManifestName = d.ManifestName
	}
	return o
}
