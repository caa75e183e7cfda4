// internal/workspace/walk.go
package workspace

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"codebundle/internal/errors"
	"codebundle/internal/filelock"

	"github.com/spf13/afero"
)

// Walk lists every file under root that policy keeps, as slash separated
// paths relative to root. Entries are visited in the order the filesystem
// lists them; a file is emitted when met and a directory is descended into
// when met. Lock and staging files of a concurrent run are never listed.
// Any listing failure fails the whole walk.
func Walk(fsys afero.Fs, root string, policy ExclusionPolicy) ([]string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, errors.Filesystem("opening root directory", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Filesystem("root is not a directory", root, nil)
	}

	files := make([]string, 0)
	if err := walkDir(fsys, root, "", policy, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walkDir(fsys afero.Fs, dir, rel string, policy ExclusionPolicy, files *[]string) error {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return errors.Filesystem("listing directory", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		relPath := path.Join(rel, name)

		if entry.IsDir() {
			if policy.ExcludesDir(name) {
				continue
			}
			if err := walkDir(fsys, filepath.Join(dir, name), relPath, policy, files); err != nil {
				return err
			}
			continue
		}

		if filelock.IsArtifact(name) || policy.ExcludesFile(name) {
			continue
		}
		*files = append(*files, relPath)
	}

	return nil
}

// Resolve turns a relative archive path into a location under root, refusing
// absolute paths and paths that climb out of root.
func Resolve(root, rel string) (string, error) {
	clean := path.Clean(filepath.ToSlash(rel))
	if rel == "" || clean == "." || path.IsAbs(clean) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("path %q is not relative", rel)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %q escapes the target directory", rel)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
