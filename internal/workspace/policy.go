package workspace

import (
	"path"
	"strings"
)

// ExclusionPolicy decides which files and directory subtrees a walk skips.
// Every walk, restore and watch consumes the same policy.
type ExclusionPolicy struct {
	Files map[string]bool `json:"files"`
	Dirs  map[string]bool `json:"dirs"`
}

func NewExclusionPolicy(files, dirs []string) ExclusionPolicy {
	p := ExclusionPolicy{
		Files: make(map[string]bool, len(files)),
		Dirs:  make(map[string]bool, len(dirs)),
	}
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			p.Files[f] = true
		}
	}
	for _, d := range dirs {
		if d = strings.TrimSpace(d); d != "" {
			p.Dirs[d] = true
		}
	}
	return p
}

// ExcludesFile checks a file base name
func (p ExclusionPolicy) ExcludesFile(name string) bool {
	return p.Files[name]
}

// ExcludesDir checks a directory base name
func (p ExclusionPolicy) ExcludesDir(name string) bool {
	return p.Dirs[name]
}

// ExcludesPath checks a slash separated relative file path: the base name
// against Files and every parent component against Dirs.
func (p ExclusionPolicy) ExcludesPath(rel string) bool {
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	dir, base := path.Split(rel)
	if p.ExcludesFile(base) {
		return true
	}
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part != "" && p.ExcludesDir(part) {
			return true
		}
	}
	return false
}
