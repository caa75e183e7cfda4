// shared/types/types.go
package shared

import "strings"

// FileRecord is one file captured in an archive
type FileRecord struct {
	Path    string `json:"path"`    // POSIX path relative to the archived root
	Content string `json:"content"` // Verbatim text content
}

// Archive is an ordered sequence of records (discovery order on write,
// parse order on restore)
type Archive []FileRecord

// Paths returns the record paths in archive order
func (a Archive) Paths() []string {
	paths := make([]string, 0, len(a))
	for _, r := range a {
		paths = append(paths, r.Path)
	}
	return paths
}

// Manifest is a flat list of relative paths without content
type Manifest struct {
	Paths []string `json:"paths"`
}

// String renders the manifest the way it is written to disk: one path per
// line, no trailing newline.
func (m Manifest) String() string {
	return strings.Join(m.Paths, "\n")
}

// Len returns the number of listed paths
func (m Manifest) Len() int {
	return len(m.Paths)
}
