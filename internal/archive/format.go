// Package archive writes and reads the flat "merged" text archive and its
// annotated HTML rendering.
//
// A record in the flat archive is framed as
//
//	--- START: <path> ---
//	<content>
//	--- END: <path> ---
//	<blank line>
//
// The end marker must repeat the start marker's path exactly; that identity is
// what separates one record from the next. Content is not escaped, so a
// legacy record whose content contains its own end marker cannot be read
// back. The strict format adds the content length to the start marker,
//
//	--- START: <path> (<n> bytes) ---
//
// and the parser then trusts the length instead of searching for the end
// marker. Both formats may be mixed in one archive.
package archive

import (
	"fmt"
	"strings"

	"codebundle/internal/errors"
	"codebundle/shared/types"
)

type Format string

const (
	FormatLegacy Format = "legacy"
	FormatStrict Format = "strict"
)

const (
	startPrefix  = "--- START: "
	endPrefix    = "--- END: "
	markerSuffix = " ---"
)

// ParseFormat accepts "legacy", "strict" or "" (legacy)
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatLegacy:
		return FormatLegacy, nil
	case FormatStrict:
		return FormatStrict, nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("unknown archive format %q", s), nil)
	}
}

func StartMarker(path string) string {
	return startPrefix + path + markerSuffix
}

func EndMarker(path string) string {
	return endPrefix + path + markerSuffix
}

func strictStartMarker(path string, n int) string {
	return fmt.Sprintf("%s%s (%d bytes)%s", startPrefix, path, n, markerSuffix)
}

// Unsafe reports whether a legacy record would be cut short on restore
// because its content already contains its own end marker.
func Unsafe(r shared.FileRecord) bool {
	return strings.Contains(r.Content, EndMarker(r.Path))
}

// AppendRecord writes one framed record to sb
func AppendRecord(sb *strings.Builder, r shared.FileRecord, format Format) {
	if format == FormatStrict {
		sb.WriteString(strictStartMarker(r.Path, len(r.Content)))
	} else {
		sb.WriteString(StartMarker(r.Path))
	}
	sb.WriteString("\n")
	sb.WriteString(r.Content)
	sb.WriteString("\n")
	sb.WriteString(EndMarker(r.Path))
	sb.WriteString("\n\n")
}

// Encode renders records as flat archive text
func Encode(records shared.Archive, format Format) string {
	var sb strings.Builder
	for _, r := range records {
		AppendRecord(&sb, r, format)
	}
	return sb.String()
}
