package archive

import (
	"strconv"
	"strings"

	"codebundle/internal/errors"
	"codebundle/shared/types"
)

// Parse splits flat archive text into records.
//
// A record starts at "--- START: <path> ---" followed by a line feed and runs
// to the first later "--- END: <path> ---" naming the same path. The line
// feed the writer put in front of the end marker is removed again, so
// content comes back byte for byte. Text between records is ignored.
//
// A start marker at the beginning of a line that never finds its end marker
// makes the archive malformed. Text without any record is an empty result.
func Parse(text string) (shared.Archive, error) {
	records := make(shared.Archive, 0)
	var unmatched []string

	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], startPrefix)
		if i < 0 {
			break
		}
		i += pos

		rec, next, ok := matchRecord(text, i)
		if ok {
			records = append(records, rec)
			pos = next
			continue
		}

		if i == 0 || text[i-1] == '\n' {
			unmatched = append(unmatched, markerLine(text, i))
		}
		pos = i + 1
	}

	if len(unmatched) > 0 {
		return nil, errors.MalformedArchive("start marker without matching end marker", unmatched[0], map[string]any{
			"unmatched": unmatched,
			"records":   len(records),
		})
	}
	if len(records) == 0 {
		return nil, errors.EmptyResult("no records found")
	}
	return records, nil
}

// matchRecord tries to read one record whose start marker begins at i
func matchRecord(text string, i int) (shared.FileRecord, int, bool) {
	body := i + len(startPrefix)

	// the path never spans lines and the marker line must end in a bare \n
	nl := strings.IndexAny(text[body:], "\r\n")
	if nl < len(markerSuffix) || text[body+nl] != '\n' {
		return shared.FileRecord{}, 0, false
	}
	if text[body+nl-len(markerSuffix):body+nl] != markerSuffix {
		return shared.FileRecord{}, 0, false
	}
	raw := text[body : body+nl-len(markerSuffix)]
	contentStart := body + nl + 1

	if path, n, ok := strictHeader(raw); ok {
		if rec, next, ok := matchStrict(text, contentStart, path, n); ok {
			return rec, next, true
		}
	}

	end := EndMarker(raw)
	j := strings.Index(text[contentStart:], end)
	if j < 0 {
		return shared.FileRecord{}, 0, false
	}

	content := strings.TrimSuffix(text[contentStart:contentStart+j], "\n")
	return shared.FileRecord{
		Path:    strings.TrimSpace(raw),
		Content: content,
	}, contentStart + j + len(end), true
}

// strictHeader splits "<path> (<n> bytes)"
func strictHeader(raw string) (string, int, bool) {
	const suffix = " bytes)"
	if !strings.HasSuffix(raw, suffix) {
		return "", 0, false
	}
	head := strings.TrimSuffix(raw, suffix)
	open := strings.LastIndex(head, " (")
	if open < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(head[open+2:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return head[:open], n, true
}

func matchStrict(text string, contentStart int, path string, n int) (shared.FileRecord, int, bool) {
	end := "\n" + EndMarker(path)
	stop := contentStart + n
	if stop > len(text) || !strings.HasPrefix(text[stop:], end) {
		return shared.FileRecord{}, 0, false
	}
	return shared.FileRecord{
		Path:    strings.TrimSpace(path),
		Content: text[contentStart:stop],
	}, stop + len(end), true
}

func markerLine(text string, i int) string {
	line := text[i:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	return strings.TrimSpace(line)
}
