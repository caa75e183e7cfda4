package archive

import (
	"testing"

	"codebundle/internal/errors"
	"codebundle/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioArchive = "--- START: a.ts ---\nx\n--- END: a.ts ---\n\n--- START: b/c.js ---\ny\n--- END: b/c.js ---\n\n"

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want shared.Archive
	}{
		{
			name: "concrete scenario",
			text: scenarioArchive,
			want: shared.Archive{{Path: "a.ts", Content: "x"}, {Path: "b/c.js", Content: "y"}},
		},
		{
			name: "empty content",
			text: "--- START: empty.txt ---\n\n--- END: empty.txt ---\n\n",
			want: shared.Archive{{Path: "empty.txt", Content: ""}},
		},
		{
			name: "content keeps its own trailing newline",
			text: "--- START: a.ts ---\nx\n\n--- END: a.ts ---\n\n",
			want: shared.Archive{{Path: "a.ts", Content: "x\n"}},
		},
		{
			name: "end marker of another path is plain content",
			text: "--- START: a.ts ---\n--- END: b.ts ---\n--- END: a.ts ---\n\n",
			want: shared.Archive{{Path: "a.ts", Content: "--- END: b.ts ---"}},
		},
		{
			name: "nested start marker inside content is consumed",
			text: "--- START: outer.txt ---\n--- START: inner.txt ---\n--- END: outer.txt ---\n\n",
			want: shared.Archive{{Path: "outer.txt", Content: "--- START: inner.txt ---"}},
		},
		{
			name: "text between records is ignored",
			text: "preamble\n--- START: a.ts ---\nx\n--- END: a.ts ---\nnoise\n",
			want: shared.Archive{{Path: "a.ts", Content: "x"}},
		},
		{
			name: "strict record survives its own end marker",
			text: "--- START: a.md (19 bytes) ---\n--- END: a.md ---\nz\n--- END: a.md ---\n\n",
			want: shared.Archive{{Path: "a.md", Content: "--- END: a.md ---\nz"}},
		},
		{
			name: "strict looking path with wrong length falls back to legacy",
			text: "--- START: odd (99 bytes) ---\nq\n--- END: odd (99 bytes) ---\n\n",
			want: shared.Archive{{Path: "odd (99 bytes)", Content: "q"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, text := range []string{"", "\n\n", "just some notes\n"} {
		_, err := Parse(text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrorTypeEmptyResult), "text %q", text)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "mismatched end path", text: "--- START: a.ts ---\nx\n--- END: b.ts ---\n\n"},
		{name: "missing end marker", text: scenarioArchive + "--- START: c.ts ---\nz\n"},
		{name: "crlf marker line", text: "--- START: a.ts ---\r\nx\r\n--- END: a.ts ---\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, errors.ErrorTypeMalformedArchive))
		})
	}
}

func TestParse_LegacyMarkerCollisionTruncates(t *testing.T) {
	rec := shared.FileRecord{Path: "a.md", Content: "before\n--- END: a.md ---\nafter"}
	require.True(t, Unsafe(rec))

	got, err := Parse(Encode(shared.Archive{rec}, FormatLegacy))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "before", got[0].Content)
}

func TestRoundTrip(t *testing.T) {
	records := shared.Archive{
		{Path: "a.ts", Content: "export const a = 1;\n"},
		{Path: "b/c.js", Content: "no newline at end"},
		{Path: "b/empty.txt", Content: ""},
		{Path: "d/blank-lines.txt", Content: "\n\n\n"},
		{Path: "e/windows.txt", Content: "line1\r\nline2\r\n"},
		{Path: "f/markers.txt", Content: "--- START: g.ts ---\n--- END: g.ts ---\n"},
		{Path: "h/self.md", Content: "--- END: h/self.md ---\n"},
	}

	strict, err := Parse(Encode(records, FormatStrict))
	require.NoError(t, err)
	assert.Equal(t, records, strict)

	safe := records[:len(records)-1]
	legacy, err := Parse(Encode(safe, FormatLegacy))
	require.NoError(t, err)
	assert.Equal(t, safe, legacy)
}
