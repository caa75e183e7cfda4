package verify

import (
	"context"
	"testing"

	"codebundle/internal/archive"
	"codebundle/internal/errors"
	"codebundle/internal/workspace"
	"codebundle/shared/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policy = workspace.NewExclusionPolicy(
	[]string{"package-lock.json", ".DS_Store"},
	[]string{"node_modules", "dist", ".git"},
)

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for p, c := range files {
		require.NoError(t, afero.WriteFile(fsys, p, []byte(c), 0644))
	}
}

func TestVerifier_Clean(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/src/a.ts":              "x",
		"/src/b/c.js":            "y",
		"/src/node_modules/m":    "ignored",
		"/src/package-lock.json": "{}",
	})
	records := shared.Archive{{Path: "a.ts", Content: "x"}, {Path: "b/c.js", Content: "y"}}
	writeFiles(t, fsys, map[string]string{"/out/merged.txt": archive.Encode(records, archive.FormatLegacy)})

	report, err := NewVerifier(fsys, policy, nil).Verify(context.Background(), "/out/merged.txt", "/src")
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 2, report.Unchanged)
}

func TestVerifier_Differences(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/src/a.ts":   "one\ntwo\n",
		"/src/new.js": "fresh",
	})
	records := shared.Archive{
		{Path: "a.ts", Content: "one\n2\n"},
		{Path: "gone.css", Content: "body{}"},
		{Path: "dist/bundle.js", Content: "skipped"},
	}

	v := NewVerifier(fsys, policy, nil)
	v.IncludeDiff = true
	report, err := v.Compare(context.Background(), records, "/src")
	require.NoError(t, err)

	assert.False(t, report.Clean())
	assert.Equal(t, []string{"gone.css"}, report.Missing)
	assert.Equal(t, []string{"new.js"}, report.Extra)
	require.Len(t, report.Changed, 1)
	assert.Equal(t, "a.ts", report.Changed[0].Path)
	assert.Equal(t, 1, report.Changed[0].Stats.Additions)
	assert.Equal(t, 1, report.Changed[0].Stats.Deletions)
	assert.Contains(t, report.Changed[0].Diff, "-2\n+two\n")
}

func TestVerifier_SameLengthEdit(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{"/src/a.ts": "const x = 1;"})
	records := shared.Archive{{Path: "a.ts", Content: "const x = 2;"}}

	report, err := NewVerifier(fsys, policy, nil).Compare(context.Background(), records, "/src")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Unchanged)
	require.Len(t, report.Changed, 1)
	assert.Equal(t, "a.ts", report.Changed[0].Path)
}

func TestVerifier_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	v := NewVerifier(fsys, policy, nil)

	_, err := v.Verify(context.Background(), "/missing.txt", "/src")
	assert.True(t, errors.Is(err, errors.ErrorTypeFilesystem))

	writeFiles(t, fsys, map[string]string{"/empty.txt": ""})
	_, err = v.Verify(context.Background(), "/empty.txt", "/src")
	assert.True(t, errors.Is(err, errors.ErrorTypeEmptyResult))
}
