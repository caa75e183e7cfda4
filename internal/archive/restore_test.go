package archive

import (
	"context"
	"path/filepath"
	"testing"

	"codebundle/internal/errors"
	"codebundle/internal/workspace"
	"codebundle/shared/types"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultPolicy = workspace.NewExclusionPolicy(
	[]string{"package-lock.json", ".DS_Store"},
	[]string{"node_modules", "dist", ".git"},
)

func readTree(t *testing.T, fsys afero.Fs, root string) map[string]string {
	t.Helper()
	files, err := workspace.Walk(fsys, root, workspace.ExclusionPolicy{})
	require.NoError(t, err)

	tree := make(map[string]string, len(files))
	for _, f := range files {
		data, err := afero.ReadFile(fsys, filepath.Join(root, filepath.FromSlash(f)))
		require.NoError(t, err)
		tree[f] = string(data)
	}
	return tree
}

func TestRestorer_ConcreteScenario(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/merged.txt", []byte(scenarioArchive), 0644))
	require.NoError(t, fsys.MkdirAll("/restored", 0755))

	r := NewRestorer(fsys, defaultPolicy, nil)
	res, err := r.Restore(context.Background(), "/merged.txt", "/restored")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.ts", "b/c.js"}, res.Written)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, map[string]string{"a.ts": "x", "b/c.js": "y"}, readTree(t, fsys, "/restored"))

	isDir, err := afero.IsDir(fsys, filepath.Join("/restored", "b"))
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestRestorer_Idempotent(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/merged.txt", []byte(scenarioArchive), 0644))
	r := NewRestorer(fsys, defaultPolicy, nil)

	_, err := r.Restore(context.Background(), "/merged.txt", "/restored")
	require.NoError(t, err)
	once := readTree(t, fsys, "/restored")

	_, err = r.Restore(context.Background(), "/merged.txt", "/restored")
	require.NoError(t, err)
	assert.Equal(t, once, readTree(t, fsys, "/restored"))
}

func TestRestorer_OverwritesExisting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/merged.txt", []byte(scenarioArchive), 0644))
	require.NoError(t, fsys.MkdirAll("/restored", 0755))
	require.NoError(t, afero.WriteFile(fsys, "/restored/a.ts", []byte("old and longer"), 0644))

	_, err := NewRestorer(fsys, defaultPolicy, nil).Restore(context.Background(), "/merged.txt", "/restored")
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "/restored/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestRestorer_SkipsExcluded(t *testing.T) {
	fsys := afero.NewMemMapFs()
	records := shared.Archive{
		{Path: "a.ts", Content: "x"},
		{Path: "sub/.DS_Store", Content: "junk"},
		{Path: "node_modules/lib.js", Content: "vendored"},
	}

	res, err := NewRestorer(fsys, defaultPolicy, nil).RestoreRecords(context.Background(), records, "/restored")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.ts"}, res.Written)
	assert.Equal(t, []string{"sub/.DS_Store", "node_modules/lib.js"}, res.Skipped)
	assert.Equal(t, map[string]string{"a.ts": "x"}, readTree(t, fsys, "/restored"))
}

func TestRestorer_RejectsEscapingPaths(t *testing.T) {
	fsys := afero.NewMemMapFs()
	records := shared.Archive{
		{Path: "ok.ts", Content: "x"},
		{Path: "../outside.ts", Content: "y"},
	}

	_, err := NewRestorer(fsys, defaultPolicy, nil).RestoreRecords(context.Background(), records, "/restored")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeMalformedArchive))

	exists, _ := afero.Exists(fsys, "/restored/ok.ts")
	assert.False(t, exists, "nothing is written when a path is unsafe")
}

func TestRestorer_Failures(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r := NewRestorer(fsys, defaultPolicy, nil)

	_, err := r.Restore(context.Background(), "/missing.txt", "/restored")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeFilesystem))

	require.NoError(t, afero.WriteFile(fsys, "/empty.txt", nil, 0644))
	_, err = r.Restore(context.Background(), "/empty.txt", "/restored")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeEmptyResult))

	require.NoError(t, afero.WriteFile(fsys, "/broken.txt", []byte("--- START: a ---\nx\n"), 0644))
	_, err = r.Restore(context.Background(), "/broken.txt", "/restored")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeMalformedArchive))

	exists, _ := afero.DirExists(fsys, "/restored")
	assert.False(t, exists)
}
