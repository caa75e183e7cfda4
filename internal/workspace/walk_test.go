package workspace

import (
	"path/filepath"
	"testing"

	"codebundle/internal/errors"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(root, 0755))
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, afero.WriteFile(fsys, abs, []byte(content), 0644))
	}
}

func TestWalk(t *testing.T) {
	policy := NewExclusionPolicy(
		[]string{"package-lock.json", ".DS_Store"},
		[]string{"node_modules", "dist", ".git"},
	)

	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		{
			name:  "concrete scenario",
			files: map[string]string{"a.ts": "x", "b/c.js": "y", ".DS_Store": "junk"},
			want:  []string{"a.ts", "b/c.js"},
		},
		{
			name: "directories are descended where they are listed",
			files: map[string]string{
				"a.ts":        "",
				"b/z.ts":      "",
				"b/a/deep.ts": "",
				"c.ts":        "",
			},
			want: []string{"a.ts", "b/a/deep.ts", "b/z.ts", "c.ts"},
		},
		{
			name: "excluded directories are pruned",
			files: map[string]string{
				"app.js":                "",
				"node_modules/lib/x.js": "",
				"dist/bundle.js":        "",
				"src/.git/HEAD":         "",
				"src/package-lock.json": "{}",
				"src/main.ts":           "",
			},
			want: []string{"app.js", "src/main.ts"},
		},
		{
			name: "lock and staging files are never listed",
			files: map[string]string{
				"a.ts":                    "",
				".codebundle.lock":        "",
				"out/.codebundle.lock":    "",
				"out/.tmp-2841937":        "partial",
				"out/all-code-merged.txt": "",
			},
			want: []string{"a.ts", "out/all-code-merged.txt"},
		},
		{
			name:  "empty tree",
			files: map[string]string{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeTree(t, fsys, "/src", tt.files)

			got, err := Walk(fsys, "/src", policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalk_RootErrors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/file.txt", []byte("x"), 0644))

	_, err := Walk(fsys, "/missing", ExclusionPolicy{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeFilesystem))

	files, err := Walk(fsys, "/file.txt", ExclusionPolicy{})
	require.Error(t, err)
	assert.Nil(t, files)
	assert.True(t, errors.Is(err, errors.ErrorTypeFilesystem))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		rel     string
		want    string
		wantErr bool
	}{
		{rel: "a.ts", want: filepath.Join("/out", "a.ts")},
		{rel: "b/c.js", want: filepath.Join("/out", "b", "c.js")},
		{rel: "b/../c.js", want: filepath.Join("/out", "c.js")},
		{rel: "../etc/passwd", wantErr: true},
		{rel: "a/../../x", wantErr: true},
		{rel: "/etc/passwd", wantErr: true},
		{rel: "", wantErr: true},
		{rel: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			got, err := Resolve("/out", tt.rel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
