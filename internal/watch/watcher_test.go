package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codebundle/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var policy = workspace.NewExclusionPolicy(
	[]string{"package-lock.json", ".DS_Store"},
	[]string{"node_modules", "dist", ".git"},
)

func startWatcher(t *testing.T, root string, ignore ...string) (*Watcher, <-chan struct{}) {
	t.Helper()
	calls := make(chan struct{}, 16)
	w, err := New(Options{Root: root, Policy: policy, Debounce: 50 * time.Millisecond, Ignore: ignore},
		func(ctx context.Context) error {
			calls <- struct{}{}
			return nil
		}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w, calls
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("x"), 0644))
	w, calls := startWatcher(t, root)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte{byte('a' + i)}, 0644))
	}

	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after change")
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, w.Rebuilds())
}

func TestWatcher_IgnoresExcludedPaths(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))
	require.NoError(t, os.MkdirAll(out, 0755))
	_, calls := startWatcher(t, root, out)

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "m.js"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".DS_Store"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "all-code-merged.txt"), []byte("x"), 0644))

	select {
	case <-calls:
		t.Fatal("rebuild triggered by an excluded path")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, calls := startWatcher(t, root)

	sub := filepath.Join(root, "b")
	require.NoError(t, os.MkdirAll(sub, 0755))
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after mkdir")
	}

	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.js"), []byte("y"), 0644))
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after write in new directory")
	}
}
