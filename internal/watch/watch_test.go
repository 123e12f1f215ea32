package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	w := &Watcher{file: "/repo/src/a.go", gitDir: "/repo/.git"}

	cases := []struct {
		name string
		op   fsnotify.Op
		kind Kind
		ok   bool
	}{
		{"/repo/src/a.go", fsnotify.Write, DocumentChanged, true},
		{"/repo/src/a.go", fsnotify.Rename, DocumentChanged, true},
		{"/repo/src/a.go", fsnotify.Chmod, 0, false},
		{"/repo/src/b.go", fsnotify.Write, 0, false},
		{"/repo/.git/HEAD", fsnotify.Write, BaseChanged, true},
		{"/repo/.git/index", fsnotify.Create, BaseChanged, true},
		{"/repo/.git/index.lock", fsnotify.Create, 0, false},
		{"/repo/.git/refs/heads/main", fsnotify.Create, BaseChanged, true},
		{"/repo/.git/refs/heads/main.lock", fsnotify.Create, 0, false},
		{"/repo/.git/COMMIT_EDITMSG", fsnotify.Write, 0, false},
	}
	for _, tc := range cases {
		kind, ok := w.classify(fsnotify.Event{Name: tc.name, Op: tc.op})
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.kind, kind, tc.name)
	}
}

func TestClassifyWithoutRepository(t *testing.T) {
	w := &Watcher{file: "/tmp/a.txt"}
	_, ok := w.classify(fsnotify.Event{Name: "/tmp/HEAD", Op: fsnotify.Write})
	assert.False(t, ok)
}

func TestWatcherReportsDocumentAndBaseChanges(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("one\n"), 0o644))

	w, err := New(file, gitDir, zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("two\n"), 0o644))
	assert.Equal(t, DocumentChanged, waitFor(t, w.Events()).Kind)

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	assert.Equal(t, BaseChanged, waitFor(t, w.Events(), DocumentChanged).Kind)
}

func TestRunClosesEventsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "a.txt"), "", zerolog.Nop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	_, ok := <-w.Events()
	assert.False(t, ok)
}

// waitFor returns the next event whose kind is not in skip.
func waitFor(t *testing.T, events <-chan Event, skip ...Kind) Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed")
			if containsKind(skip, ev.Kind) {
				continue
			}
			return ev
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
