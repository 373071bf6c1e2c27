package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventually = 3 * time.Second

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)

	watcher.AddFilter(NoGitFilter)
	watcher.AddHandler(func([]ChangeEvent) error { return nil })
	watcher.AddImmediateHandler(func([]ChangeEvent) error { return nil })
	assert.Len(t, watcher.filters, 1)
	assert.Len(t, watcher.handlers, 1)
	assert.Len(t, watcher.immediate, 1)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NoError(t, watcher.AddPath(t.TempDir()))
	assert.Error(t, watcher.AddPath("/non/existent/path"))
	assert.Error(t, watcher.AddPath(""))
}

// collector records every batch a handler receives.
type collector struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (c *collector) handle(events []ChangeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

func (c *collector) saw(path string, types ...EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Path != path {
			continue
		}
		if len(types) == 0 {
			return true
		}
		for _, typ := range types {
			if e.Type == typ {
				return true
			}
		}
	}
	return false
}

func startWatcher(t *testing.T, root string) (*FileWatcher, *collector, *collector) {
	t.Helper()
	watcher, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Stop() })

	debounced, immediate := &collector{}, &collector{}
	watcher.AddFilter(IgnoreFilter(root, DefaultIgnore))
	watcher.AddHandler(debounced.handle)
	watcher.AddImmediateHandler(immediate.handle)
	require.NoError(t, watcher.AddRecursive(root))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, watcher.Start(ctx))
	return watcher, debounced, immediate
}

func TestFileWatcherDeliversChanges(t *testing.T) {
	root := t.TempDir()
	_, debounced, _ := startWatcher(t, root)

	file := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("hi"), 0o644))

	assert.Eventually(t, func() bool { return debounced.saw(file) }, eventually, 10*time.Millisecond)
}

func TestFileWatcherIgnoresTemporaryFiles(t *testing.T) {
	root := t.TempDir()
	_, debounced, _ := startWatcher(t, root)

	swap := filepath.Join(root, ".index.html.swp")
	page := filepath.Join(root, "index.html")
	require.NoError(t, os.WriteFile(swap, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(page, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return debounced.saw(page) }, eventually, 10*time.Millisecond)
	assert.False(t, debounced.saw(swap))
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, debounced, _ := startWatcher(t, root)

	dir := filepath.Join(root, "blog")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.Eventually(t, func() bool { return debounced.saw(dir) }, eventually, 10*time.Millisecond)

	file := filepath.Join(dir, "post.md")
	require.NoError(t, os.WriteFile(file, []byte("# Post"), 0o644))
	assert.Eventually(t, func() bool { return debounced.saw(file) }, eventually, 10*time.Millisecond)
}

func TestFileWatcherReportsDeletesImmediately(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "old.html")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, debounced, immediate := startWatcher(t, root)

	require.NoError(t, os.Remove(file))

	assert.Eventually(t, func() bool { return immediate.saw(file, EventTypeDeleted) }, eventually, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return debounced.saw(file, EventTypeDeleted) }, eventually, 10*time.Millisecond)
}

func TestDebouncerCoalescesByPath(t *testing.T) {
	debouncer := NewDebouncer(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.events <- ChangeEvent{Type: EventTypeCreated, Path: "b.html"}
	debouncer.events <- ChangeEvent{Type: EventTypeModified, Path: "a.html"}
	debouncer.events <- ChangeEvent{Type: EventTypeModified, Path: "b.html"}

	select {
	case batch := <-debouncer.output:
		require.Len(t, batch, 2)
		assert.Equal(t, "a.html", batch[0].Path)
		assert.Equal(t, "b.html", batch[1].Path)
		assert.Equal(t, EventTypeModified, batch[1].Type)
	case <-time.After(eventually):
		t.Fatal("no batch emitted")
	}
}

func TestIgnoreFilter(t *testing.T) {
	root := t.TempDir()
	filter := IgnoreFilter(root, append([]string{"drafts/**"}, DefaultIgnore...))

	testCases := []struct {
		path     string
		expected bool
	}{
		{"index.html", true},
		{"css/site.scss", true},
		{"notes.tmp", false},
		{".index.html.swp", false},
		{"index.html~", false},
		{".#index.html", false},
		{"4913", false},
		{"css/.sass-cache", false},
		{"drafts/post.md", false},
		{"blog/drafts.md", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, filter(filepath.Join(root, filepath.FromSlash(tc.path))))
		})
	}
}

func TestNoGitFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"src/index.html", true},
		{".git/config", false},
		{"site/.git/HEAD", false},
		{"site/.git", false},
		{"site/.gitignore", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoGitFilter(tc.path))
		})
	}
}
