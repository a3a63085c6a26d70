package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/parser"
)

type recordingIndexer struct {
	mu    sync.Mutex
	calls []domain.Source
	ch    chan domain.Source
}

func newRecordingIndexer() *recordingIndexer {
	return &recordingIndexer{ch: make(chan domain.Source, 16)}
}

func (r *recordingIndexer) IndexSource(_ context.Context, src domain.Source) (run.Report, error) {
	r.mu.Lock()
	r.calls = append(r.calls, src)
	r.mu.Unlock()
	r.ch <- src
	return run.Report{RunID: "r", Source: src}, nil
}

func (r *recordingIndexer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
}

func waitFor(t *testing.T, ch <-chan domain.Source) domain.Source {
	t.Helper()
	select {
	case src := <-ch:
		return src
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for re-index")
		return ""
	}
}

func TestWatcher_ReindexesChangedSource(t *testing.T) {
	diary := t.TempDir()
	poetry := t.TempDir()
	writeFile(t, filepath.Join(diary, "2020", "2020-01-01-1.md"), "x")

	idx := newRecordingIndexer()
	w := New(idx, []parser.Reader{
		parser.NewDiaryReader(diary),
		parser.NewPoetryReader(poetry),
	}, 50*time.Millisecond, zap.NewNop())
	startWatcher(t, w)

	writeFile(t, filepath.Join(diary, "2020", "2020-01-02-1.md"), "y")

	assert.Equal(t, domain.SourceDiary, waitFor(t, idx.ch))
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	root := t.TempDir()
	idx := newRecordingIndexer()
	w := New(idx, []parser.Reader{parser.NewChatReader(root)}, 200*time.Millisecond, zap.NewNop())
	startWatcher(t, w)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		writeFile(t, filepath.Join(root, name), "hello")
	}

	assert.Equal(t, domain.SourceChat, waitFor(t, idx.ch))
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, idx.count())
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	root := t.TempDir()
	idx := newRecordingIndexer()
	w := New(idx, []parser.Reader{parser.NewPoetryReader(root)}, 50*time.Millisecond, zap.NewNop())
	startWatcher(t, w)

	require.NoError(t, os.Mkdir(filepath.Join(root, "blok"), 0o755))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, idx.count())

	writeFile(t, filepath.Join(root, "blok", "noch.md"), "# Ночь")
	assert.Equal(t, domain.SourcePoetry, waitFor(t, idx.ch))
}

func TestWatcher_CatalogFile(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "corpus-annotations.md")
	writeFile(t, catalog, "## Section\n")

	idx := newRecordingIndexer()
	w := New(idx, []parser.Reader{parser.NewCatalogReader(catalog)}, 50*time.Millisecond, zap.NewNop())
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "notes.md"), "unrelated")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, idx.count())

	writeFile(t, catalog, "## Section\n**a** — *A*\ntext\n")
	assert.Equal(t, domain.SourceCorpus, waitFor(t, idx.ch))
}

func TestWatcher_NoRoots(t *testing.T) {
	w := New(newRecordingIndexer(), []parser.Reader{
		parser.NewDiaryReader(filepath.Join(t.TempDir(), "missing")),
	}, 0, nil)

	err := w.Run(context.Background())
	require.Error(t, err)
}

func TestSourceFor(t *testing.T) {
	w := &Watcher{targets: []target{
		{source: domain.SourceDiary, root: "/archive/diary"},
		{source: domain.SourceCorpus, root: "/archive/corpus.md", file: true},
	}}

	tests := []struct {
		name string
		ev   fsnotify.Event
		want domain.Source
		ok   bool
	}{
		{"diary post", fsnotify.Event{Name: "/archive/diary/2020/a.md", Op: fsnotify.Write}, domain.SourceDiary, true},
		{"uppercase ext", fsnotify.Event{Name: "/archive/diary/A.MD", Op: fsnotify.Create}, domain.SourceDiary, true},
		{"removed post", fsnotify.Event{Name: "/archive/diary/a.md", Op: fsnotify.Remove}, domain.SourceDiary, true},
		{"chmod only", fsnotify.Event{Name: "/archive/diary/a.md", Op: fsnotify.Chmod}, "", false},
		{"not markdown", fsnotify.Event{Name: "/archive/diary/a.txt", Op: fsnotify.Write}, "", false},
		{"sibling prefix", fsnotify.Event{Name: "/archive/diary2/a.md", Op: fsnotify.Write}, "", false},
		{"catalog", fsnotify.Event{Name: "/archive/corpus.md", Op: fsnotify.Write}, domain.SourceCorpus, true},
		{"catalog neighbour", fsnotify.Event{Name: "/archive/other.md", Op: fsnotify.Write}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := w.sourceFor(tc.ev)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
