// Package watch re-indexes a source when files below its root change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
	"github.com/kailas-cloud/archivist/internal/parser"
)

// DefaultDebounce is the quiet period before a changed source is re-indexed.
const DefaultDebounce = 500 * time.Millisecond

// Indexer re-indexes one source.
type Indexer interface {
	IndexSource(ctx context.Context, src domain.Source) (run.Report, error)
}

type target struct {
	source domain.Source
	root   string
	file   bool // root is a single file
}

// Watcher batches file events per source and re-indexes after a quiet period.
type Watcher struct {
	indexer  Indexer
	targets  []target
	debounce time.Duration
	logger   *zap.Logger

	// OnReport, when set, receives every report produced by a re-index.
	OnReport func(run.Report)
}

// New creates a Watcher over the readers' roots.
func New(indexer Indexer, readers []parser.Reader, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{indexer: indexer, debounce: debounce, logger: logger}
	for _, r := range readers {
		w.targets = append(w.targets, target{source: r.Source(), root: filepath.Clean(r.Root())})
	}
	return w
}

// Run watches until ctx is done. Roots that do not exist are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	watched := 0
	for i := range w.targets {
		t := &w.targets[i]
		info, err := os.Stat(t.root)
		if err != nil {
			w.logger.Warn("watch root unavailable", zap.String("source", t.source.String()),
				zap.String("root", t.root), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			t.file = true
			if err := fw.Add(filepath.Dir(t.root)); err != nil {
				return fmt.Errorf("watch %s: %w", t.root, err)
			}
		} else if err := addTree(fw, t.root); err != nil {
			return fmt.Errorf("watch %s: %w", t.root, err)
		}
		watched++
		w.logger.Info("watching source", zap.String("source", t.source.String()), zap.String("root", t.root))
	}
	if watched == 0 {
		return fmt.Errorf("no source root to watch")
	}

	pending := make(map[domain.Source]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						w.logger.Warn("watch new directory", zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}
			src, ok := w.sourceFor(ev)
			if !ok {
				continue
			}
			w.logger.Debug("change detected", zap.String("source", src.String()),
				zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending[src] = struct{}{}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			w.flush(ctx, pending)
			pending = make(map[domain.Source]struct{})
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[domain.Source]struct{}) {
	sources := make([]domain.Source, 0, len(pending))
	for src := range pending {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	for _, src := range sources {
		report, err := w.indexer.IndexSource(ctx, src)
		if err != nil {
			w.logger.Error("re-index failed", zap.String("source", src.String()), zap.Error(err))
			continue
		}
		w.logger.Info("re-indexed",
			zap.String("source", src.String()),
			zap.String("run_id", report.RunID),
			zap.Int("added", report.Added),
			zap.Int("chunks", report.Chunks),
		)
		if w.OnReport != nil {
			w.OnReport(report)
		}
	}
}

// sourceFor maps an event to the source it affects. Chmod-only events
// and non-Markdown files below directory roots are ignored.
func (w *Watcher) sourceFor(ev fsnotify.Event) (domain.Source, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	name := filepath.Clean(ev.Name)
	for _, t := range w.targets {
		if t.file {
			if name == t.root {
				return t.source, true
			}
			continue
		}
		if !strings.HasPrefix(name, t.root+string(filepath.Separator)) {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".md") {
			return t.source, true
		}
	}
	return "", false
}

// addTree watches root and every directory below it.
func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
