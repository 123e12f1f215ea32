// Package watch reports edits to an open file and changes to the repository
// state its diff base is read from.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

type Kind int

const (
	// DocumentChanged means the watched file was written, replaced or removed.
	DocumentChanged Kind = iota + 1
	// BaseChanged means HEAD, the index or a branch ref moved.
	BaseChanged
)

func (k Kind) String() string {
	switch k {
	case DocumentChanged:
		return "document"
	case BaseChanged:
		return "base"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind Kind
	Path string
}

// Watcher watches the file's directory rather than the file itself, since
// editors commonly save by renaming a temporary file over the original.
type Watcher struct {
	fs     *fsnotify.Watcher
	file   string
	gitDir string
	events chan Event
	logger zerolog.Logger
}

// New watches file and, when gitDir is non-empty, the repository metadata in
// gitDir.
func New(file, gitDir string, logger zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:     fsw,
		file:   filepath.Clean(abs),
		events: make(chan Event, 16),
		logger: logger.With().Str("component", "watch").Logger(),
	}

	dirs := []string{filepath.Dir(w.file)}
	if gitDir != "" {
		w.gitDir = filepath.Clean(gitDir)
		dirs = append(dirs, w.gitDir, filepath.Join(w.gitDir, "refs", "heads"))
	}
	for i, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			if i == 0 {
				fsw.Close()
				return nil, err
			}
			w.logger.Debug().Err(err).Str("dir", dir).Msg("cannot watch repository directory")
		}
	}
	return w, nil
}

func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run forwards classified events until ctx is done or the watcher is closed.
// The events channel is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			kind, ok := w.classify(ev)
			if !ok {
				continue
			}
			w.logger.Trace().Str("kind", kind.String()).Str("path", ev.Name).Str("op", ev.Op.String()).Msg("change")
			if !w.send(ctx, Event{Kind: kind, Path: ev.Name}) {
				return ctx.Err()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Missed events; assume both sides changed.
				w.logger.Warn().Msg("event queue overflow")
				if !w.send(ctx, Event{Kind: BaseChanged, Path: w.gitDir}) ||
					!w.send(ctx, Event{Kind: DocumentChanged, Path: w.file}) {
					return ctx.Err()
				}
				continue
			}
			w.logger.Debug().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) send(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) classify(ev fsnotify.Event) (Kind, bool) {
	if ev.Op == fsnotify.Chmod {
		return 0, false
	}
	name := filepath.Clean(ev.Name)
	if name == w.file {
		return DocumentChanged, true
	}
	if w.gitDir == "" {
		return 0, false
	}

	switch {
	case filepath.Dir(name) == w.gitDir:
		switch filepath.Base(name) {
		case "HEAD", "index", "packed-refs":
			return BaseChanged, true
		}
	case filepath.Dir(name) == filepath.Join(w.gitDir, "refs", "heads"):
		if !strings.HasSuffix(name, ".lock") {
			return BaseChanged, true
		}
	}
	return 0, false
}
