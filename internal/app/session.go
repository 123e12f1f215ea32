package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"gitgutter/internal/diffbase"
	"gitgutter/internal/differ"
	"gitgutter/internal/diffview"
	"gitgutter/internal/watch"
)

// session is the live state of one open file: its differ, its watcher and
// the highlighter for its file type. The model replaces the whole session
// when another file is opened.
type session struct {
	rel       string
	abs       string
	differ    *differ.Differ
	watcher   *watch.Watcher
	highlight *diffview.Highlighter
	opts      []differ.Option
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

// fileState is a read of the document and its diff base at one moment.
type fileState struct {
	text        string
	base        string
	hasBase     bool
	highlighted []string
}

func openSession(root, gitDir, rel string, bases diffbase.Provider, theme string, opts []differ.Option, logger zerolog.Logger) (*session, fileState, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	s := &session{
		rel:       rel,
		abs:       abs,
		highlight: diffview.NewHighlighter(filepath.Base(rel), theme),
		opts:      opts,
		logger:    logger.With().Str("file", rel).Logger(),
	}

	state, err := s.read(context.Background(), bases)
	if err != nil {
		return nil, fileState{}, err
	}
	if state.hasBase {
		s.differ = differ.New(state.base, state.text, s.opts...)
	}

	w, err := watch.New(abs, gitDir, s.logger)
	if err != nil {
		// Without a watcher the view is static until refreshed.
		s.logger.Warn().Err(err).Msg("cannot watch file")
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		s.watcher = w
		s.cancel = cancel
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Debug().Err(err).Msg("watcher stopped")
			}
		}()
	}
	return s, state, nil
}

func (s *session) read(ctx context.Context, bases diffbase.Provider) (fileState, error) {
	text, err := s.readDocument()
	if err != nil {
		return fileState{}, err
	}
	state := fileState{text: text, highlighted: s.highlight.Lines(text)}
	if raw, ok := bases.DiffBase(ctx, s.abs); ok {
		state.base = string(raw)
		state.hasBase = true
	} else {
		s.logger.Debug().Msg("no diff base, showing file as untracked")
	}
	return state, nil
}

func (s *session) readDocument() (string, error) {
	data, err := os.ReadFile(s.abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.rel, err)
	}
	return string(data), nil
}

// applyBase feeds a fresh diff base to the differ, starting or stopping it
// when the file gains or loses a base.
func (s *session) applyBase(state fileState) {
	switch {
	case state.hasBase && s.differ == nil:
		s.differ = differ.New(state.base, state.text, s.opts...)
	case state.hasBase:
		s.differ.UpdateDiffBase(state.base)
	case s.differ != nil:
		s.differ.Close()
		s.differ = nil
	}
}

func (s *session) applyDocument(text string) {
	if s.differ != nil {
		s.differ.UpdateDocument(text)
	}
}

// snapshot returns the latest published diff, or nil when the file has no
// base. The caller releases a non-nil snapshot.
func (s *session) snapshot() *differ.Snapshot {
	if s == nil || s.differ == nil {
		return nil
	}
	return s.differ.LineDiffs()
}

func (s *session) close() {
	if s == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.differ != nil {
		s.differ.Close()
	}
}
