// Package differ maintains a live line diff between a diff base and a document
// that is being edited.
//
// A Differ owns one background worker goroutine. Producers hand new texts to
// the worker with UpdateDocument and UpdateDiffBase, which never block. The
// worker coalesces bursts of updates with a trailing debounce, recomputes the
// diff, and publishes the result as an immutable Snapshot. Readers call
// LineDiffs to obtain the latest Snapshot without taking any lock and release
// it when done:
//
//	snap := d.LineDiffs()
//	defer snap.Release()
//	if kind, ok := snap.Get(line); ok {
//		...
//	}
package differ

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"gitgutter/internal/intern"
	"gitgutter/internal/linediff"
)

// DefaultDebounce is the quiet period the worker waits for after the last
// update before it recomputes the diff.
const DefaultDebounce = 100 * time.Millisecond

// LineDiff classifies a line of the document relative to the diff base.
type LineDiff uint8

const (
	// Added marks a line that only exists in the document.
	Added LineDiff = iota + 1
	// Deleted marks the line that follows removed base lines. A marker at the
	// document's line count anchors deletions at the end of the file.
	Deleted
	// Modified marks a line that replaced one or more base lines.
	Modified
)

func (d LineDiff) String() string {
	switch d {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return fmt.Sprintf("LineDiff(%d)", uint8(d))
	}
}

// LineDiffs maps document line indices (0-based) to their classification.
// Unchanged lines have no entry.
type LineDiffs map[int]LineDiff

// LineChange is one entry of a LineDiffs.
type LineChange struct {
	Line int
	Kind LineDiff
}

func (l LineDiffs) Get(line int) (LineDiff, bool) {
	kind, ok := l[line]
	return kind, ok
}

// Sorted returns the entries ordered by line.
func (l LineDiffs) Sorted() []LineChange {
	out := make([]LineChange, 0, len(l))
	for line, kind := range l {
		out = append(out, LineChange{Line: line, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Line < out[j].Line
	})
	return out
}

// Differ is the handle to a diff worker. It is safe for concurrent use; copies
// of the pointer share the same worker.
type Differ struct {
	mailbox   *mailbox
	published *publication
	done      chan struct{}
}

type settings struct {
	debounce  time.Duration
	algorithm linediff.Algorithm
	limits    intern.Limits
	logger    zerolog.Logger
	diff      diffFunc
}

// diffFunc has the signature of linediff.Diff.
type diffFunc func(alg linediff.Algorithm, in *intern.Input, fn func(before, after linediff.Range))

// Option customizes a Differ created by New.
type Option func(*settings)

// WithDebounce sets the quiet period before a recomputation. Negative values
// are ignored.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithAlgorithm selects the line diff algorithm. The default is Myers.
func WithAlgorithm(alg linediff.Algorithm) Option {
	return func(s *settings) { s.algorithm = alg }
}

// WithLimits bounds the combined input size above which the diff is skipped.
func WithLimits(limits intern.Limits) Option {
	return func(s *settings) { s.limits = limits }
}

// WithLogger sets the logger for worker state changes and failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// New starts a worker for the given diff base and document. The worker
// publishes the diff of exactly these texts before it looks at any update.
func New(diffBase, doc string, opts ...Option) *Differ {
	cfg := settings{
		debounce:  DefaultDebounce,
		algorithm: linediff.Myers,
		limits:    intern.DefaultLimits(),
		logger:    zerolog.Nop(),
		diff:      linediff.Diff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Differ{
		mailbox:   newMailbox(),
		published: newPublication(),
		done:      make(chan struct{}),
	}
	w := &worker{
		mailbox:   d.mailbox,
		published: d.published,
		done:      d.done,
		debounce:  cfg.debounce,
		algorithm: cfg.algorithm,
		limits:    cfg.limits,
		diff:      cfg.diff,
		log:       cfg.logger.With().Str("component", "differ").Logger(),
	}
	go w.run(diffBase, doc)
	// The worker holds no reference to d.
	runtime.AddCleanup(d, func(m *mailbox) { m.close() }, d.mailbox)
	return d
}

// UpdateDocument queues a new document text. It reports false once the worker
// is gone, after which further updates are pointless.
func (d *Differ) UpdateDocument(doc string) bool {
	return d.mailbox.push(event{kind: eventDocument, text: doc})
}

// UpdateDiffBase queues a new diff base. It has the same contract as
// UpdateDocument.
func (d *Differ) UpdateDiffBase(diffBase string) bool {
	return d.mailbox.push(event{kind: eventDiffBase, text: diffBase})
}

// LineDiffs returns the most recently published diff. The caller must call
// Release exactly once when it no longer reads the snapshot.
func (d *Differ) LineDiffs() *Snapshot {
	return d.published.acquire()
}

// Close stops accepting updates. Updates that were already queued are still
// diffed and published before the worker exits. An unreachable Differ is
// closed by the garbage collector.
func (d *Differ) Close() {
	d.mailbox.close()
}

// Done is closed once the worker has exited.
func (d *Differ) Done() <-chan struct{} {
	return d.done
}
