package differ

import (
	"math"
	"sync/atomic"
)

// retired is stored in a snapshot's reference count once the worker has
// reclaimed its map. It is far enough below zero that racing readers can never
// bring the count back to a live value.
const retired = math.MinInt32 / 2

// version is one published generation of the diff, shared by every reader
// that acquired it.
type version struct {
	diffs      LineDiffs
	generation uint64
	refs       atomic.Int32
}

// Snapshot is a reader's hold on one published generation. Each Snapshot
// returned by LineDiffs is released once; further calls to Release are no-ops.
// It must not be read after Release.
type Snapshot struct {
	v        *version
	released atomic.Bool
}

// Generation increases by one with every published diff. The placeholder
// published before the first diff completes is generation 0.
func (s *Snapshot) Generation() uint64 { return s.v.generation }

func (s *Snapshot) Len() int { return len(s.v.diffs) }

func (s *Snapshot) Get(line int) (LineDiff, bool) {
	kind, ok := s.v.diffs[line]
	return kind, ok
}

// Range calls fn for each entry in unspecified order until fn returns false.
func (s *Snapshot) Range(fn func(line int, kind LineDiff) bool) {
	for line, kind := range s.v.diffs {
		if !fn(line, kind) {
			return
		}
	}
}

func (s *Snapshot) Sorted() []LineChange {
	return s.v.diffs.Sorted()
}

// Clone copies the entries into a map the caller owns.
func (s *Snapshot) Clone() LineDiffs {
	out := make(LineDiffs, len(s.v.diffs))
	for line, kind := range s.v.diffs {
		out[line] = kind
	}
	return out
}

// Release drops the reader's reference. Only the first call counts, so a
// repeated Release can neither starve other readers nor let the worker reuse
// a map that is still being read.
func (s *Snapshot) Release() {
	if s.released.CompareAndSwap(false, true) {
		s.v.refs.Add(-1)
	}
}

// publication holds the current snapshot. The publication itself owns one
// reference to the current snapshot; every reader adds one while it reads.
type publication struct {
	current    atomic.Pointer[version]
	generation uint64
}

func newPublication() *publication {
	p := &publication{}
	v := &version{diffs: LineDiffs{}}
	v.refs.Store(1)
	p.current.Store(v)
	return p
}

func (p *publication) acquire() *Snapshot {
	for {
		v := p.current.Load()
		if v.refs.Add(1) > 1 {
			return &Snapshot{v: v}
		}
		// Lost the race against retirement: the pointer has already been
		// replaced, so reloading makes progress.
		v.refs.Add(-1)
	}
}

// publish replaces the current snapshot. Only the worker calls it. When no
// reader holds the previous snapshot its map is cleared and returned for
// reuse; otherwise nil is returned.
func (p *publication) publish(diffs LineDiffs) LineDiffs {
	p.generation++
	next := &version{diffs: diffs, generation: p.generation}
	next.refs.Store(1)

	prev := p.current.Swap(next)
	if !prev.refs.CompareAndSwap(1, retired) {
		return nil
	}
	clear(prev.diffs)
	return prev.diffs
}
