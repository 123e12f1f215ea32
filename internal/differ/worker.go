package differ

import (
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"gitgutter/internal/intern"
	"gitgutter/internal/linediff"
)

type workerState uint8

const (
	stateInitializing workerState = iota
	stateIdle
	stateDraining
	stateComputing
	stateTerminated
)

func (s workerState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateIdle:
		return "idle"
	case stateDraining:
		return "draining"
	case stateComputing:
		return "computing"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// worker is the only goroutine that touches the texts, the interner and the
// map under construction.
type worker struct {
	mailbox   *mailbox
	published *publication
	done      chan struct{}

	debounce  time.Duration
	algorithm linediff.Algorithm
	limits    intern.Limits
	diff      diffFunc
	log       zerolog.Logger

	interner *intern.Interner
	next     LineDiffs
}

func (w *worker) run(diffBase, doc string) {
	defer close(w.done)
	// Updates submitted after the worker is gone must report failure.
	defer w.mailbox.close()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("diff worker stopped; last published diff is kept")
		}
	}()

	var (
		acc     accumulator
		closing bool
	)
	state := stateInitializing
	for {
		w.log.Trace().Stringer("state", state).Msg("worker state")
		switch state {
		case stateInitializing:
			w.interner = intern.New(diffBase, doc, w.limits)
			w.compute()
			state = stateIdle

		case stateIdle:
			e, status := w.mailbox.recv(nil)
			if status == recvClosed {
				state = stateTerminated
				continue
			}
			acc = accumulator{}
			acc.add(e)
			state = stateDraining

		case stateDraining:
			closing = acc.drain(w.mailbox, w.debounce)
			state = stateComputing

		case stateComputing:
			w.log.Debug().
				Int("events", acc.events).
				Bool("diff_base", acc.hasDiffBase).
				Msg("applying coalesced updates")
			acc.apply(w.interner)
			acc = accumulator{}
			w.compute()
			if closing {
				state = stateTerminated
			} else {
				state = stateIdle
			}

		case stateTerminated:
			w.log.Debug().Msg("diff worker terminated")
			return
		}
	}
}

func (w *worker) compute() {
	start := time.Now()
	if w.next == nil {
		w.next = make(LineDiffs)
	}

	if input, ok := w.interner.Lines(); ok {
		w.diff(w.algorithm, input, w.addBlock)
	} else {
		w.log.Debug().
			Int("max_lines", w.limits.MaxLines).
			Int("max_bytes", w.limits.MaxBytes).
			Msg("input exceeds diff budget; publishing empty diff")
	}

	changed := len(w.next)
	w.next = w.published.publish(w.next)
	w.log.Debug().
		Int("changes", changed).
		Bool("reclaimed", w.next != nil).
		Dur("took", time.Since(start)).
		Msg("published line diff")
}

func (w *worker) addBlock(before, after linediff.Range) {
	if after.Empty() {
		w.next[after.Start] = Deleted
		return
	}
	kind := Modified
	if before.Empty() {
		kind = Added
	}
	for line := after.Start; line < after.End; line++ {
		w.next[line] = kind
	}
}
