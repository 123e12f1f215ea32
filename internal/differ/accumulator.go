package differ

import (
	"time"

	"gitgutter/internal/intern"
)

// accumulator merges a burst of events. Only the newest text of each kind is
// kept; intermediate documents are never diffed.
type accumulator struct {
	diffBase    string
	hasDiffBase bool
	doc         string
	hasDoc      bool
	events      int
}

func (a *accumulator) add(e event) {
	a.events++
	switch e.kind {
	case eventDocument:
		a.doc = e.text
		a.hasDoc = true
	case eventDiffBase:
		a.diffBase = e.text
		a.hasDiffBase = true
	}
}

// drain keeps merging events until the mailbox has been quiet for a full
// window. Every received event restarts the window. It reports whether the
// mailbox was closed while draining.
func (a *accumulator) drain(m *mailbox, window time.Duration) (closed bool) {
	timer := time.NewTimer(window)
	defer timer.Stop()
	for {
		e, status := m.recv(timer.C)
		switch status {
		case recvTimeout:
			return false
		case recvClosed:
			return true
		}
		a.add(e)
		timer.Reset(window)
	}
}

// apply hands the merged texts to the interner. A new diff base carries the
// newest document, or the interner's current one if none arrived.
func (a *accumulator) apply(in *intern.Interner) {
	switch {
	case a.hasDiffBase:
		doc := in.Document()
		if a.hasDoc {
			doc = a.doc
		}
		in.UpdateDiffBase(a.diffBase, doc)
	case a.hasDoc:
		in.UpdateDocument(a.doc)
	}
}
