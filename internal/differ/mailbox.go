package differ

import (
	"sync"
	"time"
)

type eventKind uint8

const (
	eventDocument eventKind = iota
	eventDiffBase
)

type event struct {
	kind eventKind
	text string
}

type recvStatus uint8

const (
	recvEvent recvStatus = iota
	recvTimeout
	recvClosed
)

// mailbox is an unbounded multi-producer, single-consumer queue. Producers
// never block on a slow consumer.
type mailbox struct {
	mu     sync.Mutex
	items  []event
	closed bool
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) push(e event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, e)
	m.mu.Unlock()
	m.wake()
	return true
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wake()
}

func (m *mailbox) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// recv returns the next queued event. Queued events are delivered even after
// close; recvClosed is only reported once the queue is empty. A nil timeout
// waits indefinitely.
func (m *mailbox) recv(timeout <-chan time.Time) (event, recvStatus) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			e := m.items[0]
			m.items[0] = event{}
			m.items = m.items[1:]
			if len(m.items) == 0 {
				m.items = nil
			}
			m.mu.Unlock()
			return e, recvEvent
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return event{}, recvClosed
		}

		select {
		case <-m.notify:
		case <-timeout:
			return event{}, recvTimeout
		}
	}
}
