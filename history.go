package hfsm

import (
	"sync"

	"github.com/enetx/g"
)

// history is the append-only transition log of one machine. A positive limit
// keeps only the most recent records.
type history[C any] struct {
	records g.Slice[Record[C]]
	limit   int
	mu      sync.RWMutex
}

func (h *history[C]) push(r Record[C]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records.Push(r)

	if h.limit > 0 && len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:].Clone()
	}
}

func (h *history[C]) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = nil
}

func (h *history[C]) replace(records g.Slice[Record[C]]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = records.Clone()

	if h.limit > 0 && len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
}

func (h *history[C]) list() g.Slice[Record[C]] {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.records.Clone()
}
