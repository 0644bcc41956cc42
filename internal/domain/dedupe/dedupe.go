// Package dedupe tracks recently seen frame ids so a frame is analyzed at
// most once.
package dedupe

import (
	"context"
	"sync"
)

// DefaultMaxSize bounds the remembered ids.
const DefaultMaxSize = 50000

// Deduper records seen frame ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if
	// not, atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a frame rejected downstream (a full queue) can
	// be resubmitted.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type slot struct {
	id  string
	seq uint64
}

// inMemoryDeduper keeps ids in a ring and evicts the oldest first. Unrecord
// leaves a stale slot behind, skipped at eviction by its sequence number.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64
	ring    []slot
	head    int
	used    int
	seq     uint64
	maxSize int
}

// NewInMemoryDeduper creates a bounded FIFO deduper. A non-positive max
// size keeps every id.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seq++
	if d.ring == nil {
		d.seen[id] = d.seq
		return false
	}
	for len(d.seen) >= d.maxSize || d.used == len(d.ring) {
		d.evictOldest()
	}
	d.ring[(d.head+d.used)%len(d.ring)] = slot{id: id, seq: d.seq}
	d.used++
	d.seen[id] = d.seq
	return false
}

// evictOldest drops the ring head. Called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	s := d.ring[d.head]
	if cur, ok := d.seen[s.id]; ok && cur == s.seq {
		delete(d.seen, s.id)
	}
	d.ring[d.head] = slot{}
	d.head = (d.head + 1) % len(d.ring)
	d.used--
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
