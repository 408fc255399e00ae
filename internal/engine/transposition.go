package engine

import (
	"sync"
	"sync/atomic"

	"github.com/hailam/athena/internal/board"
)

// Bound says how a stored score relates to the true value of the node.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundExact       // principal variation node
	BoundLower       // failed high
	BoundUpper       // failed low
)

func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	}
	return "none"
}

const (
	ttShardCount = 256
	ttShardMask  = ttShardCount - 1
	ttEntryBytes = 16
)

// TTEntry is one slot of the transposition table.
type TTEntry struct {
	Key        uint64
	Move       board.Move
	Score      int16
	Depth      int8
	Bound      Bound
	Generation uint8
}

// TranspositionTable is a fixed-size hash of search results shared by all
// workers. Slots are guarded by sharded locks.
type TranspositionTable struct {
	entries    []TTEntry
	shards     [ttShardCount]sync.RWMutex
	mask       uint64
	generation atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable allocates a table of at most sizeMB megabytes,
// rounded down to a power-of-two number of entries.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	if sizeMB < 1 {
		sizeMB = 1
	}
	n := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / ttEntryBytes)
	return newTableEntries(n)
}

func newTableEntries(n uint64) *TranspositionTable {
	return &TranspositionTable{
		entries: make([]TTEntry, n),
		mask:    n - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe returns the entry stored for key, if any.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	tt.probes.Add(1)

	idx := key & tt.mask
	shard := &tt.shards[idx&ttShardMask]
	shard.RLock()
	e := tt.entries[idx]
	shard.RUnlock()

	if e.Bound == BoundNone || e.Key != key {
		return TTEntry{}, false
	}
	tt.hits.Add(1)
	return e, true
}

// Store writes a result into the slot for key. The slot is overwritten when
// it is empty, was written by an older search or holds a strictly shallower
// result. An entry for the same key from this search is only refreshed by a
// result at least as deep, or by an exact one.
func (tt *TranspositionTable) Store(key uint64, depth, score int, bound Bound, m board.Move) {
	idx := key & tt.mask
	shard := &tt.shards[idx&ttShardMask]
	gen := uint8(tt.generation.Load())

	shard.Lock()
	e := &tt.entries[idx]
	replace := e.Bound == BoundNone || e.Generation != gen || int(e.Depth) < depth
	if e.Key == key && (depth == int(e.Depth) || bound == BoundExact) {
		replace = true
	}
	if replace {
		if m == board.NoMove && e.Key == key {
			m = e.Move
		}
		*e = TTEntry{
			Key:        key,
			Move:       m,
			Score:      int16(score),
			Depth:      int8(depth),
			Bound:      bound,
			Generation: gen,
		}
	}
	shard.Unlock()
}

// NewSearch advances the generation so entries from earlier searches become
// replaceable.
func (tt *TranspositionTable) NewSearch() {
	tt.generation.Add(1)
}

// Clear empties every slot.
func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		tt.shards[i].Lock()
	}
	clear(tt.entries)
	for i := range tt.shards {
		tt.shards[i].Unlock()
	}
	tt.generation.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HashFull estimates the permille of slots written by the current search.
func (tt *TranspositionTable) HashFull() int {
	sample := min(1000, len(tt.entries))
	gen := uint8(tt.generation.Load())
	used := 0
	for i := 0; i < sample; i++ {
		shard := &tt.shards[uint64(i)&ttShardMask]
		shard.RLock()
		e := tt.entries[i]
		shard.RUnlock()
		if e.Bound != BoundNone && e.Generation == gen {
			used++
		}
	}
	return used * 1000 / sample
}

// HitRate returns the percentage of probes that found an entry.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of slots.
func (tt *TranspositionTable) Size() int {
	return len(tt.entries)
}
