// Package txn models the state an in-flight transaction needs for the
// executor kernel's lock-aware operators: its isolation level, the locks
// it currently holds, and the index writes it has made so an abort (not
// implemented by this module) would know what to undo.
package txn

import (
	"github.com/relkit/relkit/internal/heap"
	"github.com/relkit/relkit/internal/index"
)

// IsolationLevel controls how long SeqScan holds shared locks.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// IndexWriteType identifies what an IndexWrite undoes.
type IndexWriteType int

const (
	// IndexWriteDelete records an index entry removed by a row delete.
	IndexWriteDelete IndexWriteType = iota
)

// IndexWrite records one index mutation made on behalf of a transaction,
// along with the full row it was derived from, so a future abort can
// reconstruct what to reinsert rather than just which key to look up.
type IndexWrite struct {
	IndexName     string
	Op            IndexWriteType
	Key           index.Key
	OriginalTuple []any
	Rid           heap.Rid
}

// Transaction tracks one executor-visible unit of work.
type Transaction struct {
	ID        uint64
	isolation IsolationLevel

	sharedLocks    map[heap.Rid]struct{}
	exclusiveLocks map[heap.Rid]struct{}
	indexWrites    []IndexWrite
}

// New creates a transaction with the given id and isolation level.
func New(id uint64, isolation IsolationLevel) *Transaction {
	return &Transaction{
		ID:             id,
		isolation:      isolation,
		sharedLocks:    make(map[heap.Rid]struct{}),
		exclusiveLocks: make(map[heap.Rid]struct{}),
	}
}

func (t *Transaction) IsolationLevel() IsolationLevel { return t.isolation }

func (t *Transaction) AddSharedLock(rid heap.Rid)    { t.sharedLocks[rid] = struct{}{} }
func (t *Transaction) RemoveSharedLock(rid heap.Rid) { delete(t.sharedLocks, rid) }
func (t *Transaction) HasSharedLock(rid heap.Rid) bool {
	_, ok := t.sharedLocks[rid]
	return ok
}

func (t *Transaction) AddExclusiveLock(rid heap.Rid)    { t.exclusiveLocks[rid] = struct{}{} }
func (t *Transaction) RemoveExclusiveLock(rid heap.Rid) { delete(t.exclusiveLocks, rid) }
func (t *Transaction) HasExclusiveLock(rid heap.Rid) bool {
	_, ok := t.exclusiveLocks[rid]
	return ok
}

// AppendIndexWrite records an index mutation made during this transaction.
func (t *Transaction) AppendIndexWrite(w IndexWrite) {
	t.indexWrites = append(t.indexWrites, w)
}

// IndexWrites returns every index mutation recorded so far.
func (t *Transaction) IndexWrites() []IndexWrite {
	return t.indexWrites
}
