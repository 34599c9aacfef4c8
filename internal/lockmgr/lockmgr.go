// Package lockmgr implements row-level shared/exclusive locking for the
// executor kernel's SeqScan and Delete operators.
package lockmgr

import (
	"errors"
	"sync"

	"github.com/relkit/relkit/internal/heap"
	"github.com/relkit/relkit/internal/txn"
)

var (
	ErrConflict        = errors.New("lockmgr: row is exclusively locked by another transaction")
	ErrUpgradeConflict = errors.New("lockmgr: cannot upgrade while another transaction holds a shared lock")
	ErrNotLocked       = errors.New("lockmgr: transaction does not hold a lock on this row")
)

// rowLock is the lock state for a single rid.
type rowLock struct {
	mu             sync.Mutex
	exclusiveOwner *txn.Transaction
	sharedOwners   map[*txn.Transaction]struct{}
}

// LockManager grants and releases per-row locks. It does not detect
// deadlocks or block: conflicting callers get an error back immediately,
// matching a non-blocking reference lock manager used for teaching.
type LockManager struct {
	mu   sync.Mutex
	rows map[heap.Rid]*rowLock
}

// New creates an empty lock manager.
func New() *LockManager {
	return &LockManager{rows: make(map[heap.Rid]*rowLock)}
}

func (lm *LockManager) rowFor(rid heap.Rid) *rowLock {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	rl, ok := lm.rows[rid]
	if !ok {
		rl = &rowLock{sharedOwners: make(map[*txn.Transaction]struct{})}
		lm.rows[rid] = rl
	}
	return rl
}

// LockShared acquires a shared lock on rid for t. Read-uncommitted
// transactions never take shared locks, matching their "dirty read" semantics.
func (lm *LockManager) LockShared(t *txn.Transaction, rid heap.Rid) error {
	if t.IsolationLevel() == txn.ReadUncommitted {
		return nil
	}

	rl := lm.rowFor(rid)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.exclusiveOwner != nil && rl.exclusiveOwner != t {
		return ErrConflict
	}
	if _, ok := rl.sharedOwners[t]; !ok {
		rl.sharedOwners[t] = struct{}{}
		t.AddSharedLock(rid)
	}
	return nil
}

// LockExclusive acquires an exclusive lock on rid for t. It fails if any
// other transaction holds any lock on rid.
func (lm *LockManager) LockExclusive(t *txn.Transaction, rid heap.Rid) error {
	rl := lm.rowFor(rid)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.exclusiveOwner != nil && rl.exclusiveOwner != t {
		return ErrConflict
	}
	for owner := range rl.sharedOwners {
		if owner != t {
			return ErrConflict
		}
	}
	rl.exclusiveOwner = t
	t.AddExclusiveLock(rid)
	return nil
}

// LockUpgrade promotes t's shared lock on rid to exclusive. It fails if any
// other transaction also holds a shared lock on rid.
func (lm *LockManager) LockUpgrade(t *txn.Transaction, rid heap.Rid) error {
	rl := lm.rowFor(rid)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for owner := range rl.sharedOwners {
		if owner != t {
			return ErrUpgradeConflict
		}
	}
	if rl.exclusiveOwner != nil && rl.exclusiveOwner != t {
		return ErrConflict
	}

	if _, ok := rl.sharedOwners[t]; ok {
		delete(rl.sharedOwners, t)
		t.RemoveSharedLock(rid)
	}
	rl.exclusiveOwner = t
	t.AddExclusiveLock(rid)
	return nil
}

// Unlock releases whatever lock t holds on rid.
func (lm *LockManager) Unlock(t *txn.Transaction, rid heap.Rid) error {
	rl := lm.rowFor(rid)
	rl.mu.Lock()
	defer rl.mu.Unlock()

	released := false
	if rl.exclusiveOwner == t {
		rl.exclusiveOwner = nil
		t.RemoveExclusiveLock(rid)
		released = true
	}
	if _, ok := rl.sharedOwners[t]; ok {
		delete(rl.sharedOwners, t)
		t.RemoveSharedLock(rid)
		released = true
	}
	if !released {
		return ErrNotLocked
	}
	return nil
}
