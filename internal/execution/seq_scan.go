package execution

import (
	"fmt"

	"github.com/relkit/relkit/internal/heap"
	"github.com/relkit/relkit/internal/txn"
)

// Predicate reports whether a stored row (in table-schema column order)
// should be emitted. A nil predicate emits every row.
type Predicate func(row []any) bool

// SeqScan walks a table's heap in rid order, applying an optional
// predicate and projecting to an output column list, taking isolation-
// level-gated shared locks as it goes.
type SeqScan struct {
	ctx    *Context
	table  string
	pred   Predicate
	output []int // indices into the table schema; nil means every column

	it *heap.TableIterator
}

// NewSeqScan resolves tableName against the context's catalog and
// positions an iterator before the first tuple.
func NewSeqScan(ctx *Context, tableName string, pred Predicate, output []int) (*SeqScan, error) {
	info, ok := ctx.Catalog.GetTable(tableName)
	if !ok {
		return nil, fmt.Errorf("execution: unknown table %q", tableName)
	}
	return &SeqScan{
		ctx:    ctx,
		table:  tableName,
		pred:   pred,
		output: output,
		it:     info.Heap.Begin(),
	}, nil
}

// Next implements Executor.
func (s *SeqScan) Next() (Row, bool) {
	for {
		if !s.it.Next() {
			return Row{}, false
		}
		row := s.it.Tuple()
		if s.pred != nil && !s.pred(row) {
			continue
		}

		rid := s.it.Rid()
		if s.ctx.LockManager != nil && s.ctx.Txn.IsolationLevel() != txn.ReadUncommitted {
			if !s.ctx.Txn.HasSharedLock(rid) && !s.ctx.Txn.HasExclusiveLock(rid) {
				if err := s.ctx.LockManager.LockShared(s.ctx.Txn, rid); err != nil {
					return Row{}, false
				}
			}
		}

		out := project(row, s.output)

		if s.ctx.LockManager != nil && s.ctx.Txn.IsolationLevel() == txn.ReadCommitted {
			_ = s.ctx.LockManager.Unlock(s.ctx.Txn, rid)
		}

		return Row{Values: out, Rid: rid}, true
	}
}
