// Package execution implements the pull-based executor kernel: operators
// that each expose a Next method returning one row at a time, composed by
// wiring a consumer's child field to a producer.
package execution

import (
	"github.com/relkit/relkit/internal/catalog"
	"github.com/relkit/relkit/internal/heap"
	"github.com/relkit/relkit/internal/lockmgr"
	"github.com/relkit/relkit/internal/txn"
)

// Row is one tuple flowing through the executor tree, paired with the rid
// it came from so downstream operators (Delete, an update, an index probe)
// can act on the exact stored row.
type Row struct {
	Values []any
	Rid    heap.Rid
}

// Executor is the pull-based iterator contract every operator implements.
type Executor interface {
	// Next produces the next row, or ok=false once the operator is exhausted
	// or a lock request has failed.
	Next() (row Row, ok bool)
}

// Context bundles the collaborators an operator needs to resolve a table,
// evaluate locks against a transaction, and record undo-relevant writes.
// LockManager may be nil, meaning "no locking" per the consumed contract.
type Context struct {
	Catalog     *catalog.Catalog
	Txn         *txn.Transaction
	LockManager *lockmgr.LockManager
}

func project(row []any, columns []int) []any {
	if columns == nil {
		out := make([]any, len(row))
		copy(out, row)
		return out
	}
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = row[c]
	}
	return out
}
