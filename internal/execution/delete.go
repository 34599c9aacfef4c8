package execution

import (
	"fmt"

	"github.com/relkit/relkit/internal/catalog"
	"github.com/relkit/relkit/internal/index"
	"github.com/relkit/relkit/internal/txn"
)

// Delete pulls rows from child and tombstones each one in its table heap,
// maintaining every index registered over that table. It never emits a
// row of its own; Next's Row is meaningless on a successful true return.
type Delete struct {
	ctx     *Context
	table   *catalog.TableInfo
	indexes []*catalog.IndexInfo
	child   Executor
}

// NewDelete resolves tableName's TableInfo and indexes and wires child as
// the source of rows to delete. child must yield full, unprojected rows in
// table-schema column order so index key columns can be located by name.
func NewDelete(ctx *Context, tableName string, child Executor) (*Delete, error) {
	info, ok := ctx.Catalog.GetTable(tableName)
	if !ok {
		return nil, fmt.Errorf("execution: unknown table %q", tableName)
	}
	return &Delete{
		ctx:     ctx,
		table:   info,
		indexes: ctx.Catalog.GetTableIndexes(tableName),
		child:   child,
	}, nil
}

// Next implements Executor.
func (d *Delete) Next() (Row, bool) {
	in, ok := d.child.Next()
	if !ok {
		return Row{}, false
	}
	rid := in.Rid

	if d.ctx.LockManager != nil {
		var err error
		switch {
		case d.ctx.Txn.HasExclusiveLock(rid):
			// already holds what is needed
		case d.ctx.Txn.HasSharedLock(rid):
			err = d.ctx.LockManager.LockUpgrade(d.ctx.Txn, rid)
		default:
			err = d.ctx.LockManager.LockExclusive(d.ctx.Txn, rid)
		}
		if err != nil {
			return Row{}, false
		}
	}

	if err := d.table.Heap.MarkDelete(rid); err != nil {
		return Row{}, false
	}

	for _, idx := range d.indexes {
		key := keyFor(d.table, idx, in.Values)
		_ = idx.Index.DeleteEntry(key, rid)
		d.ctx.Txn.AppendIndexWrite(txn.IndexWrite{
			IndexName:     idx.Name,
			Op:            txn.IndexWriteDelete,
			Key:           key,
			OriginalTuple: in.Values,
			Rid:           rid,
		})
	}

	if d.ctx.LockManager != nil && d.ctx.Txn.IsolationLevel() == txn.ReadCommitted {
		_ = d.ctx.LockManager.Unlock(d.ctx.Txn, rid)
	}

	return Row{}, true
}

// keyFor derives an index's key tuple from a full data tuple by looking up
// each of the index's key columns by name, in key-schema order.
func keyFor(table *catalog.TableInfo, idx *catalog.IndexInfo, values []any) index.Key {
	key := make(index.Key, len(idx.KeyColumns))
	for k, colName := range idx.KeyColumns {
		if i, ok := table.Schema.ColumnIndex(colName); ok {
			key[k] = values[i]
		}
	}
	return key
}
