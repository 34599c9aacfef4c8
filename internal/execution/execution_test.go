package execution

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/internal/bufferpool"
	"github.com/relkit/relkit/internal/catalog"
	"github.com/relkit/relkit/internal/index"
	"github.com/relkit/relkit/internal/lockmgr"
	"github.com/relkit/relkit/internal/record"
	"github.com/relkit/relkit/internal/storage"
	"github.com/relkit/relkit/internal/txn"
)

func setup(t *testing.T, isolation txn.IsolationLevel) (*Context, *catalog.TableInfo, *index.HashIndex) {
	t.Helper()
	bpm := bufferpool.NewManager(16, storage.NewInMemoryDiskManager())
	cat := catalog.NewCatalog(bpm)

	schema := record.Schema{
		Cols: []record.Column{
			{Name: "id", Type: record.ColInt64},
			{Name: "name", Type: record.ColText},
		},
	}
	info, err := cat.CreateTable("users", schema)
	require.NoError(t, err)

	idx := index.NewHashIndex()
	_, err = cat.CreateIndex("idx_id", "users", []string{"id"}, idx)
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		rid, err := info.Heap.Insert([]any{i, "user"})
		require.NoError(t, err)
		require.NoError(t, idx.InsertEntry(index.Key{i}, rid))
	}

	ctx := &Context{
		Catalog:     cat,
		Txn:         txn.New(1, isolation),
		LockManager: lockmgr.New(),
	}
	return ctx, info, idx
}

func drainScan(scan *SeqScan) []Row {
	var rows []Row
	for {
		row, ok := scan.Next()
		if !ok {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestSeqScan_ProjectsAndFilters(t *testing.T) {
	ctx, _, _ := setup(t, txn.RepeatableRead)

	scan, err := NewSeqScan(ctx, "users", func(row []any) bool {
		return row[0].(int64) >= 3
	}, []int{0})
	require.NoError(t, err)

	rows := drainScan(scan)
	var ids []int64
	for _, r := range rows {
		require.Len(t, r.Values, 1)
		ids = append(ids, r.Values[0].(int64))
	}
	require.Equal(t, []int64{3, 4, 5}, ids)
}

func TestSeqScan_RepeatableRead_RetainsSharedLocks(t *testing.T) {
	ctx, _, _ := setup(t, txn.RepeatableRead)

	scan, err := NewSeqScan(ctx, "users", nil, nil)
	require.NoError(t, err)
	rows := drainScan(scan)
	require.Len(t, rows, 5)

	for _, r := range rows {
		require.True(t, ctx.Txn.HasSharedLock(r.Rid))
	}
}

func TestSeqScan_ReadCommitted_ReleasesSharedLockImmediately(t *testing.T) {
	ctx, _, _ := setup(t, txn.ReadCommitted)

	scan, err := NewSeqScan(ctx, "users", nil, nil)
	require.NoError(t, err)
	rows := drainScan(scan)
	require.Len(t, rows, 5)

	for _, r := range rows {
		require.False(t, ctx.Txn.HasSharedLock(r.Rid))
	}
}

func TestSeqScan_ReadUncommitted_NeverLocks(t *testing.T) {
	ctx, _, _ := setup(t, txn.ReadUncommitted)

	scan, err := NewSeqScan(ctx, "users", nil, nil)
	require.NoError(t, err)
	rows := drainScan(scan)
	require.Len(t, rows, 5)

	for _, r := range rows {
		require.False(t, ctx.Txn.HasSharedLock(r.Rid))
		require.False(t, ctx.Txn.HasExclusiveLock(r.Rid))
	}
}

func TestDelete_RemovesRowAndIndexEntry_UnderReadCommitted(t *testing.T) {
	ctx, _, idx := setup(t, txn.ReadCommitted)

	scan, err := NewSeqScan(ctx, "users", func(row []any) bool {
		return row[0].(int64) == 3
	}, nil)
	require.NoError(t, err)

	del, err := NewDelete(ctx, "users", scan)
	require.NoError(t, err)

	_, ok := del.Next()
	require.True(t, ok)

	_, ok = del.Next()
	require.False(t, ok, "only one row matches the predicate")

	rids, err := idx.ScanEqual(index.Key{int64(3)})
	require.NoError(t, err)
	require.Empty(t, rids)

	require.Len(t, ctx.Txn.IndexWrites(), 1)
	require.Equal(t, "idx_id", ctx.Txn.IndexWrites()[0].IndexName)

	// Row 3 is gone, the rest remain.
	verify, err := NewSeqScan(ctx, "users", nil, []int{0})
	require.NoError(t, err)
	rows := drainScan(verify)
	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.Values[0].(int64))
	}
	require.Equal(t, []int64{1, 2, 4, 5}, ids)
}

func TestDelete_ExclusiveLockReleasedUnderReadCommitted(t *testing.T) {
	ctx, _, idx := setup(t, txn.ReadCommitted)

	before, err := idx.ScanEqual(index.Key{int64(1)})
	require.NoError(t, err)
	require.Len(t, before, 1)
	rid := before[0]

	scan, err := NewSeqScan(ctx, "users", func(row []any) bool {
		return row[0].(int64) == 1
	}, nil)
	require.NoError(t, err)

	del, err := NewDelete(ctx, "users", scan)
	require.NoError(t, err)

	_, ok := del.Next()
	require.True(t, ok)

	require.False(t, ctx.Txn.HasExclusiveLock(rid))

	// The lock must already be released: another transaction can take it.
	other := txn.New(2, txn.ReadCommitted)
	require.NoError(t, ctx.LockManager.LockExclusive(other, rid))
}

func TestDelete_RepeatableRead_RetainsExclusiveLock(t *testing.T) {
	ctx, _, idx := setup(t, txn.RepeatableRead)

	before, err := idx.ScanEqual(index.Key{int64(2)})
	require.NoError(t, err)
	require.Len(t, before, 1)
	rid := before[0]

	scan, err := NewSeqScan(ctx, "users", func(row []any) bool {
		return row[0].(int64) == 2
	}, nil)
	require.NoError(t, err)

	del, err := NewDelete(ctx, "users", scan)
	require.NoError(t, err)

	_, ok := del.Next()
	require.True(t, ok)

	require.True(t, ctx.Txn.HasExclusiveLock(rid))

	after, err := idx.ScanEqual(index.Key{int64(2)})
	require.NoError(t, err)
	require.Empty(t, after)
}
