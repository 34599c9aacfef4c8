// Package index implements secondary-index structures over heap tables.
package index

import "github.com/relkit/relkit/internal/heap"

// Key is an index key tuple: one value per key column, in key-schema order.
type Key []any

// Index maps key tuples to the rids of rows holding them.
type Index interface {
	InsertEntry(key Key, rid heap.Rid) error
	DeleteEntry(key Key, rid heap.Rid) error
	ScanEqual(key Key) ([]heap.Rid, error)
}
