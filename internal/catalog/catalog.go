// Package catalog tracks table and index definitions by name so the
// executor kernel can resolve a scan or delete target into a heap and its
// indexes without the SQL layer this module does not include.
package catalog

import (
	"fmt"
	"sync"

	"github.com/relkit/relkit/internal/bufferpool"
	"github.com/relkit/relkit/internal/heap"
	"github.com/relkit/relkit/internal/index"
	"github.com/relkit/relkit/internal/record"
)

// TableInfo is everything the executor needs to read and write one table.
type TableInfo struct {
	Name   string
	Schema record.Schema
	Heap   *heap.TableHeap
}

// IndexInfo binds an Index to the table and key columns it was built over.
type IndexInfo struct {
	Name       string
	TableName  string
	KeyColumns []string
	Index      index.Index
}

// Catalog is the process-local registry of tables and indexes.
type Catalog struct {
	bpm *bufferpool.Manager

	mu      sync.RWMutex
	tables  map[string]*TableInfo
	indexes map[string][]*IndexInfo // by table name
}

// NewCatalog creates an empty catalog backed by bpm for new table storage.
func NewCatalog(bpm *bufferpool.Manager) *Catalog {
	return &Catalog{
		bpm:     bpm,
		tables:  make(map[string]*TableInfo),
		indexes: make(map[string][]*IndexInfo),
	}
}

// CreateTable allocates a fresh heap and registers it under name.
func (c *Catalog) CreateTable(name string, schema record.Schema) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}

	h, err := heap.NewTableHeap(c.bpm, schema)
	if err != nil {
		return nil, fmt.Errorf("catalog: create table %q: %w", name, err)
	}

	info := &TableInfo{Name: name, Schema: schema, Heap: h}
	c.tables[name] = info
	return info, nil
}

// GetTable resolves a table by name.
func (c *Catalog) GetTable(name string) (*TableInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tables[name]
	return info, ok
}

// CreateIndex registers idx over tableName's keyColumns, in key order.
func (c *Catalog) CreateIndex(indexName, tableName string, keyColumns []string, idx index.Index) (*IndexInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[tableName]; !ok {
		return nil, fmt.Errorf("catalog: table %q does not exist", tableName)
	}

	info := &IndexInfo{Name: indexName, TableName: tableName, KeyColumns: keyColumns, Index: idx}
	c.indexes[tableName] = append(c.indexes[tableName], info)
	return info, nil
}

// GetTableIndexes returns every index registered over tableName.
func (c *Catalog) GetTableIndexes(tableName string) []*IndexInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src := c.indexes[tableName]
	out := make([]*IndexInfo, len(src))
	copy(out, src)
	return out
}
