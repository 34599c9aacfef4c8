// Package heap implements the on-disk row store: a singly linked chain of
// slotted pages per table, addressed by Rid, with a forward-only iterator
// that the executor's SeqScan pulls from.
package heap

import (
	"errors"
	"fmt"

	"github.com/relkit/relkit/internal/bufferpool"
	"github.com/relkit/relkit/internal/record"
	"github.com/relkit/relkit/internal/storage"
)

// Rid (row id) identifies one tuple's slot in a table's page chain.
type Rid struct {
	PageID uint32
	Slot   uint16
}

// IsValid reports whether r could plausibly name a stored tuple.
func (r Rid) IsValid() bool { return r.PageID != storage.InvalidPageID }

// TableHeap is a table's row storage: pages linked via Page.NextPageID,
// each holding rows encoded by the schema's Record codec.
type TableHeap struct {
	bpm         *bufferpool.Manager
	schema      record.Schema
	firstPageID uint32
}

// NewTableHeap allocates the first page of a brand-new, empty table.
func NewTableHeap(bpm *bufferpool.Manager, schema record.Schema) (*TableHeap, error) {
	pageID, frame, err := bpm.NewPage()
	if err != nil {
		return nil, fmt.Errorf("heap: allocate first page: %w", err)
	}
	storage.NewPage(frame.Data, pageID)
	bpm.UnpinPage(pageID, true)

	return &TableHeap{bpm: bpm, schema: schema, firstPageID: pageID}, nil
}

// OpenTableHeap resumes an existing table whose first page is already on disk.
func OpenTableHeap(bpm *bufferpool.Manager, schema record.Schema, firstPageID uint32) *TableHeap {
	return &TableHeap{bpm: bpm, schema: schema, firstPageID: firstPageID}
}

// FirstPageID is the entry point of this table's page chain, for catalog persistence.
func (h *TableHeap) FirstPageID() uint32 { return h.firstPageID }

// Insert encodes values and appends them to the table, walking the page
// chain for room and growing it by one page when every existing page is full.
func (h *TableHeap) Insert(values []any) (Rid, error) {
	tuple, err := record.EncodeRow(h.schema, values)
	if err != nil {
		return Rid{}, err
	}

	pageID := h.firstPageID
	for {
		frame, err := h.bpm.FetchPage(pageID)
		if err != nil {
			return Rid{}, fmt.Errorf("heap: fetch page %d: %w", pageID, err)
		}
		page := storage.Page{Buf: frame.Data}

		slot, err := page.InsertTuple(tuple)
		if err == nil {
			h.bpm.UnpinPage(pageID, true)
			return Rid{PageID: pageID, Slot: uint16(slot)}, nil
		}
		if !errors.Is(err, storage.ErrNoSpace) {
			h.bpm.UnpinPage(pageID, false)
			return Rid{}, err
		}

		next := page.NextPageID()
		if next != storage.InvalidPageID {
			h.bpm.UnpinPage(pageID, false)
			pageID = next
			continue
		}

		newPageID, newFrame, err := h.bpm.NewPage()
		if err != nil {
			h.bpm.UnpinPage(pageID, false)
			return Rid{}, fmt.Errorf("heap: grow chain: %w", err)
		}
		storage.NewPage(newFrame.Data, newPageID)
		page.SetNextPageID(newPageID)
		h.bpm.UnpinPage(pageID, true)
		h.bpm.UnpinPage(newPageID, true)
		pageID = newPageID
	}
}

// Get decodes the tuple at rid.
func (h *TableHeap) Get(rid Rid) ([]any, error) {
	frame, err := h.bpm.FetchPage(rid.PageID)
	if err != nil {
		return nil, fmt.Errorf("heap: fetch page %d: %w", rid.PageID, err)
	}
	page := storage.Page{Buf: frame.Data}
	raw, err := page.ReadTuple(int(rid.Slot))
	h.bpm.UnpinPage(rid.PageID, false)
	if err != nil {
		return nil, err
	}
	return record.DecodeRow(h.schema, raw)
}

// Update replaces the tuple at rid in place, growing its slot's span if needed.
func (h *TableHeap) Update(rid Rid, values []any) error {
	tuple, err := record.EncodeRow(h.schema, values)
	if err != nil {
		return err
	}

	frame, err := h.bpm.FetchPage(rid.PageID)
	if err != nil {
		return fmt.Errorf("heap: fetch page %d: %w", rid.PageID, err)
	}
	page := storage.Page{Buf: frame.Data}
	err = page.UpdateTuple(int(rid.Slot), tuple)
	h.bpm.UnpinPage(rid.PageID, err == nil)
	return err
}

// MarkDelete tombstones the tuple at rid. The slot's space is not reclaimed.
func (h *TableHeap) MarkDelete(rid Rid) error {
	frame, err := h.bpm.FetchPage(rid.PageID)
	if err != nil {
		return fmt.Errorf("heap: fetch page %d: %w", rid.PageID, err)
	}
	page := storage.Page{Buf: frame.Data}
	err = page.DeleteTuple(int(rid.Slot))
	h.bpm.UnpinPage(rid.PageID, err == nil)
	return err
}

// Begin returns an iterator positioned before the first tuple of the table.
func (h *TableHeap) Begin() *TableIterator {
	return &TableIterator{heap: h, pageID: h.firstPageID, slot: 0}
}

// TableIterator walks a TableHeap's page chain in rid order, skipping
// tombstoned slots. It holds no page pinned between Next calls.
type TableIterator struct {
	heap *TableHeap

	pageID uint32
	slot   int

	done    bool
	current []any
	rid     Rid
}

// Next advances to the next live tuple and reports whether one was found.
func (it *TableIterator) Next() bool {
	if it.done {
		return false
	}

	for {
		frame, err := it.heap.bpm.FetchPage(it.pageID)
		if err != nil {
			it.done = true
			return false
		}
		page := storage.Page{Buf: frame.Data}
		numSlots := page.NumSlots()

		if it.slot >= numSlots {
			next := page.NextPageID()
			it.heap.bpm.UnpinPage(it.pageID, false)
			if next == storage.InvalidPageID {
				it.done = true
				return false
			}
			it.pageID = next
			it.slot = 0
			continue
		}

		raw, err := page.ReadTuple(it.slot)
		rid := Rid{PageID: it.pageID, Slot: uint16(it.slot)}
		it.slot++
		if errors.Is(err, storage.ErrBadSlot) {
			it.heap.bpm.UnpinPage(it.pageID, false)
			continue
		}
		if err != nil {
			it.heap.bpm.UnpinPage(it.pageID, false)
			it.done = true
			return false
		}

		row, err := record.DecodeRow(it.heap.schema, raw)
		it.heap.bpm.UnpinPage(it.pageID, false)
		if err != nil {
			it.done = true
			return false
		}

		it.current = row
		it.rid = rid
		return true
	}
}

// Tuple returns the row most recently returned by Next.
func (it *TableIterator) Tuple() []any { return it.current }

// Rid returns the row id of the row most recently returned by Next.
func (it *TableIterator) Rid() Rid { return it.rid }
