// Package bufferpool implements the fixed-size page cache that sits
// between the executor kernel and a DiskManager: page fetch, pin/unpin
// reference counting, dirty-writeback, allocation and deletion, backed by
// an LRUReplacer for victim selection.
package bufferpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/relkit/relkit/internal/storage"
)

var (
	// ErrPoolExhausted is returned by NewPage/FetchPage when every frame
	// is pinned and there is nothing to evict.
	ErrPoolExhausted = errors.New("bufferpool: no free frame available (all pinned)")
)

const logPrefix = "bufferpool: "

// Manager is the buffer pool's public surface.
type Manager struct {
	disk storage.DiskManager

	numInstances  uint32
	instanceIndex uint32

	mu        sync.Mutex
	frames    []*Frame
	pageTable map[uint32]FrameID
	freeList  []FrameID
	replacer  Replacer
	nextPage  uint32
}

// NewManager creates a single-instance buffer pool of poolSize frames
// backed by disk.
func NewManager(poolSize int, disk storage.DiskManager) *Manager {
	return NewStripedManager(poolSize, disk, 1, 0)
}

// NewStripedManager creates one instance of a sharded buffer pool: page
// ids it allocates satisfy id mod numInstances == instanceIndex.
func NewStripedManager(poolSize int, disk storage.DiskManager, numInstances, instanceIndex uint32) *Manager {
	if numInstances == 0 {
		panic("bufferpool: numInstances must be > 0")
	}
	if instanceIndex >= numInstances {
		panic("bufferpool: instanceIndex must be < numInstances")
	}

	frames := make([]*Frame, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := range frames {
		frames[i] = newFrame()
		freeList[i] = FrameID(i)
	}

	return &Manager{
		disk:          disk,
		numInstances:  numInstances,
		instanceIndex: instanceIndex,
		frames:        frames,
		pageTable:     make(map[uint32]FrameID),
		freeList:      freeList,
		replacer:      NewLRUReplacer(poolSize),
		nextPage:      instanceIndex,
	}
}

// PoolSize returns the fixed number of frames this manager owns.
func (m *Manager) PoolSize() int { return len(m.frames) }

// pickVictimLocked selects a frame to reuse for a new page: the free list
// first, then the replacer. Caller must hold m.mu.
func (m *Manager) pickVictimLocked() (FrameID, bool) {
	if n := len(m.freeList); n > 0 {
		id := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return id, true
	}
	return m.replacer.Victim()
}

// evictLocked flushes frame f if dirty and removes its page-table entry.
// Caller must hold m.mu.
func (m *Manager) evictLocked(frameID FrameID) error {
	f := m.frames[frameID]
	if f.PageID == storage.InvalidPageID {
		return nil
	}
	if f.IsDirty {
		if err := m.disk.WritePage(f.PageID, f.Data); err != nil {
			return fmt.Errorf("bufferpool: flush victim page %d: %w", f.PageID, err)
		}
	}
	delete(m.pageTable, f.PageID)
	return nil
}

// NewPage allocates a fresh page, pins it once, and returns its id plus
// the frame backing it. Returns ErrPoolExhausted if every frame is pinned.
func (m *Manager) NewPage() (uint32, *Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pickVictimLocked()
	if !ok {
		slog.Debug(logPrefix + "NewPage: pool exhausted")
		return 0, nil, ErrPoolExhausted
	}

	pageID := m.allocatePageLocked()

	if err := m.evictLocked(frameID); err != nil {
		return 0, nil, err
	}

	f := m.frames[frameID]
	f.reset()
	f.PageID = pageID
	f.PinCount = 1

	m.pageTable[pageID] = frameID
	m.replacer.Pin(frameID)

	slog.Debug(logPrefix+"NewPage", "pageID", pageID, "frameID", frameID)
	return pageID, f, nil
}

// FetchPage brings pageID into memory (if not already resident) and pins
// it. Returns ErrPoolExhausted if the page is not resident and no frame
// can be freed for it.
func (m *Manager) FetchPage(pageID uint32) (*Frame, error) {
	if pageID == storage.InvalidPageID {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if frameID, ok := m.pageTable[pageID]; ok {
		f := m.frames[frameID]
		if f.PinCount == 0 {
			m.replacer.Pin(frameID)
		}
		f.PinCount++
		slog.Debug(logPrefix+"FetchPage: hit", "pageID", pageID, "frameID", frameID, "pinCount", f.PinCount)
		return f, nil
	}

	frameID, ok := m.pickVictimLocked()
	if !ok {
		slog.Debug(logPrefix+"FetchPage: pool exhausted", "pageID", pageID)
		return nil, ErrPoolExhausted
	}
	if err := m.evictLocked(frameID); err != nil {
		return nil, err
	}

	f := m.frames[frameID]
	f.reset()
	if err := m.disk.ReadPage(pageID, f.Data); err != nil {
		return nil, fmt.Errorf("bufferpool: read page %d: %w", pageID, err)
	}
	f.PageID = pageID
	f.PinCount = 1

	m.pageTable[pageID] = frameID
	m.replacer.Pin(frameID)

	slog.Debug(logPrefix+"FetchPage: loaded from disk", "pageID", pageID, "frameID", frameID)
	return f, nil
}

// UnpinPage decrements pageID's pin count and ORs dirty into its sticky
// dirty flag. Returns false if pageID is invalid, not resident, or
// already has a pin count of zero.
func (m *Manager) UnpinPage(pageID uint32, dirty bool) bool {
	if pageID == storage.InvalidPageID {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return false
	}
	f := m.frames[frameID]
	if f.PinCount == 0 {
		return false
	}

	f.IsDirty = f.IsDirty || dirty
	f.PinCount--
	if f.PinCount == 0 {
		m.replacer.Unpin(frameID)
	}

	slog.Debug(logPrefix+"UnpinPage", "pageID", pageID, "pinCount", f.PinCount, "dirty", f.IsDirty)
	return true
}

// FlushPage writes pageID's bytes to disk and clears its dirty flag.
// Flushing a pinned page is legal. Returns false if pageID is invalid or
// not resident.
func (m *Manager) FlushPage(pageID uint32) bool {
	if pageID == storage.InvalidPageID {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return false
	}
	f := m.frames[frameID]
	if err := m.disk.WritePage(pageID, f.Data); err != nil {
		slog.Error(logPrefix+"FlushPage failed", "pageID", pageID, "err", err)
		return false
	}
	f.IsDirty = false
	return true
}

// FlushAllPages writes every resident page to disk and clears all dirty flags.
func (m *Manager) FlushAllPages() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pageID, frameID := range m.pageTable {
		f := m.frames[frameID]
		if err := m.disk.WritePage(pageID, f.Data); err != nil {
			slog.Error(logPrefix+"FlushAllPages: write failed", "pageID", pageID, "err", err)
			continue
		}
		f.IsDirty = false
	}
}

// DeletePage removes pageID from the pool. It is idempotent: deleting an
// absent or invalid page returns true. It returns false if the page is
// currently pinned. A deleted page is zeroed, not flushed — whatever it
// held has no durable content worth preserving — and its frame id is
// returned to the free list.
func (m *Manager) DeletePage(pageID uint32) bool {
	if pageID == storage.InvalidPageID {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return true
	}
	f := m.frames[frameID]
	if f.PinCount != 0 {
		return false
	}

	delete(m.pageTable, pageID)
	m.replacer.Pin(frameID) // make sure it is not also tracked as a victim
	f.reset()
	m.freeList = append(m.freeList, frameID)

	m.deallocatePageLocked(pageID)
	slog.Debug(logPrefix+"DeletePage", "pageID", pageID, "frameID", frameID)
	return true
}

// AllocatePage reserves the next page id for this instance without
// bringing a frame into the pool. NewPage calls this internally; exported
// for a caller that needs an id before any page content exists.
func (m *Manager) AllocatePage() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocatePageLocked()
}

// DeallocatePage notifies the allocator that pageID's on-disk slot may be
// reclaimed. DeletePage calls this internally; exported for a caller that
// frees a page without going through DeletePage.
func (m *Manager) DeallocatePage(pageID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deallocatePageLocked(pageID)
}

// allocatePageLocked returns the next page id for this instance and
// advances the striping counter. Caller must hold m.mu.
func (m *Manager) allocatePageLocked() uint32 {
	id := m.nextPage
	m.nextPage += m.numInstances
	m.validatePageID(id)
	return id
}

func (m *Manager) validatePageID(pageID uint32) {
	if pageID%m.numInstances != m.instanceIndex {
		panic(fmt.Sprintf("bufferpool: striping invariant violated: page %d mod %d != %d",
			pageID, m.numInstances, m.instanceIndex))
	}
}

// deallocatePageLocked notifies the allocator that pageID's on-disk slot
// may be reclaimed. This reference implementation has no free-space map
// to update; the hook exists for a higher layer (or a future instance)
// that does.
func (m *Manager) deallocatePageLocked(pageID uint32) {
	slog.Debug(logPrefix+"DeallocatePage", "pageID", pageID)
}
