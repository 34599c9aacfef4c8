package bufferpool

import "github.com/relkit/relkit/internal/storage"

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID int

// Frame is an in-memory slot that can hold one page at a time, plus the
// metadata the pool needs to manage it: which page it holds, how many
// callers are pinning it, and whether its bytes diverge from disk.
type Frame struct {
	PageID   uint32
	Data     []byte
	PinCount uint32
	IsDirty  bool
}

func newFrame() *Frame {
	return &Frame{
		PageID: storage.InvalidPageID,
		Data:   make([]byte, storage.PageSize),
	}
}

// reset clears the frame back to its just-allocated state: zeroed bytes,
// no page, not dirty, not pinned.
func (f *Frame) reset() {
	for i := range f.Data {
		f.Data[i] = 0
	}
	f.PageID = storage.InvalidPageID
	f.PinCount = 0
	f.IsDirty = false
}
