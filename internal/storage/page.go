package storage

import "encoding/binary"

var le = binary.LittleEndian

// Page is a slotted-page view over a frame's raw byte buffer:
//
//	+------------------+ 0
//	| header           |
//	| line pointers []  | <-- lower, grows down the page
//	+------------------+
//	|   free space     |
//	+------------------+ <-- upper, grows up from the bottom
//	|   tuple bytes    |
//	+------------------+ PageSize
//
// Page never allocates; it is a thin view over a []byte owned by a Frame.
type Page struct {
	Buf []byte
}

// NewPage wraps buf (which must be PageSize bytes) and initializes its
// header for pageID.
func NewPage(buf []byte, pageID uint32) Page {
	p := Page{Buf: buf}
	p.Init(pageID)
	return p
}

// Init zeroes the page and writes a fresh header for pageID.
func (p Page) Init(pageID uint32) {
	for i := range p.Buf {
		p.Buf[i] = 0
	}
	le.PutUint16(p.Buf[0:], 0)
	le.PutUint32(p.Buf[2:], pageID)
	p.setLower(HeaderSize)
	p.setUpper(PageSize)
	p.SetNextPageID(InvalidPageID)
}

func (p Page) PageID() uint32 {
	return le.Uint32(p.Buf[2:])
}

// NextPageID returns the id of the next page in this page's heap chain, or
// InvalidPageID if it is the last page. Stored in the header's reserved
// region so a heap file can grow across pages without a separate directory.
func (p Page) NextPageID() uint32 {
	return le.Uint32(p.Buf[10:])
}

func (p Page) SetNextPageID(pageID uint32) {
	le.PutUint32(p.Buf[10:], pageID)
}

func (p Page) IsUninitialized() bool {
	return p.lower() == 0 && p.upper() == 0
}

func (p Page) lower() int { return int(le.Uint16(p.Buf[6:])) }
func (p Page) upper() int { return int(le.Uint16(p.Buf[8:])) }

func (p Page) setLower(v int) { le.PutUint16(p.Buf[6:], uint16(v)) }
func (p Page) setUpper(v int) { le.PutUint16(p.Buf[8:], uint16(v)) }

// NumSlots returns the number of line pointers ever allocated, including
// deleted ones (deletion is a tombstone, not a slot removal).
func (p Page) NumSlots() int {
	return (p.lower() - HeaderSize) / SlotSize
}

const (
	slotFlagNone    = 0
	slotFlagDeleted = 1
)

func (p Page) slotOffset(i int) int { return HeaderSize + i*SlotSize }

func (p Page) getSlot(i int) (offset, length, flags int) {
	o := p.slotOffset(i)
	return int(le.Uint16(p.Buf[o:])), int(le.Uint16(p.Buf[o+2:])), int(le.Uint16(p.Buf[o+4:]))
}

func (p Page) putSlot(i, offset, length, flags int) {
	o := p.slotOffset(i)
	le.PutUint16(p.Buf[o:], uint16(offset))
	le.PutUint16(p.Buf[o+2:], uint16(length))
	le.PutUint16(p.Buf[o+4:], uint16(flags))
}

// InsertTuple appends tup to the page's free space and returns its slot
// index, or ErrNoSpace if there is not enough room for the tuple plus a
// new line pointer.
func (p Page) InsertTuple(tup []byte) (int, error) {
	needed := len(tup) + SlotSize
	if p.upper()-p.lower() < needed {
		return -1, ErrNoSpace
	}
	newUpper := p.upper() - len(tup)
	copy(p.Buf[newUpper:], tup)
	p.setUpper(newUpper)

	slot := p.NumSlots()
	p.putSlot(slot, newUpper, len(tup), slotFlagNone)
	p.setLower(p.lower() + SlotSize)
	return slot, nil
}

// ReadTuple returns the bytes stored at slot, or ErrBadSlot if the slot
// does not exist or was deleted.
func (p Page) ReadTuple(slot int) ([]byte, error) {
	if slot < 0 || slot >= p.NumSlots() {
		return nil, ErrBadSlot
	}
	offset, length, flags := p.getSlot(slot)
	if flags == slotFlagDeleted {
		return nil, ErrBadSlot
	}
	return p.Buf[offset : offset+length], nil
}

// UpdateTuple overwrites slot in place when the new tuple fits in the
// existing line-pointer span, otherwise it re-inserts the tuple and
// repoints the slot.
func (p Page) UpdateTuple(slot int, newTuple []byte) error {
	if slot < 0 || slot >= p.NumSlots() {
		return ErrBadSlot
	}
	offset, length, flags := p.getSlot(slot)
	if flags == slotFlagDeleted {
		return ErrBadSlot
	}
	if len(newTuple) <= length {
		copy(p.Buf[offset:], newTuple)
		p.putSlot(slot, offset, len(newTuple), slotFlagNone)
		return nil
	}
	newSlot, err := p.InsertTuple(newTuple)
	if err != nil {
		return err
	}
	o, l, _ := p.getSlot(newSlot)
	p.putSlot(slot, o, l, slotFlagNone)
	// newSlot was just appended as the last line pointer; fold it back in
	// now that its data is reachable through slot instead.
	p.setLower(p.lower() - SlotSize)
	return nil
}

// DeleteTuple tombstones slot; the space is not reclaimed.
func (p Page) DeleteTuple(slot int) error {
	if slot < 0 || slot >= p.NumSlots() {
		return ErrBadSlot
	}
	_, _, flags := p.getSlot(slot)
	if flags == slotFlagDeleted {
		return ErrBadSlot
	}
	p.putSlot(slot, 0, 0, slotFlagDeleted)
	return nil
}
