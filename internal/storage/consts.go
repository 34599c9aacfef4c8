// Package storage holds the fixed-size page representation shared by the
// buffer pool manager and the heap files it backs.
package storage

import "errors"

const (
	// PageSize is the fixed size, in bytes, of every page and frame.
	PageSize = 4096

	// HeaderSize is the fixed-size page header: flags(2) + pageID(4) +
	// lower(2) + upper(2) + reserved(14).
	HeaderSize = 24

	// SlotSize is the size of one line-pointer entry: offset(2) + length(2) + flags(2).
	SlotSize = 6
)

// InvalidPageID is the sentinel meaning "no page".
const InvalidPageID uint32 = 1<<32 - 1

var (
	ErrNoSpace  = errors.New("storage: page has no space for tuple")
	ErrBadSlot  = errors.New("storage: slot is empty or deleted")
	ErrBadInput = errors.New("storage: input buffer has the wrong size")
)
