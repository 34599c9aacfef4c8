package index

import (
	"fmt"
	"sync"

	"github.com/relkit/relkit/internal/heap"
)

// HashIndex is an in-memory equality index: one hash bucket per distinct
// key tuple, holding every rid currently indexed under it. It supports
// DeleteEntry, which the Delete operator calls to keep indexes consistent
// with tombstoned rows.
type HashIndex struct {
	mu      sync.RWMutex
	buckets map[string][]heap.Rid
}

var _ Index = (*HashIndex)(nil)

// NewHashIndex creates an empty index.
func NewHashIndex() *HashIndex {
	return &HashIndex{buckets: make(map[string][]heap.Rid)}
}

// encode turns a key tuple into a comparable map key. Slices are not
// comparable in Go, so the tuple is flattened to its formatted form —
// adequate for the fixed-width/text column types this module supports.
func encode(key Key) string {
	return fmt.Sprint([]any(key))
}

func (h *HashIndex) InsertEntry(key Key, rid heap.Rid) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	k := encode(key)
	h.buckets[k] = append(h.buckets[k], rid)
	return nil
}

func (h *HashIndex) DeleteEntry(key Key, rid heap.Rid) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := encode(key)
	bucket := h.buckets[k]
	for i, r := range bucket {
		if r == rid {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			break
		}
	}
	if len(bucket) == 0 {
		delete(h.buckets, k)
	} else {
		h.buckets[k] = bucket
	}
	return nil
}

func (h *HashIndex) ScanEqual(key Key) ([]heap.Rid, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	bucket := h.buckets[encode(key)]
	out := make([]heap.Rid, len(bucket))
	copy(out, bucket)
	return out, nil
}
