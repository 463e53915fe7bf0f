package mesh

import "math/bits"

func trailingZeros(x uint64) int { return bits.TrailingZeros64(x) }

// IDIndex is a dense id -> index table, max 256 entries (spec §4.2 "Id
// indexing"). Built once per job tile by scanning its columns, then reused
// read-only by every chunk within that tile.
type IDIndex struct {
	slot [256]int16
	ids  []uint8
}

// NewIDIndex returns an empty table.
func NewIDIndex() *IDIndex {
	t := &IDIndex{}
	for i := range t.slot {
		t.slot[i] = -1
	}
	return t
}

// IndexOf returns id's dense index, assigning it the next free index on
// first sight.
func (t *IDIndex) IndexOf(id uint8) int {
	if t.slot[id] < 0 {
		t.slot[id] = int16(len(t.ids))
		t.ids = append(t.ids, id)
	}
	return int(t.slot[id])
}

// Count returns how many distinct ids have been indexed.
func (t *IDIndex) Count() int { return len(t.ids) }

// ID returns the material id at dense index i.
func (t *IDIndex) ID(i int) uint8 { return t.ids[i] }

// Reset clears the table for reuse with a new job tile.
func (t *IDIndex) Reset() {
	for i := range t.slot {
		t.slot[i] = -1
	}
	t.ids = t.ids[:0]
}
