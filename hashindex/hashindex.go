// Package hashindex implements FrameIndex: the buffer pool's reverse
// lookup from (file identity, page number) to frame number. It is an
// open-addressed hash table (linear probing) keyed by a 64-bit hash of
// the file pointer and page number, giving amortized O(1) Lookup,
// Insert, and Remove — the only requirement the spec places on it
// (§4.2, §6.2).
package hashindex

import (
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/LunaBestPone/dbbufmgr/file"
)

const (
	// defaultLoadFactor matches the BufHashTbl sizing formula from the
	// original source this spec distills from: capacity = 1.2*N + 1.
	defaultLoadFactorNum   = 12
	defaultLoadFactorDenom = 10

	maxLoadFactorPercent = 75
)

type key struct {
	f      *file.File
	pageNo uint64
}

type slot struct {
	key      key
	frameNo  int
	occupied bool
	tomb     bool // deleted, but kept to not break probe chains
}

// FrameIndex is the (file, pageNo) -> frameNo reverse index.
type FrameIndex struct {
	slots []slot
	count int // occupied, non-tombstone entries
	used  int // occupied + tombstone, drives resize decisions
}

// New builds a FrameIndex sized for n frames, per the original's
// "1.2*N + 1" capacity formula.
func New(n uint32) *FrameIndex {
	cap := int(uint64(n)*defaultLoadFactorNum/defaultLoadFactorDenom) + 1
	if cap < 1 {
		cap = 1
	}
	return &FrameIndex{slots: make([]slot, cap)}
}

func hash(k key) uint64 {
	var buf [16]byte
	ptr := uint64(uintptr(unsafe.Pointer(k.f)))
	buf[0] = byte(ptr)
	buf[1] = byte(ptr >> 8)
	buf[2] = byte(ptr >> 16)
	buf[3] = byte(ptr >> 24)
	buf[4] = byte(ptr >> 32)
	buf[5] = byte(ptr >> 40)
	buf[6] = byte(ptr >> 48)
	buf[7] = byte(ptr >> 56)
	buf[8] = byte(k.pageNo)
	buf[9] = byte(k.pageNo >> 8)
	buf[10] = byte(k.pageNo >> 16)
	buf[11] = byte(k.pageNo >> 24)
	buf[12] = byte(k.pageNo >> 32)
	buf[13] = byte(k.pageNo >> 40)
	buf[14] = byte(k.pageNo >> 48)
	buf[15] = byte(k.pageNo >> 56)
	return xxhash.Sum64(buf[:])
}

// Lookup returns the frame number the (f, pageNo) key maps to, and
// whether it was found. A miss is an ordinary, expected outcome (not an
// error) since ReadPage misses and Unpin/Dispose-on-absent-page are both
// on the hot path — see SPEC_FULL §6.2.
func (idx *FrameIndex) Lookup(f *file.File, pageNo uint64) (int, bool) {
	k := key{f, pageNo}
	i, found := idx.find(k)
	if !found {
		return 0, false
	}
	return idx.slots[i].frameNo, true
}

// Insert adds a (f, pageNo) -> frameNo mapping. Precondition: the key is
// absent (callers always Lookup or Remove first; see bufferpool).
func (idx *FrameIndex) Insert(f *file.File, pageNo uint64, frameNo int) {
	if idx.used*100 >= len(idx.slots)*maxLoadFactorPercent {
		idx.grow()
	}

	k := key{f, pageNo}
	h := hash(k) % uint64(len(idx.slots))
	for i := uint64(0); i < uint64(len(idx.slots)); i++ {
		pos := (h + i) % uint64(len(idx.slots))
		s := &idx.slots[pos]
		if !s.occupied {
			wasTomb := s.tomb
			*s = slot{key: k, frameNo: frameNo, occupied: true}
			idx.count++
			if !wasTomb {
				idx.used++
			}
			return
		}
	}
	// Unreachable under the load-factor guard above, but grow and retry
	// defensively rather than silently dropping the insert.
	idx.grow()
	idx.Insert(f, pageNo, frameNo)
}

// Remove deletes the (f, pageNo) mapping, if present, and reports whether
// it was found.
func (idx *FrameIndex) Remove(f *file.File, pageNo uint64) bool {
	k := key{f, pageNo}
	i, found := idx.find(k)
	if !found {
		return false
	}
	idx.slots[i] = slot{tomb: true, occupied: false}
	idx.count--
	return true
}

// find returns the slot index holding k, and whether it was found. Probes
// past tombstones so earlier deletes don't break later lookups.
func (idx *FrameIndex) find(k key) (int, bool) {
	n := uint64(len(idx.slots))
	h := hash(k) % n
	for i := uint64(0); i < n; i++ {
		pos := (h + i) % n
		s := &idx.slots[pos]
		if !s.occupied && !s.tomb {
			return 0, false
		}
		if s.occupied && s.key == k {
			return int(pos), true
		}
	}
	return 0, false
}

// grow doubles capacity and rehashes every live entry, dropping
// tombstones in the process.
func (idx *FrameIndex) grow() {
	old := idx.slots
	idx.slots = make([]slot, len(old)*2)
	idx.count = 0
	idx.used = 0
	for _, s := range old {
		if s.occupied {
			idx.Insert(s.key.f, s.key.pageNo, s.frameNo)
		}
	}
}

// Len reports the number of live entries.
func (idx *FrameIndex) Len() int {
	return idx.count
}
