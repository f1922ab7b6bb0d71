package bufferpool

import "github.com/LunaBestPone/dbbufmgr/file"

// frameDescriptor is the per-frame metadata the spec's §4.1 state machine
// is defined over. A frame's payload bytes live alongside it in
// BufferPool.buffers; the descriptor only tracks identity and state.
type frameDescriptor struct {
	frameNo int
	file    *file.File // non-owning; never closed by the pool
	pageNo  uint64
	valid   bool
	dirty   bool
	pinned  uint32
	refBit  bool
}

// reset clears a descriptor back to the invalid-state invariant
// (spec §3 invariant 1: ¬valid ⇒ ¬dirty ∧ pinCount=0 ∧ ¬refBit).
func (d *frameDescriptor) reset() {
	d.file = nil
	d.pageNo = 0
	d.valid = false
	d.dirty = false
	d.pinned = 0
	d.refBit = false
}

// install transitions an empty frame straight to Resident-Pinned, per
// spec §4.1's Install operation.
func (d *frameDescriptor) install(f *file.File, pageNo uint64) {
	d.file = f
	d.pageNo = pageNo
	d.valid = true
	d.dirty = false
	d.pinned = 1
	d.refBit = true
}

// The clock.Descriptor interface, satisfied directly so the replacement
// policy can operate on these descriptors without the pool exposing its
// internal frame slice more broadly than it needs to.
func (d *frameDescriptor) Valid() bool  { return d.valid }
func (d *frameDescriptor) Pinned() bool { return d.pinned > 0 }
func (d *frameDescriptor) RefBit() bool { return d.refBit }
func (d *frameDescriptor) ClearRefBit() { d.refBit = false }
