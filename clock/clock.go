// Package clock implements the buffer pool's replacement policy: clock
// (second-chance) victim selection over a caller-owned set of frame
// descriptors (spec §4.3).
package clock

import "github.com/pkg/errors"

// ErrAllFramesPinned is returned by SelectVictim when every frame was
// observed pinned throughout a full sweep — no frame can be reclaimed.
var ErrAllFramesPinned = errors.New("all frames pinned")

// Descriptor is the minimal view of a frame the policy needs. The
// bufferpool package's frameDescriptor satisfies this directly.
type Descriptor interface {
	Valid() bool
	Pinned() bool
	RefBit() bool
	ClearRefBit()
}

// Policy is the clock hand and its sweep state. It holds no frame data of
// its own; the frames are supplied at construction and their ref bits
// are cleared in place.
type Policy struct {
	frames []Descriptor
	hand   int
}

// New builds a clock policy over exactly the given frames, in frame-number
// order (frames[i] must be frame i). The hand starts at n-1 so the first
// advance lands on frame 0, matching the original source.
func New(frames []Descriptor) *Policy {
	n := len(frames)
	hand := n - 1
	if hand < 0 {
		hand = 0
	}
	return &Policy{frames: frames, hand: hand}
}

func (p *Policy) advance() int {
	p.hand = (p.hand + 1) % len(p.frames)
	return p.hand
}

// SelectVictim runs one clock sweep and returns the frame number chosen
// for eviction. It only classifies and advances the hand (clearing ref
// bits along the way); it never touches file I/O, the index, or dirty
// write-back — those are BufferPool's job once it has a victim frame
// number, since they require calling out to the file layer.
//
// The search fails with ErrAllFramesPinned iff, at some instant, all
// frames were simultaneously pinned for the duration of an attempt: the
// counter below counts pinned frames seen in a row since the streak's
// origin, and restarts whenever a ref bit is cleared. Only a run of n
// consecutive pinned frames, i.e. one whole sweep in which every frame
// was pinned with its ref bit already clear, ends the search; any
// unpinned frame met along the way is selected instead.
func (p *Policy) SelectVictim() (int, error) {
	n := len(p.frames)
	origin := -1
	pinnedSinceOrigin := 0

	for {
		idx := p.advance()
		f := p.frames[idx]

		if !f.Valid() {
			return idx, nil
		}

		if f.RefBit() {
			f.ClearRefBit()
			origin = -1
			pinnedSinceOrigin = 0
			continue
		}

		if f.Pinned() {
			if origin == -1 {
				origin = idx
				pinnedSinceOrigin = 0
			}
			pinnedSinceOrigin++
			if pinnedSinceOrigin >= n {
				return 0, ErrAllFramesPinned
			}
			continue
		}

		return idx, nil
	}
}
