// Package bufferpool is the public façade of the storage engine's buffer
// pool manager (spec §4.4): it coordinates the frame array, the clock
// replacement policy, and the reverse frame index, and is the only
// component that is allowed to call into the file layer's I/O methods.
package bufferpool

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LunaBestPone/dbbufmgr/clock"
	"github.com/LunaBestPone/dbbufmgr/file"
	"github.com/LunaBestPone/dbbufmgr/hashindex"
	"github.com/LunaBestPone/dbbufmgr/metrics"
	"github.com/LunaBestPone/dbbufmgr/page"
)

// Sentinel errors, wrapped with call-specific context at each raise site
// via github.com/pkg/errors so callers can still errors.Is against these.
var (
	// ErrAllFramesPinned is raised when no frame is available for
	// eviction — every frame was pinned throughout a full clock sweep.
	ErrAllFramesPinned = clock.ErrAllFramesPinned

	// ErrPageNotPinned is raised by UnpinPage on a resident frame whose
	// pin count is already zero.
	ErrPageNotPinned = errors.New("page not pinned")

	// ErrPagePinned is raised by FlushFile when it encounters a pinned
	// frame belonging to the file being flushed.
	ErrPagePinned = errors.New("page pinned")

	// ErrBadBuffer is raised by FlushFile when the index maps a frame to
	// the target file but the frame's descriptor says invalid —
	// structural corruption between the index and the frame table.
	ErrBadBuffer = errors.New("bad buffer: index/descriptor mismatch")
)

// BufferPool owns a fixed number of in-memory page frames and mediates
// every access to them. It is safe for concurrent use: every public
// method is guarded by a single mutex, matching the teacher's own
// BufferManager (the minimum contract spec §5 requires of a
// multi-goroutine host).
type BufferPool struct {
	mu sync.Mutex

	descs   []*frameDescriptor
	buffers []*page.Page
	index   *hashindex.FrameIndex
	policy  *clock.Policy

	log     *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a BufferPool at construction.
type Option func(*BufferPool)

// WithLogger attaches a structured logger. Defaults to zap.NewNop() when
// not supplied.
func WithLogger(l *zap.Logger) Option {
	return func(bp *BufferPool) { bp.log = l }
}

// WithMetrics attaches a metrics sink. Metrics calls are nil-safe, so
// omitting this option simply disables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(bp *BufferPool) { bp.metrics = m }
}

// New constructs a buffer pool with n frames, n >= 1.
func New(n uint32, opts ...Option) *BufferPool {
	if n < 1 {
		panic("bufferpool: frame count must be at least 1")
	}

	bp := &BufferPool{
		descs:   make([]*frameDescriptor, n),
		buffers: make([]*page.Page, n),
		index:   hashindex.New(n),
		log:     zap.NewNop(),
	}

	clockFrames := make([]clock.Descriptor, n)
	for i := range bp.descs {
		bp.descs[i] = &frameDescriptor{frameNo: i}
		bp.buffers[i] = page.New(page.Size)
		clockFrames[i] = bp.descs[i]
	}
	bp.policy = clock.New(clockFrames)

	for _, opt := range opts {
		opt(bp)
	}
	return bp
}

// ReadPage returns a borrow of the page (f, pageNo), loading it from disk
// on a cache miss. The borrow is valid until the matching UnpinPage.
func (bp *BufferPool) ReadPage(f *file.File, pageNo uint64) (*page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameNo, found := bp.index.Lookup(f, pageNo); found {
		bp.metrics.Hit()
		d := bp.descs[frameNo]
		d.refBit = true
		d.pinned++
		return bp.buffers[frameNo], nil
	}
	bp.metrics.Miss()

	frameNo, err := bp.evictVictim()
	if err != nil {
		return nil, errors.Wrapf(err, "read page %d of %s", pageNo, f.Filename())
	}

	buf := bp.buffers[frameNo]
	if err := f.ReadInto(pageNo, buf.Contents()); err != nil {
		// The frame is already detached from the index/descriptor at
		// this point (evictVictim cleared it); leave it invalid rather
		// than install a half-loaded page.
		return nil, errors.Wrapf(err, "read page %d of %s", pageNo, f.Filename())
	}
	buf.SetPageNumber(pageNo)

	bp.index.Insert(f, pageNo, frameNo)
	bp.descs[frameNo].install(f, pageNo)

	return buf, nil
}

// AllocPage allocates a fresh page in f and returns a pinned borrow of it.
func (bp *BufferPool) AllocPage(f *file.File) (uint64, *page.Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameNo, err := bp.evictVictim()
	if err != nil {
		return 0, nil, errors.Wrapf(err, "alloc page in %s", f.Filename())
	}

	pageNo, err := f.AllocateSlot()
	if err != nil {
		return 0, nil, errors.Wrapf(err, "alloc page in %s", f.Filename())
	}

	buf := bp.buffers[frameNo]
	buf.Reset()
	buf.SetPageNumber(pageNo)

	bp.index.Insert(f, pageNo, frameNo)
	bp.descs[frameNo].install(f, pageNo)

	return pageNo, buf, nil
}

// UnpinPage releases one outstanding borrow of (f, pageNo). Unpinning a
// page that is no longer resident is a silent no-op: it may legitimately
// have already been evicted or disposed.
func (bp *BufferPool) UnpinPage(f *file.File, pageNo uint64, markDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	frameNo, found := bp.index.Lookup(f, pageNo)
	if !found {
		return nil
	}

	d := bp.descs[frameNo]
	if d.pinned == 0 {
		return errors.Wrapf(ErrPageNotPinned, "unpin page %d of %s", pageNo, f.Filename())
	}
	d.pinned--
	if markDirty {
		d.dirty = true
	}
	return nil
}

// FlushFile writes back every dirty, unpinned frame belonging to f and
// then removes every such frame, clean or dirty, from the pool. It is
// best-effort up to the first failure: frames already processed remain
// flushed, later ones are untouched (SPEC_FULL §10).
func (bp *BufferPool) FlushFile(f *file.File) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for _, d := range bp.descs {
		if d.file != f {
			continue
		}

		if !d.valid {
			return errors.Wrapf(ErrBadBuffer, "flush %s: frame %d maps to file but is invalid", f.Filename(), d.frameNo)
		}
		if d.pinned != 0 {
			return errors.Wrapf(ErrPagePinned, "flush %s: page %d still pinned", f.Filename(), d.pageNo)
		}
		if d.dirty {
			if err := f.WriteFrom(d.pageNo, bp.buffers[d.frameNo].Contents()); err != nil {
				return errors.Wrapf(err, "flush %s: write page %d", f.Filename(), d.pageNo)
			}
			bp.metrics.Writeback()
			d.dirty = false
		}
		bp.index.Remove(f, d.pageNo)
		d.reset()
	}
	return nil
}

// DisposePage discards (f, pageNo) from the pool without writing it back,
// then asks the file layer to delete it. A page that is not resident is
// a no-op; calling this twice in a row is idempotent.
func (bp *BufferPool) DisposePage(f *file.File, pageNo uint64) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if frameNo, found := bp.index.Lookup(f, pageNo); found {
		bp.index.Remove(f, pageNo)
		bp.descs[frameNo].reset()
	}
	if err := f.DeletePage(pageNo); err != nil {
		return errors.Wrapf(err, "dispose page %d of %s", pageNo, f.Filename())
	}
	return nil
}

// PrintSelf writes a diagnostic dump of every frame to w and logs the
// same information at debug level. Format is not contractual.
func (bp *BufferPool) PrintSelf(w io.Writer) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	validFrames := 0
	for _, d := range bp.descs {
		fmt.Fprintf(w, "frame %d: valid=%t dirty=%t pinned=%d ref=%t\n",
			d.frameNo, d.valid, d.dirty, d.pinned, d.refBit)
		bp.log.Debug("frame state",
			zap.Int("frame_no", d.frameNo),
			zap.Bool("valid", d.valid),
			zap.Bool("dirty", d.dirty),
			zap.Uint32("pin_count", d.pinned),
		)
		if d.valid {
			validFrames++
		}
	}
	fmt.Fprintf(w, "total valid frames: %d\n", validFrames)
	bp.metrics.SetFramesValid(validFrames)
}

// Close flushes every valid dirty frame, in one pass, then releases the
// pool's storage. The two steps are never interleaved (a single
// teardown pass, not a free-while-scanning loop — SPEC_FULL §4.4). Pinned
// dirty frames are logged and flushed anyway; Close never leaves a dirty
// page behind.
func (bp *BufferPool) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	var firstErr error
	for _, d := range bp.descs {
		if !d.valid || !d.dirty {
			continue
		}
		if d.pinned != 0 {
			bp.log.Warn("closing pool with pinned dirty frame",
				zap.Int("frame_no", d.frameNo), zap.Uint64("page_no", d.pageNo))
		}
		if err := d.file.WriteFrom(d.pageNo, bp.buffers[d.frameNo].Contents()); err != nil {
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "close: write page %d of %s", d.pageNo, d.file.Filename())
			}
			continue
		}
		bp.metrics.Writeback()
	}

	for _, d := range bp.descs {
		d.reset()
	}
	bp.buffers = nil
	bp.descs = nil

	return firstErr
}

// evictVictim asks the clock policy for a victim frame, flushing it first
// if dirty, then detaches it from the index. The returned frame number is
// empty (invalid) and ready to be installed by the caller.
func (bp *BufferPool) evictVictim() (int, error) {
	frameNo, err := bp.policy.SelectVictim()
	if err != nil {
		bp.metrics.Exhausted()
		return 0, err
	}

	d := bp.descs[frameNo]
	if !d.valid {
		return frameNo, nil
	}

	if d.dirty {
		if err := d.file.WriteFrom(d.pageNo, bp.buffers[frameNo].Contents()); err != nil {
			return 0, errors.Wrapf(err, "evict frame %d: write page %d of %s", frameNo, d.pageNo, d.file.Filename())
		}
		bp.metrics.Writeback()
	}
	bp.metrics.Eviction(d.dirty)
	bp.log.Debug("evicted frame",
		zap.Int("frame_no", frameNo), zap.Uint64("page_no", d.pageNo), zap.Bool("dirty", d.dirty))

	bp.index.Remove(d.file, d.pageNo)
	d.reset()

	return frameNo, nil
}
