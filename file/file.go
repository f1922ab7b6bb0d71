// Package file implements the on-disk half of the storage engine: one
// File per open OS file, serving fixed-size pages by direct offset I/O.
// It is the "file layer" the buffer pool consumes (spec §6.1) and owns no
// in-memory caching of its own.
package file

import (
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/LunaBestPone/dbbufmgr/page"
)

// ErrOutOfRange is returned by ReadPage when the requested page number is
// past the end of the file.
var ErrOutOfRange = errors.New("page number out of range")

// File is a single open on-disk file, addressed in fixed page.Size units.
// Distinct *File values are distinct for caching purposes even when they
// refer to the same path on disk (pointer identity is the cache key the
// buffer pool's FrameIndex relies on).
type File struct {
	mu       sync.Mutex
	osFile   *os.File
	path     string
	numPages uint64
}

// Open opens (creating if necessary) the file at path for page-level I/O.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	return &File{
		osFile:   f,
		path:     path,
		numPages: uint64(info.Size()) / page.Size,
	}, nil
}

// Filename returns the path the file was opened with, for diagnostics and
// error messages only.
func (f *File) Filename() string {
	return f.path
}

// NumPages reports how many pages the file currently holds.
func (f *File) NumPages() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

// ReadPage reads the page at pageNo into a freshly allocated page.Page.
func (f *File) ReadPage(pageNo uint64) (*page.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pageNo >= f.numPages {
		return nil, errors.Wrapf(ErrOutOfRange, "%s: page %d", f.path, pageNo)
	}

	buf := make([]byte, page.Size)
	if _, err := f.osFile.ReadAt(buf, int64(pageNo)*page.Size); err != nil {
		return nil, errors.Wrapf(err, "read %s page %d", f.path, pageNo)
	}

	p := page.NewFromBytes(buf)
	p.SetPageNumber(pageNo)
	return p, nil
}

// WritePage writes p back to its own page number's offset.
func (f *File) WritePage(p *page.Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pageNo := p.PageNumber()
	if pageNo >= f.numPages {
		return errors.Wrapf(ErrOutOfRange, "%s: page %d", f.path, pageNo)
	}

	if _, err := f.osFile.WriteAt(p.Contents(), int64(pageNo)*page.Size); err != nil {
		return errors.Wrapf(err, "write %s page %d", f.path, pageNo)
	}
	return nil
}

// AllocatePage extends the file by one page and returns it, zeroed, with
// its page number already set. No locality guarantees are made about
// where the new page lands relative to existing ones beyond "at the end".
func (f *File) AllocatePage() (*page.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pageNo := f.numPages
	p := page.New(page.Size)
	p.SetPageNumber(pageNo)

	if _, err := f.osFile.WriteAt(p.Contents(), int64(pageNo)*page.Size); err != nil {
		return nil, errors.Wrapf(err, "allocate %s page %d", f.path, pageNo)
	}
	f.numPages++

	return p, nil
}

// ReadInto reads the page at pageNo directly into dst (which must be
// exactly page.Size bytes), without allocating a new page.Page. The
// buffer pool uses this to refill a frame's existing backing buffer in
// place, so a caller's borrow keeps pointing at the same address across
// reuse of the frame for a different page.
func (f *File) ReadInto(pageNo uint64, dst []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pageNo >= f.numPages {
		return errors.Wrapf(ErrOutOfRange, "%s: page %d", f.path, pageNo)
	}
	if _, err := f.osFile.ReadAt(dst, int64(pageNo)*page.Size); err != nil {
		return errors.Wrapf(err, "read %s page %d", f.path, pageNo)
	}
	return nil
}

// WriteFrom writes src (exactly page.Size bytes) to pageNo's offset,
// the zero-copy counterpart to ReadInto.
func (f *File) WriteFrom(pageNo uint64, src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pageNo >= f.numPages {
		return errors.Wrapf(ErrOutOfRange, "%s: page %d", f.path, pageNo)
	}
	if _, err := f.osFile.WriteAt(src, int64(pageNo)*page.Size); err != nil {
		return errors.Wrapf(err, "write %s page %d", f.path, pageNo)
	}
	return nil
}

// AllocateSlot extends the file by one zeroed page and returns its page
// number, without allocating a page.Page — the buffer pool supplies its
// own frame buffer to zero in place (see AllocPage in bufferpool).
func (f *File) AllocateSlot() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pageNo := f.numPages
	zero := make([]byte, page.Size)
	if _, err := f.osFile.WriteAt(zero, int64(pageNo)*page.Size); err != nil {
		return 0, errors.Wrapf(err, "allocate %s page %d", f.path, pageNo)
	}
	f.numPages++
	return pageNo, nil
}

// DeletePage zeroes the page's on-disk contents. Page numbers are never
// reused mid-file, so this never shrinks the file or shifts later pages.
func (f *File) DeletePage(pageNo uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pageNo >= f.numPages {
		return errors.Wrapf(ErrOutOfRange, "%s: page %d", f.path, pageNo)
	}

	zero := make([]byte, page.Size)
	if _, err := f.osFile.WriteAt(zero, int64(pageNo)*page.Size); err != nil {
		return errors.Wrapf(err, "delete %s page %d", f.path, pageNo)
	}
	return nil
}

// Close releases the underlying OS file handle. The buffer pool never
// calls this; it is the caller's responsibility once done with the file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.osFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.path, err)
	}
	return nil
}
