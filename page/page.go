// Package page implements the fixed-size in-memory representation of a
// single disk page: a byte slab plus typed accessors for the small set of
// primitives the storage engine needs to encode (integers, byte strings,
// text).
package page

import "encoding/binary"

// Size is the fixed page size used throughout the file and buffer layers.
// Every page read from or written to disk is exactly this many bytes.
const Size = 4096

// lengthPrefixSize is the width, in bytes, of the length prefix written
// ahead of every variable-length byte string.
const lengthPrefixSize = 8

// Page is one page's worth of bytes, plus the page number it was last
// loaded from or allocated as. The zero value is not usable; construct one
// with New or NewFromBytes.
type Page struct {
	buffer []byte
	pageNo uint64
}

// New allocates a zeroed page of the given size (normally page.Size).
func New(size uint64) *Page {
	return &Page{buffer: make([]byte, size)}
}

// NewFromBytes wraps an existing byte slice as a page without copying it.
// The file layer uses it to wrap a buffer it has just read from disk.
func NewFromBytes(b []byte) *Page {
	return &Page{buffer: b}
}

// PageNumber returns the page's identifier within its file. Only
// meaningful once SetPageNumber has been called (by the file layer, on
// read or allocation).
func (p *Page) PageNumber() uint64 {
	return p.pageNo
}

// SetPageNumber stamps the page with its identifier. Called by the file
// layer; not meant to be called by buffer pool clients.
func (p *Page) SetPageNumber(n uint64) {
	p.pageNo = n
}

// GetInt reads a little-endian uint64 at offset.
func (p *Page) GetInt(offset uint64) uint64 {
	return binary.LittleEndian.Uint64(p.buffer[offset : offset+8])
}

// SetInt writes a little-endian uint64 at offset.
func (p *Page) SetInt(offset uint64, val uint64) {
	binary.LittleEndian.PutUint64(p.buffer[offset:offset+8], val)
}

// GetBytes reads a length-prefixed byte string starting at offset.
func (p *Page) GetBytes(offset uint64) []byte {
	n := binary.LittleEndian.Uint64(p.buffer[offset : offset+lengthPrefixSize])
	out := make([]byte, n)
	copy(out, p.buffer[offset+lengthPrefixSize:])
	return out
}

// SetBytes writes b as a length-prefixed byte string starting at offset.
func (p *Page) SetBytes(offset uint64, b []byte) {
	binary.LittleEndian.PutUint64(p.buffer[offset:offset+lengthPrefixSize], uint64(len(b)))
	copy(p.buffer[offset+lengthPrefixSize:], b)
}

// GetString reads a length-prefixed UTF-8 string starting at offset.
func (p *Page) GetString(offset uint64) string {
	return string(p.GetBytes(offset))
}

// SetString writes s as a length-prefixed UTF-8 string starting at offset.
func (p *Page) SetString(offset uint64, s string) {
	p.SetBytes(offset, []byte(s))
}

// MaxLengthForString returns the number of bytes SetString(offset, s)
// would occupy, including its length prefix.
func (p *Page) MaxLengthForString(s string) uint64 {
	return lengthPrefixSize + uint64(len(s))
}

// Contents returns the page's raw backing buffer. Callers that hold a
// borrow from the buffer pool read and write through this slice directly.
func (p *Page) Contents() []byte {
	return p.buffer
}

// Reset zeroes the page's contents in place, keeping the same backing
// array. Used when a frame is reassigned to a different page so that the
// caller's prior borrow (now stale) doesn't silently retain old bytes.
func (p *Page) Reset() {
	for i := range p.buffer {
		p.buffer[i] = 0
	}
}
