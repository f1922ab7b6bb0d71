package hashindex

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/LunaBestPone/dbbufmgr/file"
)

// fakeFile returns a distinct *file.File identity without touching disk;
// the hash index only ever compares file pointers. It allocates a
// non-zero-size backing value so each call yields a distinct address
// (zero-size allocations can share the same address in Go).
func fakeFile() *file.File {
	return (*file.File)(unsafe.Pointer(new(byte)))
}

func TestInsertLookupRemove(t *testing.T) {
	idx := New(3)
	f := fakeFile()

	_, found := idx.Lookup(f, 7)
	require.False(t, found)

	idx.Insert(f, 7, 2)
	frameNo, found := idx.Lookup(f, 7)
	require.True(t, found)
	require.Equal(t, 2, frameNo)

	require.True(t, idx.Remove(f, 7))
	_, found = idx.Lookup(f, 7)
	require.False(t, found)
}

func TestRemoveAbsentIsFalse(t *testing.T) {
	idx := New(3)
	require.False(t, idx.Remove(fakeFile(), 1))
}

func TestDistinctFilesSamePageAreDistinctKeys(t *testing.T) {
	idx := New(3)
	f1, f2 := fakeFile(), fakeFile()

	idx.Insert(f1, 5, 0)
	idx.Insert(f2, 5, 1)

	got1, _ := idx.Lookup(f1, 5)
	got2, _ := idx.Lookup(f2, 5)
	require.Equal(t, 0, got1)
	require.Equal(t, 1, got2)
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	idx := New(2) // capacity 3
	f := fakeFile()

	for i := uint64(0); i < 20; i++ {
		idx.Insert(f, i, int(i))
	}

	require.Equal(t, 20, idx.Len())
	for i := uint64(0); i < 20; i++ {
		frameNo, found := idx.Lookup(f, i)
		require.True(t, found)
		require.Equal(t, int(i), frameNo)
	}
}

func TestTombstoneDoesNotBreakLaterLookups(t *testing.T) {
	idx := New(4)
	f := fakeFile()

	idx.Insert(f, 1, 0)
	idx.Insert(f, 2, 1)
	idx.Insert(f, 3, 2)

	require.True(t, idx.Remove(f, 2))

	frameNo, found := idx.Lookup(f, 3)
	require.True(t, found)
	require.Equal(t, 2, frameNo)
}
