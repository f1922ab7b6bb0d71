package page

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndGetInt(t *testing.T) {
	p := New(256)
	val := uint64(1234)
	offset := uint64(23)
	p.SetInt(offset, val)

	require.Equal(t, val, p.GetInt(offset))
}

func TestSetAndGetByteArray(t *testing.T) {
	p := New(256)
	bs := []byte{1, 2, 3, 4, 5, 6}
	offset := uint64(111)
	p.SetBytes(offset, bs)

	require.Equal(t, bs, p.GetBytes(offset))
}

func TestSetAndGetString(t *testing.T) {
	p := New(256)
	s := "hello, 世界"
	offset := uint64(177)
	p.SetString(offset, s)

	require.Equal(t, s, p.GetString(offset))
}

func TestMaxLengthForString(t *testing.T) {
	s := "hello, 世界"
	sLen := uint64(len([]byte(s)))
	p := New(256)

	require.Equal(t, sLen+8, p.MaxLengthForString(s))
}

func TestGetContents(t *testing.T) {
	bs := []byte{1, 2, 3, 4, 5, 6}
	p := NewFromBytes(bs)

	require.Equal(t, bs, p.Contents())
}

func TestPageNumberRoundTrip(t *testing.T) {
	p := New(64)
	p.SetPageNumber(42)

	require.Equal(t, uint64(42), p.PageNumber())
}

func TestResetClearsContents(t *testing.T) {
	p := New(16)
	p.SetInt(0, 0xdeadbeef)
	p.Reset()

	require.Equal(t, uint64(0), p.GetInt(0))
}
