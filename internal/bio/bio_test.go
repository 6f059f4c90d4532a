package bio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadBitsRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBits(0x3, 2))
	require.NoError(t, w.WriteBits(0x1A5, 9))
	require.NoError(t, w.WriteBits(0xFFFF, 16))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	v, err := r.ReadBits(2)
	require.NoError(t, err)
	require.Equal(t, uint32(0x3), v)

	v, err = r.ReadBits(9)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1A5), v)

	v, err = r.ReadBits(16)
	require.NoError(t, err)
	require.Equal(t, uint32(0xFFFF), v)
}

func TestSegmentAlignment(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteBits(0x1, 1))
	require.NoError(t, w.AlignSegment())
	require.Equal(t, int64(4), w.BytePos())

	require.NoError(t, w.WriteBits(0xAB, 8))
	require.NoError(t, w.AlignSegment())
	require.Equal(t, int64(8), w.BytePos())
}

func TestPatchUint32OnMemoryStream(t *testing.T) {
	ms := NewMemoryStream()
	w := NewWriter(ms)

	w.PushOffset()
	off, ok := w.PopOffset()
	require.True(t, ok)
	require.Equal(t, int64(0), off)

	require.NoError(t, w.WriteBits(0, 32)) // placeholder segment
	require.NoError(t, w.WriteBits(0xDEADBEEF, 32))
	require.NoError(t, w.PatchUint32(off, 0x12345678))

	got := ms.Bytes()
	require.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, got[0:4])
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, got[4:8])
}

func TestOffsetStackDepth(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < StackDepth; i++ {
		w.PushOffset()
	}
	require.Equal(t, StackDepth, w.Depth())
	for i := 0; i < StackDepth; i++ {
		_, ok := w.PopOffset()
		require.True(t, ok)
	}
	_, ok := w.PopOffset()
	require.False(t, ok)
}

func TestReaderUnderflow(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadBits(8)
	require.Error(t, err)
}
