package bitstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vc5codec/vc5/internal/bio"
)

func writeSegments(t *testing.T, pairs [][2]int) *bio.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	for _, p := range pairs {
		require.NoError(t, w.WriteBits(uint32(uint16(p[0])), 16))
		require.NoError(t, w.WriteBits(uint32(uint16(p[1])), 16))
	}
	require.NoError(t, w.Flush())
	return bio.NewReader(&buf)
}

func TestHeaderRequiredParametersThenChannel(t *testing.T) {
	r := writeSegments(t, [][2]int{
		{int(TagImageWidth), 1920},
		{int(TagImageHeight), 1080},
		{int(TagChannelNumber), 0},
	})
	p := NewParser(false)

	for i := 0; i < 3; i++ {
		tag, value, err := ReadSegment(r)
		require.NoError(t, err)
		_, err = p.Dispatch(tag, value)
		require.NoError(t, err)
	}
	require.Equal(t, uint16(1920), p.Header.Width)
	require.Equal(t, uint16(1080), p.Header.Height)
	require.True(t, p.Header.Finished)
	require.Equal(t, PhaseSubband, p.Phase())
}

func TestDuplicateHeaderParameter(t *testing.T) {
	r := writeSegments(t, [][2]int{
		{int(TagImageWidth), 1920},
		{int(TagImageWidth), 1920},
	})
	p := NewParser(false)

	tag, value, err := ReadSegment(r)
	require.NoError(t, err)
	_, err = p.Dispatch(tag, value)
	require.NoError(t, err)

	tag, value, err = ReadSegment(r)
	require.NoError(t, err)
	_, err = p.Dispatch(tag, value)
	require.Error(t, err)
}

func TestMissingRequiredParameter(t *testing.T) {
	r := writeSegments(t, [][2]int{
		{int(TagImageWidth), 1920},
		{int(TagChannelNumber), 0},
	})
	p := NewParser(false)

	tag, value, err := ReadSegment(r)
	require.NoError(t, err)
	_, err = p.Dispatch(tag, value)
	require.NoError(t, err)

	tag, value, err = ReadSegment(r)
	require.NoError(t, err)
	_, err = p.Dispatch(tag, value)
	require.Error(t, err)
}

func TestLowpassPrecisionOutOfRange(t *testing.T) {
	r := writeSegments(t, [][2]int{
		{int(TagImageWidth), 4},
		{int(TagImageHeight), 4},
		{int(TagChannelNumber), 0},
		{int(TagLowpassPrecision), 7},
		{int(TagSubbandNumber), 0},
	})
	p := NewParser(false)
	var err error
	var tag Tag
	var value uint16
	for i := 0; i < 5; i++ {
		tag, value, err = ReadSegment(r)
		require.NoError(t, err)
		_, derr := p.Dispatch(tag, value)
		if i == 3 {
			require.Error(t, derr)
		} else {
			require.NoError(t, derr)
		}
	}
}

func TestChunkTagClassification(t *testing.T) {
	require.Equal(t, LargeChunk, TagLargeCodeblock.Kind())
	require.Equal(t, LargeChunk, TagSectionImage.Kind())
	require.Equal(t, SmallChunk, TagMetadataSmall.Kind())
	require.Equal(t, LargeChunk, TagMetadataLarge.Kind())
	require.Equal(t, NotChunk, TagImageWidth.Kind())
}

func TestOptionalChunkSkipScenario(t *testing.T) {
	// An unrecognized large-chunk extension tag (low byte zero, so the
	// 24-bit size reduces to the 16-bit value) whose payload size is
	// 100 segments (spec.md §8 scenario 4).
	tag := Tag(0x2800)
	segments := tag.PayloadSegments(100)
	require.Equal(t, 100, segments)

	payload := bytes.Repeat([]byte{0}, segments*4)
	require.NoError(t, SkipChunk(bytes.NewReader(payload), segments))
}

func TestSecondChannelMidSubbandResetsState(t *testing.T) {
	r := writeSegments(t, [][2]int{
		{int(TagImageWidth), 4},
		{int(TagImageHeight), 4},
		{int(TagChannelNumber), 0},
		{int(TagSubbandNumber), 3},
		{int(TagChannelNumber), 1},
	})
	p := NewParser(false)
	for i := 0; i < 5; i++ {
		tag, value, err := ReadSegment(r)
		require.NoError(t, err)
		_, err = p.Dispatch(tag, value)
		require.NoError(t, err)
	}
	require.Equal(t, uint16(1), p.Channel.Number)
	require.Equal(t, uint16(0), p.Subband.Number, "subband state must reset for the new channel")
	require.Equal(t, PhaseSubband, p.Phase())
}

func TestSectionTagRecognition(t *testing.T) {
	require.True(t, IsSectionTag(TagSectionWavelet))
	require.False(t, IsSectionTag(TagLargeCodeblock))
}
