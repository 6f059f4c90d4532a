package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewChannelDimensionsHalveEachLevel(t *testing.T) {
	c := NewChannel(17, 9)
	require.Equal(t, 9, c.Wavelets[0].Width)
	require.Equal(t, 5, c.Wavelets[0].Height)
	require.Equal(t, 5, c.Wavelets[1].Width)
	require.Equal(t, 3, c.Wavelets[1].Height)
	require.Equal(t, 3, c.Wavelets[2].Width)
	require.Equal(t, 2, c.Wavelets[2].Height)
}

func TestSubbandLocationRoundTrip(t *testing.T) {
	for subband := 0; subband < 10; subband++ {
		wi, bi, err := SubbandLocation(subband)
		require.NoError(t, err)
		got, err := SubbandNumber(wi, bi)
		require.NoError(t, err)
		require.Equal(t, subband, got)
	}
}

func TestSubbandLocationOutOfRange(t *testing.T) {
	_, _, err := SubbandLocation(10)
	require.Error(t, err)
	_, _, err = SubbandLocation(-1)
	require.Error(t, err)
}

func TestMarkSubbandValidAndComplete(t *testing.T) {
	c := NewChannel(8, 8)
	require.False(t, c.Complete())

	for subband := 0; subband < 4; subband++ {
		require.NoError(t, c.MarkSubbandValid(subband))
	}
	require.True(t, c.Complete())
	require.Equal(t, uint8(0b1111), c.TopLevel().ValidMask())
}

func TestMarkBandValidRejectsOutOfRange(t *testing.T) {
	w := NewWavelet(4, 4)
	require.ErrorIs(t, w.MarkBandValid(4), ErrInvalidBand)
	require.ErrorIs(t, w.MarkBandValid(-1), ErrInvalidBand)
}

func TestHalfUp(t *testing.T) {
	require.Equal(t, 4, HalfUp(8))
	require.Equal(t, 5, HalfUp(9))
	require.Equal(t, 1, HalfUp(1))
}
