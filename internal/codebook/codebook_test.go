package codebook

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vc5codec/vc5/internal/bio"
)

func TestMagnitudeRunSpecialRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bio.NewWriter(&buf)

	require.NoError(t, CS17.EncodeMagnitude(w, 5, false))
	require.NoError(t, CS17.EncodeRun(w, 17))
	require.NoError(t, CS17.EncodeMagnitude(w, 1, true))
	require.NoError(t, CS17.EncodeSpecial(w, SpecialBandEnd))
	require.NoError(t, w.Flush())

	r := bio.NewReader(&buf)

	sym, err := CS17.DecodeSymbol(r)
	require.NoError(t, err)
	require.Equal(t, KindMagnitude, sym.Kind)
	require.Equal(t, uint32(5), sym.Value)
	bit, err := r.ReadBit()
	require.NoError(t, err)
	require.Equal(t, 0, bit)

	sym, err = CS17.DecodeSymbol(r)
	require.NoError(t, err)
	require.Equal(t, KindRun, sym.Kind)
	require.Equal(t, uint32(17), sym.Value)

	sym, err = CS17.DecodeSymbol(r)
	require.NoError(t, err)
	require.Equal(t, KindMagnitude, sym.Kind)
	require.Equal(t, uint32(1), sym.Value)
	bit, err = r.ReadBit()
	require.NoError(t, err)
	require.Equal(t, 1, bit)

	sym, err = CS17.DecodeSymbol(r)
	require.NoError(t, err)
	require.Equal(t, KindSpecial, sym.Kind)
	require.Equal(t, uint32(SpecialBandEnd), sym.Value)
}

func TestEncodeDecodeBandRoundTrip(t *testing.T) {
	width, height := 4, 3
	coeffs := []int32{
		0, 0, 3, -2,
		0, 0, 0, 0,
		7, -1, 0, 0,
	}

	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	require.NoError(t, CS17.EncodeBand(w, coeffs, width, height))
	require.NoError(t, w.Flush())

	r := bio.NewReader(&buf)
	got, err := CS17.DecodeBand(r, width, height)
	require.NoError(t, err)
	require.Equal(t, coeffs, got)
}

func TestDecodeBandShortReturnsBandEndMarker(t *testing.T) {
	width, height := 2, 2
	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	// Encode a band-end marker immediately, well short of width*height values.
	require.NoError(t, CS17.EncodeSpecial(w, SpecialBandEnd))
	require.NoError(t, w.Flush())

	r := bio.NewReader(&buf)
	_, err := CS17.DecodeBand(r, width, height)
	require.ErrorIs(t, err, ErrBandEndMarker)
}

func TestEncodeBandRejectsWrongLength(t *testing.T) {
	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	err := CS17.EncodeBand(w, []int32{1, 2, 3}, 2, 2)
	require.ErrorIs(t, err, ErrBandEndMarker)
}

func TestLongRunSplitsAcrossCodewords(t *testing.T) {
	width, height := MaxRunLength+5, 1
	coeffs := make([]int32, width*height)

	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	require.NoError(t, CS17.EncodeBand(w, coeffs, width, height))
	require.NoError(t, w.Flush())

	r := bio.NewReader(&buf)
	got, err := CS17.DecodeBand(r, width, height)
	require.NoError(t, err)
	require.Equal(t, coeffs, got)
}

// TestEncodeBandAllZerosResetsRunPerRow pins down which of spec §4.2's
// ("runs do not cross row boundaries") and §8's all-zero-subband example
// this codeset actually implements: a multi-row all-zero band encodes as
// one run codeword per row, not one run codeword for the whole band.
func TestEncodeBandAllZerosResetsRunPerRow(t *testing.T) {
	width, height := 4, 3
	coeffs := make([]int32, width*height)

	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	require.NoError(t, CS17.EncodeBand(w, coeffs, width, height))
	require.NoError(t, w.Flush())
	encoded := append([]byte(nil), buf.Bytes()...)

	r := bio.NewReader(&buf)
	runs := 0
	for {
		sym, err := CS17.DecodeSymbol(r)
		require.NoError(t, err)
		if sym.Kind == KindSpecial {
			require.Equal(t, uint32(SpecialBandEnd), sym.Value)
			break
		}
		require.Equal(t, KindRun, sym.Kind)
		require.Equal(t, uint32(width), sym.Value)
		runs++
	}
	require.Equal(t, height, runs)

	// DecodeBand itself only tracks a running total against
	// width*height and does not care which side of a row boundary a run
	// falls on, so it reconstructs the same all-zero band either way.
	r2 := bio.NewReader(bytes.NewReader(encoded))
	got, err := CS17.DecodeBand(r2, width, height)
	require.NoError(t, err)
	require.Equal(t, coeffs, got)
}

func TestCubicCompandingRoundTrip(t *testing.T) {
	cs := &Codeset{Title: "17c", Flags: CompandingCubic}

	var buf bytes.Buffer
	w := bio.NewWriter(&buf)
	require.NoError(t, cs.EncodeMagnitude(w, 1000, false))
	require.NoError(t, w.Flush())

	r := bio.NewReader(&buf)
	sym, err := cs.DecodeSymbol(r)
	require.NoError(t, err)
	require.Equal(t, KindMagnitude, sym.Kind)
	require.InDelta(t, 1000, sym.Value, 2)
}
