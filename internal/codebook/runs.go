package codebook

import "errors"

// ErrBandEndMarker is returned when a decoded subband does not contain
// exactly width*height values by the time the band-end special marker is
// read, or when the marker is never found (spec §4.2, §7:
// ErrorKind::BandEndMarker).
var ErrBandEndMarker = errors.New("codebook: band did not decode to exactly width*height values")

// EncodeBand entropy-codes a full subband of signed coefficients as a
// row-major run/magnitude stream (spec §4.2): consecutive zeros within a
// row are coalesced into run codewords, nonzero coefficients are written
// as a magnitude codeword followed by a sign bit, and the stream is
// terminated by a band-end special marker. Runs never cross a row
// boundary: this follows spec §4.2's explicit statement over §8's
// all-zero-subband example, which reads as if a single run could span
// every row (see the row-reset comment below).
func (cs *Codeset) EncodeBand(bw BitWriter, coeffs []int32, width, height int) error {
	if len(coeffs) != width*height {
		return ErrBandEndMarker
	}
	for row := 0; row < height; row++ {
		// Row boundary resets the run here per spec §4.2 ("runs do not
		// cross row boundaries"); spec §8's all-zero-subband case and
		// the reference decoder.c (runs can straddle end-of-line) both
		// suggest a single band-wide run is also a valid reading. §4.2
		// is the rule this codeset follows, so an all-zero band taller
		// than one row still emits one run codeword per row rather than
		// one run codeword total.
		rowCoeffs := coeffs[row*width : (row+1)*width]
		col := 0
		for col < width {
			if rowCoeffs[col] == 0 {
				run := 0
				for col < width && rowCoeffs[col] == 0 {
					run++
					col++
				}
				if err := cs.encodeRunSplit(bw, uint32(run)); err != nil {
					return err
				}
				continue
			}
			v := rowCoeffs[col]
			mag := uint32(v)
			negative := v < 0
			if negative {
				mag = uint32(-v)
			}
			if err := cs.EncodeMagnitude(bw, mag, negative); err != nil {
				return err
			}
			col++
		}
	}
	return cs.EncodeSpecial(bw, SpecialBandEnd)
}

// encodeRunSplit greedily factors a run longer than MaxRunLength into
// multiple maximal-length run codewords (spec §4.2: "greedy factoring into
// shorter runs when the exact length is not in the table").
func (cs *Codeset) encodeRunSplit(bw BitWriter, n uint32) error {
	for n > MaxRunLength {
		if err := cs.EncodeRun(bw, MaxRunLength); err != nil {
			return err
		}
		n -= MaxRunLength
	}
	return cs.EncodeRun(bw, n)
}

// DecodeBand reads a row-major run/magnitude stream back into exactly
// width*height coefficients, stopping at the band-end special marker. It
// returns ErrBandEndMarker if the marker is found before width*height
// values have been produced, or if the stream runs past that count without
// one (spec §4.2, §7).
func (cs *Codeset) DecodeBand(br BitReader, width, height int) ([]int32, error) {
	total := width * height
	coeffs := make([]int32, 0, total)

	for len(coeffs) < total {
		sym, err := cs.DecodeSymbol(br)
		if err != nil {
			return nil, err
		}
		switch sym.Kind {
		case KindRun:
			remaining := total - len(coeffs)
			n := int(sym.Value)
			if n > remaining {
				return nil, ErrBandEndMarker
			}
			for i := 0; i < n; i++ {
				coeffs = append(coeffs, 0)
			}
		case KindMagnitude:
			bit, err := br.ReadBit()
			if err != nil {
				return nil, err
			}
			v := int32(sym.Value)
			if bit == 1 {
				v = -v
			}
			coeffs = append(coeffs, v)
		case KindSpecial:
			if sym.Value == SpecialBandEnd {
				return nil, ErrBandEndMarker
			}
			return nil, ErrBandEndMarker
		}
	}

	sym, err := cs.DecodeSymbol(br)
	if err != nil {
		return nil, err
	}
	if sym.Kind != KindSpecial || sym.Value != SpecialBandEnd {
		return nil, ErrBandEndMarker
	}
	return coeffs, nil
}
