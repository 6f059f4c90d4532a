package vc5

import (
	"github.com/vc5codec/vc5/internal/tree"
)

// padTo zero-extends src (w x h, row-major) to (tw x th); tw >= w, th >= h.
// Used to round a channel or reconstructed-LL plane up to the even
// dimensions each wavelet level's lifting pass requires (spec.md §3:
// "inputs are padded to even before decomposition").
func padTo(src []int32, w, h, tw, th int) []int32 {
	if w == tw && h == th {
		return src
	}
	out := make([]int32, tw*th)
	for y := 0; y < h; y++ {
		copy(out[y*tw:y*tw+w], src[y*w:(y+1)*w])
	}
	return out
}

// cropTo extracts the top-left (tw x th) region of src (w x h); tw <= w,
// th <= h. The inverse of padTo's zero-extension.
func cropTo(src []int32, w, h, tw, th int) []int32 {
	if w == tw && h == th {
		return src
	}
	out := make([]int32, tw*th)
	for y := 0; y < th; y++ {
		copy(out[y*tw:(y+1)*tw], src[y*w:y*w+tw])
	}
	return out
}

// splitQuadrants slices a 2*bw x 2*bh plane, as produced by
// wavelet.Forward2D, into its four bw x bh quadrants (internal/wavelet's
// packing convention: LL top-left, HL top-right, LH bottom-left, HH
// bottom-right).
func splitQuadrants(plane []int32, bw, bh int) (ll, hl, lh, hh []int32) {
	full := 2 * bw
	extract := func(ox, oy int) []int32 {
		out := make([]int32, bw*bh)
		for y := 0; y < bh; y++ {
			copy(out[y*bw:(y+1)*bw], plane[(oy+y)*full+ox:(oy+y)*full+ox+bw])
		}
		return out
	}
	return extract(0, 0), extract(bw, 0), extract(0, bh), extract(bw, bh)
}

// joinQuadrants is the inverse of splitQuadrants.
func joinQuadrants(ll, hl, lh, hh []int32, bw, bh int) []int32 {
	full := 2 * bw
	out := make([]int32, full*2*bh)
	place := func(q []int32, ox, oy int) {
		for y := 0; y < bh; y++ {
			copy(out[(oy+y)*full+ox:(oy+y)*full+ox+bw], q[y*bw:(y+1)*bw])
		}
	}
	place(ll, 0, 0)
	place(hl, bw, 0)
	place(lh, 0, bh)
	place(hh, bw, bh)
	return out
}

// widenInt16 widens a band's int16 coefficient storage to int32 for
// arithmetic (inverse transform, clamping).
func widenInt16(data []int16) []int32 {
	out := make([]int32, len(data))
	for i, v := range data {
		out[i] = int32(v)
	}
	return out
}

// widenUint16 widens a channel plane's raw uint16 samples to int32.
func widenUint16(data []uint16) []int32 {
	out := make([]int32, len(data))
	for i, v := range data {
		out[i] = int32(v)
	}
	return out
}

// narrowToUint16 clamps a fully reconstructed plane to the component
// range and casts it down. Must run after any cross-channel inverse
// transform (internal/xform.Inverse), since the transform's difference
// planes are legitimately negative mid-reconstruction.
func narrowToUint16(data []int32) []uint16 {
	out := make([]uint16, len(data))
	for i, v := range data {
		if v < 0 {
			v = 0
		}
		if v > 0xFFFF {
			v = 0xFFFF
		}
		out[i] = uint16(v)
	}
	return out
}

// bandData returns wavelet level w's four bands widened to int32, in
// splitQuadrants/joinQuadrants order.
func bandData(w *tree.Wavelet) (ll, hl, lh, hh []int32) {
	return widenInt16(w.Bands[tree.BandLL].Data),
		widenInt16(w.Bands[tree.BandHL].Data),
		widenInt16(w.Bands[tree.BandLH].Data),
		widenInt16(w.Bands[tree.BandHH].Data)
}

// quantFor returns the per-band quantization divisors for wavelet level
// waveletIndex, looked up from the canonical 10-entry subband table
// (spec.md §3). Band LL has no canonical subband number below the top
// level (index tree.Levels-1); its entry is left zero there and must not
// be used by the caller.
func quantFor(quant [10]uint16, waveletIndex int) [4]uint16 {
	var out [4]uint16
	for band := 0; band < 4; band++ {
		if waveletIndex < tree.Levels-1 && band == tree.BandLL {
			continue
		}
		n, err := tree.SubbandNumber(waveletIndex, band)
		if err != nil {
			continue
		}
		out[band] = quant[n]
	}
	return out
}
