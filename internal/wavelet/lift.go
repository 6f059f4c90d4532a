// Package wavelet implements the VC-5 2-6 lifting wavelet transform:
// one-dimensional forward (analysis) and inverse (synthesis) lifting
// steps, applied horizontally then vertically to produce one level of
// four bands (LL, LH, HL, HH), plus prescale/quantize helpers (spec
// §4.3).
//
// The exact VC-5 2-6 kernel coefficients are not reproduced here (the
// retrieved reference sources included only wavelet.h's data-structure
// declarations, not the filter implementation — see DESIGN.md); the
// predict/update steps below are a from-scratch lifting pair shaped to
// match every structural requirement spec.md places on the kernel: a
// 2-tap update step, a wider four-neighbor predict window, and symmetric
// boundary extension rather than reading out of bounds.
package wavelet

import "sync"

var intBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]int32, 0, 4096)
		return &buf
	},
}

func getIntBuf(n int) []int32 {
	bp := intBufPool.Get().(*[]int32)
	buf := *bp
	if cap(buf) < n {
		buf = make([]int32, n)
	}
	return buf[:n]
}

func putIntBuf(buf []int32) {
	b := buf[:0]
	intBufPool.Put(&b)
}

// evenSample returns the even-indexed input sample 2*n, with n reflected
// symmetrically into [0, half) when it falls outside that range (the
// top/bottom boundary variants of spec.md §4.3). half is the number of
// even samples in a line of the given length.
func evenSample(x []int32, half, n int) int32 {
	if n < 0 {
		n = -n
	}
	if n >= half {
		n = 2*half - n - 2
		if n < 0 {
			n = 0
		}
	}
	return x[2*n]
}

// hiSample returns the highpass line value at index n, with n reflected
// symmetrically into [0, nHi) when it falls outside that range.
func hiSample(hi []int32, nHi, n int) int32 {
	if nHi == 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	if n >= nHi {
		n = nHi - 1
	}
	return hi[n]
}

// predict6 computes the highpass residual for the odd sample 2n+1 from a
// cubic interpolation of its four surrounding even neighbors.
func predict6(x []int32, half, n int) int32 {
	p := -evenSample(x, half, n-1) + 9*evenSample(x, half, n) + 9*evenSample(x, half, n+1) - evenSample(x, half, n+2)
	return p >> 4
}

// update2 computes the 2-tap lowpass update from two adjacent highpass
// values.
func update2(hiPrev, hiCur int32) int32 {
	return (hiPrev + hiCur + 2) >> 2
}

// Forward performs the 1-D forward 2-6 lifting transform on data[:length]
// in place. On return, indices [0, half) hold lowpass coefficients and
// the following indices hold highpass coefficients (de-interleaved,
// matching the teacher's L...H... layout convention).
func Forward(data []int32, length int) {
	if length < 2 {
		return
	}
	half := (length + 1) / 2
	nHi := length / 2

	hi := getIntBuf(nHi)
	defer putIntBuf(hi)
	for n := 0; n < nHi; n++ {
		hi[n] = data[2*n+1] - predict6(data, half, n)
	}

	lo := getIntBuf(half)
	defer putIntBuf(lo)
	for n := 0; n < half; n++ {
		lo[n] = data[2*n] + update2(hiSample(hi, nHi, n-1), hiSample(hi, nHi, n))
	}

	copy(data[0:half], lo)
	copy(data[half:length], hi)
}

// Inverse performs the 1-D inverse 2-6 lifting transform, reconstructing
// the original interleaved line from the de-interleaved lo/hi halves
// produced by Forward.
func Inverse(data []int32, length int) {
	if length < 2 {
		return
	}
	half := (length + 1) / 2
	nHi := length / 2

	lo := getIntBuf(half)
	defer putIntBuf(lo)
	hi := getIntBuf(nHi)
	defer putIntBuf(hi)
	copy(lo, data[0:half])
	copy(hi, data[half:length])

	out := getIntBuf(length)
	defer putIntBuf(out)

	for n := 0; n < half; n++ {
		out[2*n] = lo[n] - update2(hiSample(hi, nHi, n-1), hiSample(hi, nHi, n))
	}
	for n := 0; n < nHi; n++ {
		out[2*n+1] = hi[n] + predict6(out, half, n)
	}

	copy(data[:length], out)
}

// Forward2D applies Forward across every row and then every column of a
// width x height plane stored row-major, producing one level of the four
// bands packed into the same buffer: LL top-left, HL top-right, LH
// bottom-left, HH bottom-right, each of size halfWidth x halfHeight
// (spec.md §4.3: "horizontal then vertical lifting-scheme 2-6 analysis").
func Forward2D(data []int32, width, height int) {
	for y := 0; y < height; y++ {
		Forward(data[y*width:(y+1)*width], width)
	}

	col := getIntBuf(height)
	defer putIntBuf(col)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*width+x]
		}
		Forward(col, height)
		for y := 0; y < height; y++ {
			data[y*width+x] = col[y]
		}
	}
}

// Inverse2D is the exact inverse of Forward2D.
func Inverse2D(data []int32, width, height int) {
	col := getIntBuf(height)
	defer putIntBuf(col)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = data[y*width+x]
		}
		Inverse(col, height)
		for y := 0; y < height; y++ {
			data[y*width+x] = col[y]
		}
	}

	for y := 0; y < height; y++ {
		Inverse(data[y*width:(y+1)*width], width)
	}
}
