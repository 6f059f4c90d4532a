// Package codebook implements the VC-5 codeset "17" variable-length-code
// tables and the run/magnitude entropy coder built on top of them (spec
// §4.2). A single prefix-free codespace carries three kinds of symbol:
//
//   - a signed coefficient magnitude, followed in the bitstream by one
//     separate sign bit;
//   - a run of N consecutive zero coefficients;
//   - a special marker (currently only the band-end marker) with a
//     run-length of zero, used to terminate an entropy-coded subband.
//
// Codewords are computed on demand from a closed-form Exp-Golomb-style
// rule rather than looked up in an enumerated table; the only derived
// table is the optional cubic companding table, built once behind a
// sync.Once guard. The SMPTE reference table for codeset 17 itself was
// not available to ground this package on (see DESIGN.md), so the
// concrete code lengths below are a from-scratch construction that keeps
// the structural requirements spec.md places on the codebook (closed
// prefix-free code, a distinguished band-end marker, optional companding)
// without claiming bit-exact conformance to the official table's codeword
// values.
package codebook

import (
	"math/bits"
	"sync"
)

// category occupies the codeword's leading bits so that magnitude, run,
// and special codewords can never collide: "1" for magnitude, "01" for
// run, "00" for special.
const (
	catMagnitudePrefix uint32 = 0x1
	catMagnitudeBits   uint   = 1

	catRunPrefix uint32 = 0x1
	catRunBits   uint   = 2

	catSpecialPrefix uint32 = 0x0
	catSpecialBits   uint   = 2
)

// SpecialBandEnd is the special-marker value that terminates an
// entropy-coded subband, matching the reference implementation's
// SPECIAL_MARKER_BAND_END (original_source/common/include/syntax.h).
const SpecialBandEnd = 1

// MaxRunLength is the longest zero-run a single codeword can represent.
// Longer runs are greedily factored into multiple codewords by EncodeBand
// (spec §4.2: "greedy factoring into shorter runs when the exact length
// is not in the table"). A run of 32767 takes a 31-bit codeword; one
// more would not fit the 32-bit code.
const MaxRunLength = 1<<15 - 1

// CodesetFlags mirrors the reference's CODESET_FLAGS (codeset.h).
type CodesetFlags uint32

const (
	// CompandingNone disables the companding curve (the default for
	// codeset 17 as shipped).
	CompandingNone CodesetFlags = 0x0002
	// CompandingCubic applies a cubic companding curve to coefficient
	// magnitudes before they are coded
	// (spec §9 open question: optional, only used when a bitstream's
	// codeset declares it).
	CompandingCubic CodesetFlags = 0x0004
)

// Codeset bundles a title, the derived companding table, and the codeset flags that
// determine whether companding is applied — the Go analogue of the
// reference's CODESET struct (codeset.h).
type Codeset struct {
	Title string
	Flags CodesetFlags

	once       sync.Once
	cubicTable []int16
}

// CS17 is the default codeset used throughout this module, identified in
// bitstreams as codeset "17" (spec §3, §4.2).
var CS17 = &Codeset{Title: "17", Flags: CompandingNone}

// expGolombSplit returns the Exp-Golomb-style length/value split for n>=0:
// value = n+1 and k = number of bits in value minus one. encodeValue
// follows the category prefix with a (2k+1)-bit body: k zero bits, then
// value in the low-order k+1 bits.
func expGolombSplit(n uint32) (k uint, value uint32) {
	value = n + 1
	k = uint(bits.Len32(value)) - 1
	return k, value
}

// encodeValue writes `prefix` (prefixBits wide) followed by the Exp-Golomb
// body for n, returning the combined code and its total bit length.
func encodeValue(prefix uint32, prefixBits uint, n uint32) (code uint32, length uint) {
	k, value := expGolombSplit(n)
	bodyLen := 2*k + 1
	length = prefixBits + bodyLen
	code = (prefix << bodyLen) | value
	return code, length
}

// MagnitudeCode returns the codeword and bit length for the unsigned
// coefficient magnitude mag (mag >= 1; mag == 0 is never coded directly —
// a zero coefficient is always part of a run). The sign bit is not part
// of the returned codeword; callers must emit it immediately afterward.
func (cs *Codeset) MagnitudeCode(mag uint32) (code uint32, length uint) {
	mag = cs.compand(mag)
	return encodeValue(catMagnitudePrefix, catMagnitudeBits, mag-1)
}

// RunCode returns the codeword and bit length for a zero-run of length n
// (1 <= n <= MaxRunLength).
func (cs *Codeset) RunCode(n uint32) (code uint32, length uint) {
	return encodeValue(catRunPrefix, catRunBits, n-1)
}

// SpecialCode returns the codeword and bit length for special marker id
// (e.g. SpecialBandEnd).
func (cs *Codeset) SpecialCode(id uint32) (code uint32, length uint) {
	return encodeValue(catSpecialPrefix, catSpecialBits, id)
}

// compand applies the codeset's companding curve (if enabled) to a
// coefficient magnitude before it is coded.
func (cs *Codeset) compand(mag uint32) uint32 {
	if cs.Flags&CompandingCubic == 0 {
		return mag
	}
	cs.once.Do(cs.buildCubicTable)
	if int(mag) < len(cs.cubicTable) {
		return uint32(cs.cubicTable[mag])
	}
	return mag
}

// buildCubicTable computes the cubic companding curve per
// original_source/common/include/companding.h's ComputeCubicTable: maps
// linear magnitude index i in [0, cubicTableLength) to
// round((i/(cubicTableLength-1))^3 * cubicMaximum), clamped to
// cubicMaximum. The curve is flat near zero and steep near the top, so
// small magnitudes shrink and large ones grow (1000 maps to 3820).
const (
	cubicTableLength = 2048
	cubicMaximum     = 32767
)

func (cs *Codeset) buildCubicTable() {
	table := make([]int16, cubicTableLength)
	n := float64(cubicTableLength - 1)
	for i := 0; i < cubicTableLength; i++ {
		x := float64(i) / n
		// Cubic curve through (0,0) and (1,1), gentler slope near zero.
		y := x * x * x
		v := int64(y*float64(cubicMaximum) + 0.5)
		if v > cubicMaximum {
			v = cubicMaximum
		}
		table[i] = int16(v)
	}
	cs.cubicTable = table
}
