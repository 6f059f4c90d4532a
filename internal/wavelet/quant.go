package wavelet

// DefaultMidpointPrequant is the default rounding addend applied before
// division in Quantize (spec.md §4.3: "midpoint_prequant defaults to 2").
const DefaultMidpointPrequant = 2

// Quantize divides each coefficient's magnitude by quant (sign
// preserved), rounding half-up-toward-zero with the midpoint addend:
// q(x) = (|x| + midpointPrequant) / quant, restoring sign afterward. A
// quant of zero is treated as one (spec.md §3: "unsigned, always
// positive — zero replaced by one on read"). A quant of one passes
// magnitude through unchanged — there is no division to round for, and
// spec.md §8 requires decode(encode(image)) = image under the identity
// quantization table (quant 1 on every subband), which the midpoint
// addend alone would otherwise violate.
func Quantize(data []int32, quant, midpointPrequant int32) []int32 {
	if quant <= 0 {
		quant = 1
	}
	out := make([]int32, len(data))
	if quant == 1 {
		copy(out, data)
		return out
	}
	for i, v := range data {
		sign := int32(1)
		mag := v
		if v < 0 {
			sign = -1
			mag = -v
		}
		out[i] = sign * ((mag + midpointPrequant) / quant)
	}
	return out
}

// Dequantize reconstructs coefficients from quantized values:
// dq(c) = c * quant, with an optional descale right-shift (applied when
// the corresponding prescale was 2; spec.md §4.3).
func Dequantize(data []int32, quant int32, descaleShift uint) []int32 {
	if quant <= 0 {
		quant = 1
	}
	out := make([]int32, len(data))
	for i, c := range data {
		v := c * quant
		if descaleShift > 0 {
			v >>= descaleShift
		}
		out[i] = v
	}
	return out
}

// Prescale right-shifts every input sample by shift (0-3) before it
// enters a wavelet level's forward filter; the encoder calls it before
// each of the three levels with that level's shift.
func Prescale(data []int32, shift uint) {
	if shift == 0 {
		return
	}
	for i, v := range data {
		data[i] = v >> shift
	}
}

// ClampInt16 clamps a coefficient to the signed 16-bit range that band
// storage uses (spec.md §4.3: "band storage clamps to 16-bit signed").
func ClampInt16(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
