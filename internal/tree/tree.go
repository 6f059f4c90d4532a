// Package tree models the per-channel wavelet transform tree: a fixed
// three-level sequence of four-band wavelets (spec.md §3 "Transform
// tree (per channel)"), collapsed from the teacher's tile/resolution/
// band/precinct/packet model (internal/tcd) down to VC-5's flat,
// precinct-less, packet-less structure.
package tree

import "fmt"

// Band indices within a Wavelet, matching the reference's WAVELET_BAND
// enum (original_source/common/include/wavelet.h): LL=0, LH=1, HL=2,
// HH=3.
const (
	BandLL = 0
	BandLH = 1
	BandHL = 2
	BandHH = 3
)

// Levels is the number of wavelet levels this core always uses (spec.md
// §3: "the three-level spatial transform fixed by this core").
const Levels = 3

// Band is one of the four rectangular coefficient arrays produced at a
// wavelet level.
type Band struct {
	Width, Height int
	Quant         uint16
	Scale         uint16
	Data          []int16
	valid         bool
}

// NewBand allocates a zeroed band of the given dimensions.
func NewBand(width, height int) *Band {
	return &Band{Width: width, Height: height, Quant: 1, Data: make([]int16, width*height)}
}

// Valid reports whether this band has been written (encode) or decoded
// (decode).
func (b *Band) Valid() bool {
	return b.valid
}

// MarkValid marks the band as populated.
func (b *Band) MarkValid() {
	b.valid = true
}

// Wavelet is the four-band output of one level of decomposition, plus
// the dimensions and valid-band mask shared by its bands (spec.md §3
// "Wavelet").
type Wavelet struct {
	Width, Height int // dimensions of each band
	Bands         [4]*Band
	validMask     uint8 // 4-bit mask, bit i set when Bands[i] is valid
}

// NewWavelet allocates a wavelet whose four bands each have the given
// width/height (the half-resolution, rounded-up dimensions of its
// parent; spec.md §3: "width, height (of each band, equal to half the
// input at that level rounded up)").
func NewWavelet(width, height int) *Wavelet {
	w := &Wavelet{Width: width, Height: height}
	for i := range w.Bands {
		w.Bands[i] = NewBand(width, height)
	}
	return w
}

// ErrInvalidBand is returned for a band index outside [0, 3]
// (spec.md §7: ErrorKind::InvalidBand).
var ErrInvalidBand = fmt.Errorf("tree: band index out of range [0, 3]")

// MarkBandValid marks bandIndex as decoded/encoded and updates the
// wavelet's valid-band mask.
func (w *Wavelet) MarkBandValid(bandIndex int) error {
	if bandIndex < 0 || bandIndex > 3 {
		return ErrInvalidBand
	}
	w.Bands[bandIndex].MarkValid()
	w.validMask |= 1 << uint(bandIndex)
	return nil
}

// ValidMask returns the wavelet's current 4-bit valid-band mask.
func (w *Wavelet) ValidMask() uint8 {
	return w.validMask
}

// AllBandsValid reports whether all four bands are valid (mask ==
// 0b1111).
func (w *Wavelet) AllBandsValid() bool {
	return w.validMask == 0b1111
}

// HalfUp returns ceil(n/2), the rounding rule used at every wavelet
// level (spec.md §3: "inputs are padded to even before decomposition").
func HalfUp(n int) int {
	return (n + 1) / 2
}

// Channel holds the three-level transform tree for one color channel:
// Wavelets[0] is level 1 (finest, W0), Wavelets[1] is level 2 (W1),
// Wavelets[2] is level 3 (coarsest, W2) — matching spec.md §3's ordered
// sequence [W0, W1, W2].
type Channel struct {
	Wavelets [Levels]*Wavelet
}

// NewChannel builds the empty three-level tree for a channel of the
// given component dimensions: W0 is ceil(width/2) x ceil(height/2), and
// each subsequent level halves again with rounding-up padding.
func NewChannel(width, height int) *Channel {
	var c Channel
	w, h := width, height
	for level := 0; level < Levels; level++ {
		w, h = HalfUp(w), HalfUp(h)
		c.Wavelets[level] = NewWavelet(w, h)
	}
	return &c
}

// TopLevel returns the coarsest wavelet (W2), the one whose bands are
// all taken directly from the bitstream with no reconstructed LL.
func (c *Channel) TopLevel() *Wavelet {
	return c.Wavelets[Levels-1]
}

// Complete reports the end-of-decode condition for this channel
// (spec.md §4.4: "every channel's top-level wavelet has all four bands
// valid").
func (c *Channel) Complete() bool {
	return c.TopLevel().AllBandsValid()
}

// subbandTable is the canonical subband-number -> (waveletIndex,
// bandIndex) mapping for a 3-level transform (spec.md §3).
var subbandTable = [10][2]int{
	{2, BandLL}, {2, BandLH}, {2, BandHL}, {2, BandHH},
	{1, BandLH}, {1, BandHL}, {1, BandHH},
	{0, BandLH}, {0, BandHL}, {0, BandHH},
}

// SubbandLocation maps a global subband number (0-9) to its
// (waveletIndex, bandIndex) within a channel's transform tree.
func SubbandLocation(subband int) (waveletIndex, bandIndex int, err error) {
	if subband < 0 || subband >= len(subbandTable) {
		return 0, 0, fmt.Errorf("tree: subband number %d out of range [0, 9]", subband)
	}
	loc := subbandTable[subband]
	return loc[0], loc[1], nil
}

// SubbandNumber is the inverse of SubbandLocation, used by the encoder
// to emit subbands in canonical order 0..9 (spec.md §3).
func SubbandNumber(waveletIndex, bandIndex int) (int, error) {
	for n, loc := range subbandTable {
		if loc[0] == waveletIndex && loc[1] == bandIndex {
			return n, nil
		}
	}
	return 0, fmt.Errorf("tree: no canonical subband for wavelet %d band %d", waveletIndex, bandIndex)
}

// Band looks up the band for a given global subband number.
func (c *Channel) Band(subband int) (*Band, error) {
	waveletIndex, bandIndex, err := SubbandLocation(subband)
	if err != nil {
		return nil, err
	}
	return c.Wavelets[waveletIndex].Bands[bandIndex], nil
}

// MarkSubbandValid marks the given global subband number as decoded.
func (c *Channel) MarkSubbandValid(subband int) error {
	waveletIndex, bandIndex, err := SubbandLocation(subband)
	if err != nil {
		return err
	}
	return c.Wavelets[waveletIndex].MarkBandValid(bandIndex)
}
