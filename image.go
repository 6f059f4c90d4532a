package vc5

import (
	"image"
	"image/color"
)

// Image is the component-array-list this codec encodes and decodes
// (spec.md §3 "Component array": "rectangular grid of unsigned samples
// with width, height, byte pitch, bits-per-component ... one per color
// channel"). Converting between this representation and a packed pixel
// format (RGB, YCbCr 4:2:2/4:2:0, Bayer mosaic, 10-bit-packed DPX, ...) is
// an external-collaborator concern (spec.md §1 Non-goals) that this
// package does not perform; Image's ColorModel/At methods are therefore a
// raw, format-preserving passthrough of whichever channel plane a pixel
// position maps to, not a color-managed rendering — callers that need a
// demosaiced or color-converted view must do that conversion themselves.
type Image struct {
	Format Format

	// Width, Height are the image's sample dimensions; may be odd (an odd
	// dimension is padded to even internally during the wavelet transform
	// but the Image's own dimensions are never rounded — spec.md §8).
	Width, Height int

	PatternWidth, PatternHeight int
	ComponentsPerSample         int

	BitsPerComponent int

	// Channels holds one plane per channel, row-major, each
	// ChannelWidth() x ChannelHeight() samples.
	Channels [][]uint16
}

// ceilDiv returns ceil(n/d) for positive d.
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// ChannelWidth and ChannelHeight return the per-channel plane dimensions
// implied by Width/Height and the pattern (spec.md §3: "the two chroma
// channels have halved pattern dimensions" generalizes to any pattern
// size).
func (im *Image) ChannelWidth() int  { return ceilDiv(im.Width, im.PatternWidth) }
func (im *Image) ChannelHeight() int { return ceilDiv(im.Height, im.PatternHeight) }

// NewImage allocates an Image with zeroed channel planes of the correct
// dimensions for the given format/pattern/size, validating the
// format/pattern/dimension constraints spec.md §3/§4.4 place on header
// parameters (ErrorKind::BadImageFormat, ErrorKind::PatternDimensions).
func NewImage(format Format, width, height, patternWidth, patternHeight, channelCount, bitsPerComponent int) (*Image, error) {
	componentsPerSample := componentsPerSampleFor(format, channelCount)
	if err := validateImageFormat(format, width, height, patternWidth, patternHeight, componentsPerSample); err != nil {
		return nil, err
	}
	im := &Image{
		Format:              format,
		Width:               width,
		Height:              height,
		PatternWidth:        patternWidth,
		PatternHeight:       patternHeight,
		ComponentsPerSample: componentsPerSample,
		BitsPerComponent:    bitsPerComponent,
		Channels:            make([][]uint16, channelCount),
	}
	cw, ch := im.ChannelWidth(), im.ChannelHeight()
	for i := range im.Channels {
		im.Channels[i] = make([]uint16, cw*ch)
	}
	return im, nil
}

// componentsPerSampleFor returns the ComponentsPerSample value spec.md §4
// ties to each format when a caller doesn't supply one directly: Bayer's
// mosaic carries one raw component per sample position; RGBA carries 3
// (no alpha) or 4 (alpha) components per sample, picked from the
// caller's channelCount; YCbCrA carries one component per channel
// (chroma subsampling, when present, is expressed via the pattern, not
// ComponentsPerSample).
func componentsPerSampleFor(format Format, channelCount int) int {
	switch format {
	case FormatBayer, FormatCFA, FormatYCbCrA:
		return 1
	default: // FormatRGBA
		if channelCount >= 4 {
			return 4
		}
		return 3
	}
}

// validateImageFormat enforces spec.md §4.4/§8's format/pattern/dimension
// rules: pattern dimensions must be positive and no larger than the
// image; a 1x1 image is always rejected (PatternDimensions for a
// patterned format, BadImageFormat otherwise); beyond that, spec.md §7's
// BadImageFormat condition ties each format to a components-per-sample
// and pattern constraint: Bayer/CFA require a 2x2 pattern and exactly 1
// component; RGBA requires a 1x1 pattern and 3 or 4 components; YCbCrA
// requires exactly 1 component, with either a 1x1 pattern or (when color
// sampling subsamples chroma) a larger one.
func validateImageFormat(format Format, width, height, patternWidth, patternHeight, componentsPerSample int) error {
	if patternWidth <= 0 || patternHeight <= 0 {
		return newErr(KindPatternDimensions, "validate image format")
	}
	if width < patternWidth || height < patternHeight {
		return newErr(KindPatternDimensions, "validate image format")
	}
	if width < 2 || height < 2 {
		if format == FormatBayer || format == FormatCFA {
			return newErr(KindPatternDimensions, "validate image format")
		}
		return newErr(KindBadImageFormat, "validate image format")
	}
	switch format {
	case FormatBayer, FormatCFA:
		if patternWidth != 2 || patternHeight != 2 {
			return newErr(KindBadImageFormat, "validate image format")
		}
		if componentsPerSample != 1 {
			return newErr(KindBadImageFormat, "validate image format")
		}
	case FormatRGBA:
		if patternWidth != 1 || patternHeight != 1 {
			return newErr(KindBadImageFormat, "validate image format")
		}
		if componentsPerSample != 3 && componentsPerSample != 4 {
			return newErr(KindBadImageFormat, "validate image format")
		}
	case FormatYCbCrA:
		if componentsPerSample != 1 {
			return newErr(KindBadImageFormat, "validate image format")
		}
	}
	return nil
}

// ColorModel implements image.Image. Bayer/CFA images expose raw mosaic
// samples as grayscale (no demosaicing is performed); RGBA/YCbCrA images
// expose their first 3-4 channels directly as NRGBA64.
func (im *Image) ColorModel() color.Model {
	if im.Format == FormatBayer || im.Format == FormatCFA {
		return color.Gray16Model
	}
	return color.NRGBA64Model
}

// Bounds implements image.Image.
func (im *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, im.Width, im.Height)
}

// At implements image.Image as a raw passthrough of the channel plane(s)
// covering (x, y) — see the package doc on Image for why this is not a
// demosaiced or color-converted rendering.
func (im *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= im.Width || y >= im.Height {
		return color.Gray16{}
	}
	cw := im.ChannelWidth()
	cx, cy := x/im.PatternWidth, y/im.PatternHeight

	if im.Format == FormatBayer || im.Format == FormatCFA {
		chIdx := (y%im.PatternHeight)*im.PatternWidth + (x % im.PatternWidth)
		if chIdx >= len(im.Channels) {
			return color.Gray16{}
		}
		return color.Gray16{Y: im.sample(chIdx, cx, cy, cw)}
	}

	get := func(i int) uint16 {
		if i >= len(im.Channels) {
			return 0
		}
		return im.sample(i, cx, cy, cw)
	}
	a := uint16(0xFFFF)
	if len(im.Channels) >= 4 {
		a = get(3)
	}
	return color.NRGBA64{R: get(0), G: get(1), B: get(2), A: a}
}

func (im *Image) sample(channel, cx, cy, cw int) uint16 {
	plane := im.Channels[channel]
	idx := cy*cw + cx
	if idx < 0 || idx >= len(plane) {
		return 0
	}
	return plane[idx]
}

var _ image.Image = (*Image)(nil)
