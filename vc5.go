// Package vc5 implements the VC-5 (SMPTE ST 2073) wavelet image codec
// core: the tag-value-pair bitstream container, the 2-6 lifting wavelet
// transform, and the codeset-17 run/magnitude entropy coder. Pixel-format
// packing between packed image formats (RGB, YCbCr, Bayer, DPX) and this
// codec's component-array model is an external-collaborator concern and
// is not performed here; see Image.
//
// Basic usage for decoding:
//
//	f, _ := os.Open("frame.vc5")
//	img, err := vc5.Decode(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Basic usage for encoding:
//
//	f, _ := os.Create("frame.vc5")
//	err := vc5.Encode(f, img, vc5.DefaultOptions())
package vc5

import (
	"image"
	"io"
	"log/slog"

	"github.com/vc5codec/vc5/internal/bitstream"
	"github.com/vc5codec/vc5/internal/wavelet"
)

// Format identifies the semantic mapping of an Image's channel planes
// (spec.md §3: "image format (RGBA | YCbCrA | Bayer | CFA) determining
// the semantic mapping").
type Format int

const (
	FormatRGBA Format = iota
	FormatYCbCrA
	FormatBayer
	FormatCFA
)

// String renders the format name for logging.
func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "RGBA"
	case FormatYCbCrA:
		return "YCbCrA"
	case FormatBayer:
		return "Bayer"
	case FormatCFA:
		return "CFA"
	default:
		return "Unknown"
	}
}

// TransformKind identifies the optional inverse component transform
// recorded by the 0x4001-0x4003 chunk tags (spec.md §6).
type TransformKind uint16

const (
	// TransformNone means no cross-component transform was applied; each
	// channel plane carries its own component unchanged.
	TransformNone TransformKind = iota
	// TransformRCT is the reversible component transform implemented by
	// internal/xform.Forward/Inverse.
	TransformRCT
)

// EnabledParts is a bitmask of optional VC-5 parts the codec should
// recognize (spec.md §9 design note: "preprocessor-conditional parts ->
// runtime enabled_parts bitmask").
type EnabledParts uint32

const (
	PartImageFormats EnabledParts = 1 << iota
	PartLayers
	PartSections
	PartMetadata
)

// Has reports whether every bit in want is set in p.
func (p EnabledParts) Has(want EnabledParts) bool {
	return p&want == want
}

// Config holds the decoding configuration (spec.md §4.5 codec state: the
// fields a decoder needs beyond the bitstream itself).
type Config struct {
	// DecodeArea names a sub-rectangle of the image, nil for the full
	// image. The decoder does not consult it: the returned Image always
	// covers the full image.
	DecodeArea *image.Rectangle

	// EnabledParts selects optional container parts. The decoder consults
	// only PartImageFormats and PartMetadata; section chunks are always
	// skipped and layer tags always applied, whatever the PartLayers and
	// PartSections bits say.
	EnabledParts EnabledParts

	// Logger receives the decoder's diagnostics: skipped section,
	// unrecognized and reserved transform chunks, metadata tuple names and
	// the image identifier at Debug, malformed metadata or identifier
	// chunks at Warn. Nil disables logging; it is never defaulted to
	// slog.Default() implicitly.
	Logger *slog.Logger
}

// Options holds the encoding configuration.
type Options struct {
	Format Format

	ChannelCount                int
	PatternWidth, PatternHeight int

	// Quantization is the per-subband quantization divisor, indexed by
	// canonical subband number 0-9 (spec.md §3). Zero is treated as one.
	Quantization [10]uint16

	// Prescale is the per-wavelet-level input right-shift applied before
	// the first lifting pass at that level (spec.md §4.3), indexed
	// [0]=W0 (finest) .. [2]=W2 (coarsest).
	Prescale [3]uint8

	MidpointPrequant int32
	LowpassPrecision uint16

	// ComponentTransform, when not TransformNone, is applied across the
	// first three channel planes before the wavelet transform and
	// recorded via the 0x4001 chunk so a decoder can invert it (spec.md
	// §6). ComponentPermutation, when non-nil, reorders channel planes
	// before ComponentTransform is applied and is recorded via the
	// 0x4002 chunk; its length must equal ChannelCount.
	ComponentTransform    TransformKind
	ComponentPermutation []int

	EnabledParts EnabledParts
	Logger       *slog.Logger
}

// DefaultOptions returns the identity (lossless) encoding configuration:
// quantization 1 on every subband, prescale 0, midpoint prequant 2,
// lowpass precision 16 (spec.md §8: "identity quantization table —
// quantization of 1 on every subband, prescale 0").
func DefaultOptions() *Options {
	o := &Options{
		Format:           FormatRGBA,
		ChannelCount:     3,
		PatternWidth:     1,
		PatternHeight:    1,
		MidpointPrequant: wavelet.DefaultMidpointPrequant,
		LowpassPrecision: bitstream.DefaultLowpassPrecision,
	}
	for i := range o.Quantization {
		o.Quantization[i] = 1
	}
	return o
}

// Decode reads a VC-5 codestream from r and returns it as an image.Image
// (concretely *Image; see Image's doc for why packed pixel formats are
// not produced directly).
func Decode(r io.Reader) (image.Image, error) {
	return DecodeConfig(r, nil)
}

// DecodeConfig decodes a VC-5 codestream with the given configuration.
func DecodeConfig(r io.Reader, cfg *Config) (image.Image, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	d := newDecoder(r, cfg)
	return d.decode()
}

// Encode writes m to w as a VC-5 codestream. m must be a *vc5.Image — this
// package performs no conversion from other image.Image representations,
// since that conversion (pixel-format packing) is out of scope (spec.md
// §1 Non-goals).
func Encode(w io.Writer, m image.Image, o *Options) error {
	if o == nil {
		o = DefaultOptions()
	}
	img, ok := m.(*Image)
	if !ok {
		return newErr(KindPixelFormat, "encode")
	}
	e := newEncoder(w, img, o)
	return e.encode()
}

// DecodeMetadata reads only the header parameters (dimensions, channel
// count, format) without decoding any subband data.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	d := newDecoder(r, &Config{})
	return d.readMetadata()
}

// Metadata describes a VC-5 codestream's header without decoding pixels.
type Metadata struct {
	Width, Height int
	ChannelCount  int
	SubbandCount  int

	Format                      Format
	PatternWidth, PatternHeight int
	ComponentsPerSample         int

	BitsPerComponent    int
	MaxBitsPerComponent int
}

func init() {
	image.RegisterFormat("vc5",
		"\x56\x43\x2d\x35",
		func(r io.Reader) (image.Image, error) {
			return Decode(r)
		},
		func(r io.Reader) (image.Config, error) {
			m, err := DecodeMetadata(r)
			if err != nil {
				return image.Config{}, err
			}
			return image.Config{Width: m.Width, Height: m.Height}, nil
		})
}
