// Package bitstream implements the VC-5 tag-value-pair container syntax:
// marker/tag constants, the header/channel/subband parameter state
// machine, and the optional section/layer/metadata-chunk elements
// (spec.md §4.4, §6).
package bitstream

// StartMarker is the 32-bit constant that must open every bitstream
// ("VC-5" in ASCII).
const StartMarker uint32 = 0x56432D35

// Tag is a 16-bit signed tag identifying one segment's parameter or
// chunk kind. A negative tag marks a segment that may be skipped by a
// decoder that does not recognize it (spec.md §4.4: "Segments whose tag
// is negative may be skipped").
type Tag int16

// IsOptional reports whether a decoder unfamiliar with this tag is
// permitted to skip it.
func (t Tag) IsOptional() bool {
	return t < 0
}

// Required header parameters (must appear exactly once before the first
// codeblock).
const (
	TagImageWidth  Tag = 20
	TagImageHeight Tag = 21
)

// Header parameters required only when the Image Formats part is
// enabled.
const (
	TagImageFormat         Tag = 84
	TagPatternWidth        Tag = 106
	TagPatternHeight       Tag = 107
	TagComponentsPerSample Tag = 108
)

// Recognized header parameters permitted at most once each.
const (
	TagChannelCount      Tag = 12
	TagSubbandCount      Tag = 14
	TagBitsPerComponent  Tag = 101
	TagMaxBitsPerComponent Tag = 102
)

// Per-channel and per-subband parameters.
const (
	TagSubbandNumber  Tag = 48
	TagQuantization   Tag = 53
	TagLowpassPrecision Tag = 35
	TagPrescaleShift  Tag = 109
	TagChannelNumber  Tag = 62
	TagChannelWidth   Tag = 104
	TagChannelHeight  Tag = 105
)

// Layer parameters (optional part).
const (
	TagLayerCount   Tag = 120
	TagLayerNumber  Tag = 121
	TagLayerPattern Tag = 122
)

// Section parameters (optional part).
const (
	TagImageCount  Tag = 130
	TagImageNumber Tag = 131
)

// Chunk and section tags. These fall in the 0x2000/0x4000/0x6000 ranges;
// none of them are negative as a 16-bit signed Tag (the highest, 0x6100,
// is still well under the 0x8000 sign bit). The "negative = optional"
// convention in spec.md §4.4 therefore only ever applies to future or
// vendor-private tags outside this set — chunk-size encoding here is
// governed independently by the 0x2000/0x4000 bits (see Kind).
const (
	TagLargeCodeblock Tag = 0x6000

	TagSectionSubband Tag = 0x2000
	TagSectionWavelet Tag = 0x2100
	TagSectionChannel Tag = 0x2400
	TagSectionLayer   Tag = 0x2600
	TagSectionHeader  Tag = 0x2500
	TagSectionImage   Tag = 0x2700

	TagMetadataSmall Tag = 0x4010
	TagMetadataLarge Tag = 0x6100

	TagUniqueImageIdentifier Tag = 0x4004

	TagTransformBase Tag = 0x4001 // tags 0x4001-0x4003

	// TagTransformType carries the TransformKind applied to the channel
	// array before encoding (0 = none, 1 = reversible component
	// transform); TagTransformPermutation carries the component
	// permutation applied alongside it, one byte per output index.
	// 0x4003 is reserved and still recognized by IsTransform but has no
	// named constant of its own.
	TagTransformType        Tag = TagTransformBase
	TagTransformPermutation Tag = TagTransformBase + 1
)

// chunkLargeBit and chunkSmallBit classify a tag's payload-size encoding
// (spec.md §6): a tag with the large bit set carries a 24-bit segment
// count split across the tag's low byte and the value; otherwise a tag
// with the small bit set carries a 16-bit segment count in the value
// alone. The large bit takes priority when both are set (as in 0x6000 and
// 0x6100; the 0x2x00 section tags carry only the large bit, and 0x4010,
// 0x4004 and 0x4001-0x4003 only the small bit).
const (
	chunkLargeBit Tag = 0x2000
	chunkSmallBit Tag = 0x4000
)

// ChunkKind classifies how a tag's payload size is encoded.
type ChunkKind int

const (
	// NotChunk means this tag carries no payload of its own; it is a
	// plain single-segment parameter.
	NotChunk ChunkKind = iota
	SmallChunk
	LargeChunk
)

// Kind classifies t per chunkLargeBit/chunkSmallBit.
func (t Tag) Kind() ChunkKind {
	switch {
	case t&chunkLargeBit != 0:
		return LargeChunk
	case t&chunkSmallBit != 0:
		return SmallChunk
	default:
		return NotChunk
	}
}

// PayloadSegments computes the chunk payload size, in 4-byte segments,
// from a tag/value pair per this tag's ChunkKind.
func (t Tag) PayloadSegments(value uint16) int {
	switch t.Kind() {
	case LargeChunk:
		return int(uint32(t&0xFF)<<16 | uint32(value))
	case SmallChunk:
		return int(value)
	default:
		return 0
	}
}

// IsTransform reports whether t is one of the inverse component
// transform / permutation tags 0x4001-0x4003.
func IsTransform(t Tag) bool {
	return t >= TagTransformBase && t <= TagTransformBase+2
}
