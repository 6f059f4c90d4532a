package bitstream

// IsSectionTag reports whether tag is one of the nested-region section
// headers (spec.md §4.4: "headers tagged 0x2x00 mark nested regions").
// Section tags arrive through Parser.Dispatch as a ChunkEvent (they are
// all LargeChunk-kind, bit 0x2000 set); the caller uses IsSectionTag to
// decide whether to recurse into the region or simply skip it via
// SkipChunk.
func IsSectionTag(tag Tag) bool {
	switch tag {
	case TagSectionSubband, TagSectionWavelet, TagSectionChannel,
		TagSectionLayer, TagSectionHeader, TagSectionImage:
		return true
	default:
		return false
	}
}

// SectionName returns a short human-readable name for a section tag,
// for diagnostic logging.
func SectionName(tag Tag) string {
	switch tag {
	case TagSectionSubband:
		return "subband"
	case TagSectionWavelet:
		return "wavelet"
	case TagSectionChannel:
		return "channel"
	case TagSectionLayer:
		return "layer"
	case TagSectionHeader:
		return "header"
	case TagSectionImage:
		return "image"
	default:
		return "unknown"
	}
}
