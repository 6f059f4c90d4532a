package bitstream

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by SubbandState.Apply, distinguishable via
// errors.Is so the root decoder can map them to the right error Kind
// (spec.md §7) without parsing error text.
var (
	ErrLowpassPrecisionTiming = errors.New("bitstream: LowpassPrecision set after subband 0")
	ErrLowpassPrecisionRange  = errors.New("bitstream: lowpass precision outside [8, 32]")
	ErrPrescaleShiftDuplicate = errors.New("bitstream: PrescaleShift set more than once")
)

// Header accumulates the required/recognized top-level parameters
// consumed before the first codeblock (spec.md §4.4 "Header state").
// Each field has a companion "seen" flag so a second occurrence of the
// same parameter can be reported as DuplicateHeaderParameter by the
// caller.
type Header struct {
	Width  uint16
	Height uint16

	ImageFormatEnabled bool // set by the caller before parsing, per enabled_parts

	ImageFormat         uint16
	PatternWidth        uint16
	PatternHeight       uint16
	ComponentsPerSample uint16

	ChannelCount        uint16
	SubbandCount        uint16
	BitsPerComponent    uint16
	MaxBitsPerComponent uint16

	seen map[Tag]bool

	Finished bool
}

// NewHeader returns an empty Header ready to accumulate parameters.
func NewHeader() *Header {
	return &Header{seen: make(map[Tag]bool)}
}

// required lists the header tags that must appear exactly once before
// the header is finished; ImageFormat/PatternWidth/PatternHeight/
// ComponentsPerSample are appended when ImageFormatEnabled is set.
func (h *Header) required() []Tag {
	req := []Tag{TagImageWidth, TagImageHeight}
	if h.ImageFormatEnabled {
		req = append(req, TagImageFormat, TagPatternWidth, TagPatternHeight, TagComponentsPerSample)
	}
	return req
}

// Apply consumes one header-state tag/value pair, reporting duplicate=true
// if the parameter has already been seen (the caller turns that into an
// error of Kind DuplicateHeaderParameter). Apply reports ok=false for tags
// that do not belong to the header state at all, so the caller's state
// machine can try channel/subband/chunk dispatch instead.
func (h *Header) Apply(tag Tag, value uint16) (ok bool, duplicate bool) {
	if h.seen[tag] {
		switch tag {
		case TagImageWidth, TagImageHeight, TagImageFormat, TagPatternWidth,
			TagPatternHeight, TagComponentsPerSample, TagChannelCount,
			TagSubbandCount, TagBitsPerComponent, TagMaxBitsPerComponent:
			return true, true
		}
	}

	switch tag {
	case TagImageWidth:
		h.Width = value
	case TagImageHeight:
		h.Height = value
	case TagImageFormat:
		h.ImageFormat = value
	case TagPatternWidth:
		h.PatternWidth = value
	case TagPatternHeight:
		h.PatternHeight = value
	case TagComponentsPerSample:
		h.ComponentsPerSample = value
	case TagChannelCount:
		h.ChannelCount = value
	case TagSubbandCount:
		h.SubbandCount = value
	case TagBitsPerComponent:
		h.BitsPerComponent = value
	case TagMaxBitsPerComponent:
		h.MaxBitsPerComponent = value
	default:
		return false, false
	}
	h.seen[tag] = true
	return true, false
}

// MissingRequired returns the first required parameter tag not yet seen,
// or (0, false) if all required parameters are present.
func (h *Header) MissingRequired() (Tag, bool) {
	for _, tag := range h.required() {
		if !h.seen[tag] {
			return tag, true
		}
	}
	return 0, false
}

// ChannelState tracks the parameters accumulated while consuming one
// channel's ChannelNumber/ChannelWidth/ChannelHeight/BitsPerComponent
// segments (spec.md §4.4 "Channel state").
type ChannelState struct {
	Number uint16
	Width  uint16
	Height uint16

	BitsPerComponent    uint16
	HasBitsPerComponent bool
	HasWidth, HasHeight bool
}

// Apply consumes one channel-state tag/value pair.
func (c *ChannelState) Apply(tag Tag, value uint16) (ok bool) {
	switch tag {
	case TagChannelNumber:
		c.Number = value
	case TagChannelWidth:
		c.Width = value
		c.HasWidth = true
	case TagChannelHeight:
		c.Height = value
		c.HasHeight = true
	case TagBitsPerComponent:
		c.BitsPerComponent = value
		c.HasBitsPerComponent = true
	default:
		return false
	}
	return true
}

// SubbandState tracks the parameters accumulated while consuming one
// subband's SubbandNumber/Quantization/LowpassPrecision/PrescaleShift
// segments (spec.md §4.4 "Subband state").
type SubbandState struct {
	Number        uint16
	Quantization  uint16
	LowpassPrecision uint16 // only valid/settable before subband 0
	PrescaleShift [3]uint8 // packed 2 bits per wavelet level, set once

	prescaleSet bool
}

// DefaultLowpassPrecision is used when the bitstream never sets it
// explicitly (spec.md §3: "default 16").
const DefaultLowpassPrecision = 16

// Apply consumes one subband-state tag/value pair. beforeFirstSubband
// gates whether LowpassPrecision may still be set (spec.md §4.4:
// "LowpassPrecision (only before subband 0)").
func (s *SubbandState) Apply(tag Tag, value uint16, beforeFirstSubband bool) (ok bool, err error) {
	switch tag {
	case TagSubbandNumber:
		s.Number = value
	case TagQuantization:
		s.Quantization = value
	case TagLowpassPrecision:
		if !beforeFirstSubband {
			return true, ErrLowpassPrecisionTiming
		}
		if value < 8 || value > 32 {
			return true, fmt.Errorf("%w: got %d", ErrLowpassPrecisionRange, value)
		}
		s.LowpassPrecision = value
	case TagPrescaleShift:
		if s.prescaleSet {
			return true, ErrPrescaleShiftDuplicate
		}
		s.PrescaleShift[0] = uint8(value & 0x3)
		s.PrescaleShift[1] = uint8((value >> 2) & 0x3)
		s.PrescaleShift[2] = uint8((value >> 4) & 0x3)
		s.prescaleSet = true
	default:
		return false, nil
	}
	return true, nil
}

// EffectiveQuantization returns s.Quantization, or 1 if it is zero
// (spec.md §3: "zero replaced by one on read").
func (s *SubbandState) EffectiveQuantization() uint16 {
	if s.Quantization == 0 {
		return 1
	}
	return s.Quantization
}
