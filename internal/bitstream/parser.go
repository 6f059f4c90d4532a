package bitstream

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors returned by Parser.Dispatch, distinguishable via
// errors.Is so the root decoder can map them to the right error Kind
// (spec.md §7) without parsing error text.
var (
	ErrDuplicateHeaderParameter = errors.New("bitstream: duplicate header parameter")
	ErrMissingRequiredParameter = errors.New("bitstream: missing required header parameter")
	ErrUnexpectedTag            = errors.New("bitstream: unexpected tag for current phase")
)

// Phase identifies which state-machine phase the parser is in
// (spec.md §4.4's header/channel/subband states).
type Phase int

const (
	PhaseHeader Phase = iota
	PhaseChannel
	PhaseSubband
)

// SegmentReader is the minimal tag/value segment source the parser
// needs; internal/bio.Reader plus a 16-bit value read satisfies it via
// ReadSegment below.
type SegmentReader interface {
	ReadBits(n uint) (uint32, error)
}

// ReadSegment reads one 4-byte tag-value segment: a 16-bit signed tag
// followed by a 16-bit value (spec.md §6: "Segment: 4 bytes = one
// tag-value pair").
func ReadSegment(r SegmentReader) (Tag, uint16, error) {
	rawTag, err := r.ReadBits(16)
	if err != nil {
		return 0, 0, err
	}
	value, err := r.ReadBits(16)
	if err != nil {
		return 0, 0, err
	}
	return Tag(int16(rawTag)), uint16(value), nil
}

// Parser drives the decoder's tag-value state machine (spec.md §4.4,
// §9: "keep it as a switch/match on the tag, but split handlers into
// (a) header parameters, (b) channel/subband parameters, (c) chunk
// tags").
type Parser struct {
	Header  *Header
	Channel ChannelState
	Subband SubbandState
	Layer   LayerState

	phase           Phase
	subbandsSeenAny bool
}

// NewParser creates a parser in the header phase.
func NewParser(imageFormatEnabled bool) *Parser {
	h := NewHeader()
	h.ImageFormatEnabled = imageFormatEnabled
	return &Parser{Header: h, phase: PhaseHeader}
}

// Phase reports the parser's current state-machine phase.
func (p *Parser) Phase() Phase {
	return p.phase
}

// Event describes the effect of dispatching one segment, so the caller
// (the root decoder) can drive tree/codebook work without this package
// needing to depend on internal/tree or internal/codebook.
type Event struct {
	HeaderFinished bool
	EnteredChannel bool
	EnteredSubband bool
	Chunk          *ChunkEvent
}

// ChunkEvent describes a chunk segment that the caller must act on:
// either dispatch to the codebook (TagLargeCodeblock), hand off to
// internal/metadata, or skip PayloadSegments*4 bytes.
type ChunkEvent struct {
	Tag      Tag
	Segments int
}

// Dispatch consumes one tag/value segment and updates parser state,
// following spec.md §4.4's header -> channel -> subband -> chunk
// transitions. It returns an *Error-free plain error for the caller to
// wrap with the appropriate Kind (DuplicateHeaderParameter,
// RequiredParameter, BitstreamSyntax, LowpassPrecision, ...); see
// root-level decoder.go.
func (p *Parser) Dispatch(tag Tag, value uint16) (Event, error) {
	var ev Event

	if p.phase == PhaseHeader {
		if ok, dup := p.Header.Apply(tag, value); ok {
			if dup {
				return ev, fmt.Errorf("%w: %v", ErrDuplicateHeaderParameter, tag)
			}
			return ev, nil
		}
		// Any non-header tag — including a channel tag, subband tag, or
		// codeblock — finishes the header.
		if missing, has := p.Header.MissingRequired(); has {
			return ev, fmt.Errorf("%w: %v", ErrMissingRequiredParameter, missing)
		}
		p.Header.Finished = true
		p.phase = PhaseChannel
		ev.HeaderFinished = true
	}

	if p.phase == PhaseChannel {
		if tag == TagChannelNumber {
			p.Channel = ChannelState{}
			p.Channel.Apply(tag, value)
			p.Subband = SubbandState{}
			p.subbandsSeenAny = false
			ev.EnteredChannel = true
			p.phase = PhaseSubband
			return ev, nil
		}
		if p.Channel.Apply(tag, value) {
			return ev, nil
		}
	}

	if p.phase == PhaseSubband {
		if tag == TagChannelNumber {
			// A new channel header arriving mid-subband starts the next
			// channel's sequence from scratch.
			p.Channel = ChannelState{}
			p.Channel.Apply(tag, value)
			p.Subband = SubbandState{}
			p.subbandsSeenAny = false
			ev.EnteredChannel = true
			return ev, nil
		}
		if p.Channel.Apply(tag, value) {
			return ev, nil
		}
		beforeFirst := !p.subbandsSeenAny
		if tag == TagSubbandNumber {
			p.subbandsSeenAny = true
		}
		if ok, err := p.Subband.Apply(tag, value, beforeFirst); ok {
			if err != nil {
				return ev, err
			}
			ev.EnteredSubband = true
			return ev, nil
		}
	}

	if kind := tag.Kind(); kind != NotChunk {
		ev.Chunk = &ChunkEvent{Tag: tag, Segments: tag.PayloadSegments(value)}
		return ev, nil
	}

	if p.Layer.Apply(tag, value) {
		if tag == TagLayerNumber {
			// A new layer restarts the per-channel sequence from
			// scratch (spec.md §4.4: "one complete per-channel
			// sequence per layer").
			p.phase = PhaseChannel
		}
		return ev, nil
	}

	return ev, fmt.Errorf("%w: %v in phase %d", ErrUnexpectedTag, tag, p.phase)
}

// SkipChunk advances r past a chunk payload of n segments (4 bytes
// each), for chunks the caller chooses not to interpret (spec.md §4.4:
// "decoders may skip a section by consuming its payload").
func SkipChunk(r io.Reader, segments int) error {
	if segments <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, r, int64(segments)*4)
	return err
}
