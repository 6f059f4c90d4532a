package vc5

import (
	"errors"
	"image"
	"io"
	"log/slog"

	"github.com/vc5codec/vc5/internal/bio"
	"github.com/vc5codec/vc5/internal/bitstream"
	"github.com/vc5codec/vc5/internal/codebook"
	"github.com/vc5codec/vc5/internal/metadata"
	"github.com/vc5codec/vc5/internal/tree"
	"github.com/vc5codec/vc5/internal/wavelet"
	"github.com/vc5codec/vc5/internal/xform"
)

// channelState is the per-channel decode-time state: the transform tree
// being filled in as subbands arrive, plus the header parameters that
// apply to it (spec.md §4.4 "Channel state"/"Subband state").
type channelState struct {
	tree *tree.Channel

	width, height    int
	bitsPerComponent int
	lowpassPrecision uint16
	prescale         [3]uint8

	output []int32 // set once the channel's W0 is fully reconstructed; still
	// signed since invertComponentTransform may need to run before the
	// final unsigned narrowing in assembleImage
}

// decoder walks a VC-5 codestream segment by segment, driving
// internal/bitstream.Parser's state machine and, for each codeblock
// chunk, the internal/tree/internal/wavelet/internal/codebook pipeline
// (spec.md §5 "Codec state & orchestration").
type decoder struct {
	br     *bio.Reader
	cfg    *Config
	parser *bitstream.Parser
	codeset *codebook.Codeset

	channels map[uint16]*channelState
	order    []uint16

	// transformKind/permutation record the optional inverse component
	// transform chunk (0x4001/0x4002), applied in assembleImage via
	// invertComponentTransform once every channel is reconstructed.
	transformKind TransformKind
	permutation   []int

	logger *slog.Logger
}

func newDecoder(r io.Reader, cfg *Config) *decoder {
	return &decoder{
		br:       bio.NewReader(r),
		cfg:      cfg,
		parser:   bitstream.NewParser(cfg.EnabledParts.Has(PartImageFormats)),
		codeset:  codebook.CS17,
		channels: make(map[uint16]*channelState),
		logger:   cfg.Logger,
	}
}

// decode reads the full codestream and reconstructs every channel.
func (d *decoder) decode() (image.Image, error) {
	if err := d.readStartMarker(); err != nil {
		return nil, err
	}
	if err := d.run(); err != nil {
		return nil, err
	}
	return d.assembleImage()
}

// readMetadata reads only the header parameters, stopping at the first
// non-header tag (spec.md §5: "DecodeMetadata ... without decoding any
// subband data").
func (d *decoder) readMetadata() (*Metadata, error) {
	if err := d.readStartMarker(); err != nil {
		return nil, err
	}
	for {
		tag, value, err := bitstream.ReadSegment(d.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrapErr(KindStreamUnderflow, "read segment", err)
		}
		ev, err := d.parser.Dispatch(tag, value)
		if err != nil {
			return nil, classifyDispatchError(err)
		}
		if ev.HeaderFinished {
			break
		}
	}

	h := d.parser.Header
	if !h.Finished {
		return nil, newErr(KindRequiredParameter, "read metadata")
	}

	m := &Metadata{
		Width:               int(h.Width),
		Height:              int(h.Height),
		ChannelCount:        int(h.ChannelCount),
		SubbandCount:        int(h.SubbandCount),
		BitsPerComponent:    int(h.BitsPerComponent),
		MaxBitsPerComponent: int(h.MaxBitsPerComponent),
	}
	if h.ImageFormatEnabled {
		m.Format = Format(h.ImageFormat)
		m.PatternWidth = int(h.PatternWidth)
		m.PatternHeight = int(h.PatternHeight)
		m.ComponentsPerSample = int(h.ComponentsPerSample)
	} else {
		m.PatternWidth, m.PatternHeight, m.ComponentsPerSample = 1, 1, 1
	}
	return m, nil
}

// readStartMarker validates the 4-byte start marker before any
// allocation (spec.md §8: "missing start marker -> MissingStartMarker,
// no allocation").
func (d *decoder) readStartMarker() error {
	v, err := d.br.ReadBits(32)
	if err != nil {
		return wrapErr(KindStreamUnderflow, "read start marker", err)
	}
	if v != bitstream.StartMarker {
		return newErr(KindMissingStartMarker, "read start marker")
	}
	return nil
}

// run drives the segment loop until EOF, then checks every channel
// reconstructed to completion.
func (d *decoder) run() error {
	for {
		tag, value, err := bitstream.ReadSegment(d.br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return wrapErr(KindStreamUnderflow, "read segment", err)
		}
		ev, err := d.parser.Dispatch(tag, value)
		if err != nil {
			return classifyDispatchError(err)
		}
		if ev.Chunk != nil {
			if err := d.handleChunk(ev); err != nil {
				return err
			}
		}
	}
	return d.checkComplete()
}

// classifyDispatchError maps a bitstream.Parser.Dispatch error to the
// corresponding vc5.Kind via errors.Is, rather than matching error text.
func classifyDispatchError(err error) error {
	switch {
	case errors.Is(err, bitstream.ErrDuplicateHeaderParameter):
		return wrapErr(KindDuplicateHeaderParameter, "parse header", err)
	case errors.Is(err, bitstream.ErrMissingRequiredParameter):
		return wrapErr(KindRequiredParameter, "parse header", err)
	case errors.Is(err, bitstream.ErrLowpassPrecisionTiming), errors.Is(err, bitstream.ErrLowpassPrecisionRange):
		return wrapErr(KindLowpassPrecision, "parse subband", err)
	default:
		return wrapErr(KindBitstreamSyntax, "dispatch tag", err)
	}
}

// handleChunk acts on a chunk event: entropy-decode a codeblock, parse a
// metadata/identifier chunk, or skip what this decoder does not
// interpret (spec.md §4.4: "decoders may skip a section by consuming
// its payload").
func (d *decoder) handleChunk(ev bitstream.Event) error {
	chunk := ev.Chunk
	switch {
	case chunk.Tag == bitstream.TagLargeCodeblock:
		return d.decodeCodeblock(chunk.Segments)
	case chunk.Tag == bitstream.TagUniqueImageIdentifier:
		return d.readImageIdentifier(chunk.Segments)
	case chunk.Tag == bitstream.TagMetadataSmall || chunk.Tag == bitstream.TagMetadataLarge:
		return d.readMetadataChunk(chunk.Segments)
	case bitstream.IsSectionTag(chunk.Tag):
		if d.logger != nil {
			d.logger.Debug("skipping section", "name", bitstream.SectionName(chunk.Tag))
		}
		return d.skipChunk(chunk.Segments)
	case bitstream.IsTransform(chunk.Tag):
		return d.readComponentTransformChunk(chunk.Tag, chunk.Segments)
	default:
		if d.logger != nil {
			d.logger.Debug("skipping unrecognized chunk", "tag", int(chunk.Tag))
		}
		return d.skipChunk(chunk.Segments)
	}
}

func (d *decoder) skipChunk(segments int) error {
	for i := 0; i < segments; i++ {
		if _, err := d.br.ReadBits(32); err != nil {
			return wrapErr(KindStreamUnderflow, "skip chunk", err)
		}
	}
	return nil
}

func (d *decoder) readBytes(segments int) ([]byte, error) {
	buf := make([]byte, segments*4)
	for i := range buf {
		b, err := d.br.ReadBits(8)
		if err != nil {
			return nil, wrapErr(KindStreamUnderflow, "read chunk payload", err)
		}
		buf[i] = byte(b)
	}
	return buf, nil
}

func (d *decoder) readMetadataChunk(segments int) error {
	buf, err := d.readBytes(segments)
	if err != nil {
		return err
	}
	if !d.cfg.EnabledParts.Has(PartMetadata) {
		return nil
	}
	tuples, perr := metadata.Parse(buf, true)
	if perr != nil {
		if d.logger != nil {
			d.logger.Warn("malformed metadata chunk", "err", perr)
		}
		return nil
	}
	if d.logger != nil {
		for _, t := range tuples {
			d.logger.Debug("metadata tuple", "name", t.Name())
		}
	}
	return nil
}

func (d *decoder) readImageIdentifier(segments int) error {
	buf, err := d.readBytes(segments)
	if err != nil {
		return err
	}
	if !d.cfg.EnabledParts.Has(PartMetadata) {
		return nil
	}
	id, uerr := metadata.UnmarshalImageIdentifier(buf)
	if uerr != nil {
		if d.logger != nil {
			d.logger.Warn("malformed image identifier chunk", "err", uerr)
		}
		return nil
	}
	if d.logger != nil {
		d.logger.Debug("image identifier", "uuid", id.ID.String(), "sequence", id.Sequence)
	}
	return nil
}

// readComponentTransformChunk parses the 0x4001 (transform kind) or
// 0x4002 (permutation) chunk payload (spec.md §6); 0x4003 is reserved
// and recognized by bitstream.IsTransform but carries no defined
// payload, so it is skipped like any other unread chunk.
func (d *decoder) readComponentTransformChunk(tag bitstream.Tag, segments int) error {
	buf, err := d.readBytes(segments)
	if err != nil {
		return err
	}
	switch tag {
	case bitstream.TagTransformType:
		if len(buf) >= 4 {
			d.transformKind = TransformKind(uint16(buf[2])<<8 | uint16(buf[3]))
		}
	case bitstream.TagTransformPermutation:
		n := int(d.parser.Header.ChannelCount)
		if n <= 0 || n > len(buf) {
			n = len(buf)
		}
		perm := make([]int, n)
		for i := 0; i < n; i++ {
			perm[i] = int(buf[i])
		}
		d.permutation = perm
	default:
		if d.logger != nil {
			d.logger.Debug("skipping reserved transform chunk", "tag", int(tag))
		}
	}
	return nil
}

// invertComponentTransform undoes, in the reverse of the encoder's
// order, whatever component transform and permutation
// readComponentTransformChunk recorded (spec.md §6): the component
// transform inverts first, while planes are still in encode-time
// (permuted) order, then the permutation inverts to restore each
// channel to its original index.
func (d *decoder) invertComponentTransform(planes [][]int32) [][]int32 {
	if d.transformKind == TransformRCT && len(planes) >= 3 {
		xform.Inverse(planes[0], planes[1], planes[2])
	}
	if d.permutation != nil {
		planes = xform.Permutation{Order: d.permutation}.Inverse().Apply(planes)
	}
	return planes
}

// channelDims derives a channel's plane dimensions from the header,
// either from the declared pattern (Image Formats enabled) or from the
// channel's own ChannelWidth/ChannelHeight tags.
func (d *decoder) channelDims() (width, height int, err error) {
	h := d.parser.Header
	if h.ImageFormatEnabled {
		pw, ph := int(h.PatternWidth), int(h.PatternHeight)
		if pw == 0 {
			pw = 1
		}
		if ph == 0 {
			ph = 1
		}
		return ceilDiv(int(h.Width), pw), ceilDiv(int(h.Height), ph), nil
	}
	if !d.parser.Channel.HasWidth || !d.parser.Channel.HasHeight {
		return 0, 0, newErr(KindRequiredParameter, "channel dimensions")
	}
	return int(d.parser.Channel.Width), int(d.parser.Channel.Height), nil
}

// channelFor returns the channelState for number, allocating its
// transform tree on first use (by the time a channel's first codeblock
// arrives, every Channel/Subband-state parameter that precedes it in the
// container grammar has already been applied by Parser.Dispatch).
func (d *decoder) channelFor(number uint16) (*channelState, error) {
	if cs, ok := d.channels[number]; ok {
		return cs, nil
	}
	width, height, err := d.channelDims()
	if err != nil {
		return nil, err
	}
	cs := &channelState{
		tree:             tree.NewChannel(width, height),
		width:            width,
		height:           height,
		bitsPerComponent: int(d.parser.Channel.BitsPerComponent),
		lowpassPrecision: d.parser.Subband.LowpassPrecision,
		prescale:         d.parser.Subband.PrescaleShift,
	}
	d.channels[number] = cs
	d.order = append(d.order, number)
	return cs, nil
}

// signExtend interprets the low `bits` bits of v as a two's-complement
// signed integer.
func signExtend(v uint32, bits uint16) int32 {
	shift := 32 - uint(bits)
	return int32(v<<shift) >> shift
}

// decodeCodeblock reads one subband's codeblock payload (raw bit-packed
// samples for the top-level lowpass band, entropy-coded run/magnitude
// symbols for every other band; spec.md §4.2/§6), dequantizes it, and
// cascades the wavelet reconstruction as far as the newly completed data
// allows (spec.md §4.3).
func (d *decoder) decodeCodeblock(segments int) error {
	cs, err := d.channelFor(d.parser.Channel.Number)
	if err != nil {
		return err
	}
	subband := int(d.parser.Subband.Number)
	waveletIdx, bandIdx, err := tree.SubbandLocation(subband)
	if err != nil {
		return wrapErr(KindInvalidBand, "decode codeblock", err)
	}
	w := cs.tree.Wavelets[waveletIdx]

	var coeffs []int32
	if waveletIdx == tree.Levels-1 && bandIdx == tree.BandLL {
		precision := cs.lowpassPrecision
		if precision == 0 {
			precision = bitstream.DefaultLowpassPrecision
		}
		coeffs = make([]int32, w.Width*w.Height)
		for i := range coeffs {
			v, rerr := d.br.ReadBits(uint(precision))
			if rerr != nil {
				return wrapErr(KindStreamUnderflow, "read lowpass sample", rerr)
			}
			coeffs[i] = signExtend(v, precision)
		}
	} else {
		decoded, derr := d.codeset.DecodeBand(d.br, w.Width, w.Height)
		if derr != nil {
			if errors.Is(derr, codebook.ErrBandEndMarker) {
				return wrapErr(KindBandEndMarker, "decode band", derr)
			}
			return wrapErr(KindStreamUnderflow, "decode band", derr)
		}
		coeffs = decoded
	}

	if err := d.br.AlignSegment(); err != nil {
		return wrapErr(KindStreamUnderflow, "align codeblock", err)
	}

	quant := int32(d.parser.Subband.EffectiveQuantization())
	descaleShift := uint(0)
	if cs.prescale[waveletIdx] == 2 {
		descaleShift = 2
	}
	dequant := wavelet.Dequantize(coeffs, quant, descaleShift)

	band := w.Bands[bandIdx]
	for i, v := range dequant {
		band.Data[i] = wavelet.ClampInt16(v)
	}
	if err := cs.tree.MarkSubbandValid(subband); err != nil {
		return wrapErr(KindInvalidBand, "mark subband valid", err)
	}
	d.cascade(cs)
	return nil
}

// cascade advances reconstruction for cs as far as the bands decoded so
// far allow: whenever a wavelet level's four bands are all valid, its
// inverse transform supplies the next-finer level's LL band, down to W0
// producing the channel's final output plane.
func (d *decoder) cascade(cs *channelState) {
	for lvl := tree.Levels - 1; lvl >= 1; lvl-- {
		w := cs.tree.Wavelets[lvl]
		parent := cs.tree.Wavelets[lvl-1]
		if w.AllBandsValid() && !parent.Bands[tree.BandLL].Valid() {
			reconstructLevel(w, parent)
		}
	}
	if cs.output == nil && cs.tree.Wavelets[0].AllBandsValid() {
		cs.output = finalizeChannel(cs)
	}
}

// reconstructLevel inverse-transforms wavelet level w and stores the
// result as parent's LL band.
func reconstructLevel(w, parent *tree.Wavelet) {
	ll, hl, lh, hh := bandData(w)
	plane := joinQuadrants(ll, hl, lh, hh, w.Width, w.Height)
	wavelet.Inverse2D(plane, 2*w.Width, 2*w.Height)
	fitted := cropTo(plane, 2*w.Width, 2*w.Height, parent.Width, parent.Height)
	dst := parent.Bands[tree.BandLL].Data
	for i, v := range fitted {
		dst[i] = wavelet.ClampInt16(v)
	}
	parent.MarkBandValid(tree.BandLL)
}

// finalizeChannel inverse-transforms W0 into the channel's full-resolution
// output plane, cropped back to its true (possibly odd) dimensions. The
// result stays signed int32: any cross-channel inverse transform
// (invertComponentTransform) must see the true values before
// assembleImage narrows to unsigned samples.
func finalizeChannel(cs *channelState) []int32 {
	w := cs.tree.Wavelets[0]
	ll, hl, lh, hh := bandData(w)
	plane := joinQuadrants(ll, hl, lh, hh, w.Width, w.Height)
	wavelet.Inverse2D(plane, 2*w.Width, 2*w.Height)
	return cropTo(plane, 2*w.Width, 2*w.Height, cs.width, cs.height)
}

// checkComplete verifies the header finished and every channel
// encountered reached full reconstruction (spec.md §4.4: "every
// channel's top-level wavelet has all four bands valid", generalized
// here to the finest level since that is what actually yields pixels).
func (d *decoder) checkComplete() error {
	if !d.parser.Header.Finished {
		return newErr(KindRequiredParameter, "decode")
	}
	for _, num := range d.order {
		if d.channels[num].output == nil {
			return newErr(KindBitstreamSyntax, "incomplete channel reconstruction")
		}
	}
	return nil
}

// assembleImage builds the final *Image from every channel's
// reconstructed plane, inverting any recorded component transform before
// narrowing the signed reconstruction back to unsigned samples.
func (d *decoder) assembleImage() (image.Image, error) {
	h := d.parser.Header
	format := FormatRGBA
	patternW, patternH := 1, 1
	componentsPerSample := 1
	if h.ImageFormatEnabled {
		format = Format(h.ImageFormat)
		patternW, patternH = int(h.PatternWidth), int(h.PatternHeight)
		componentsPerSample = int(h.ComponentsPerSample)
		if err := validateImageFormat(format, int(h.Width), int(h.Height), patternW, patternH, componentsPerSample); err != nil {
			return nil, err
		}
	}
	bitsPerComponent := int(h.BitsPerComponent)
	if bitsPerComponent == 0 {
		bitsPerComponent = 16
	}

	planes := make([][]int32, len(d.order))
	for i, num := range d.order {
		planes[i] = d.channels[num].output
	}
	planes = d.invertComponentTransform(planes)

	im := &Image{
		Format:              format,
		Width:               int(h.Width),
		Height:              int(h.Height),
		PatternWidth:        patternW,
		PatternHeight:       patternH,
		ComponentsPerSample: componentsPerSample,
		BitsPerComponent:    bitsPerComponent,
		Channels:            make([][]uint16, len(planes)),
	}
	for i, p := range planes {
		im.Channels[i] = narrowToUint16(p)
	}
	return im, nil
}
