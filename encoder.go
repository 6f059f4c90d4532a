package vc5

import (
	"io"
	"log/slog"

	"github.com/vc5codec/vc5/internal/bio"
	"github.com/vc5codec/vc5/internal/bitstream"
	"github.com/vc5codec/vc5/internal/codebook"
	"github.com/vc5codec/vc5/internal/tree"
	"github.com/vc5codec/vc5/internal/wavelet"
	"github.com/vc5codec/vc5/internal/xform"
)

// encoder writes a *Image out as a VC-5 codestream (spec.md §5).
//
// The container's chunk-size fields are back-patched once each chunk's
// payload length is known (internal/bio.Writer.PushOffset/PatchUint32),
// which requires a seekable destination; since the caller's io.Writer
// generally is not, the encoder builds the codestream into an
// in-memory bio.MemoryStream and copies it to the real destination once
// encoding finishes (internal/bio's own documented usage for
// non-seekable callers).
type encoder struct {
	w    *bio.Writer
	mem  *bio.MemoryStream
	dest io.Writer

	img     *Image
	opts    *Options
	codeset *codebook.Codeset
	logger  *slog.Logger

	// channels is the working copy of img.Channels widened to int32 and,
	// if opts requests it, permuted/transformed across components before
	// the wavelet pass runs (see prepareChannels).
	channels [][]int32
}

func newEncoder(w io.Writer, img *Image, o *Options) *encoder {
	mem := bio.NewMemoryStream()
	return &encoder{
		w:       bio.NewWriter(mem),
		mem:     mem,
		dest:    w,
		img:     img,
		opts:    o,
		codeset: codebook.CS17,
		logger:  o.Logger,
	}
}

func (e *encoder) encode() error {
	if err := e.writeHeader(); err != nil {
		return err
	}
	e.prepareChannels()
	for ch := range e.channels {
		if err := e.writeChannel(ch); err != nil {
			return err
		}
	}
	if e.opts.ComponentTransform != TransformNone || e.opts.ComponentPermutation != nil {
		if err := e.writeTransformChunks(); err != nil {
			return err
		}
	}
	if err := e.w.Flush(); err != nil {
		return wrapErr(KindStreamOverflow, "flush", err)
	}
	if _, err := e.dest.Write(e.mem.Bytes()); err != nil {
		return wrapErr(KindStreamOverflow, "write output", err)
	}
	return nil
}

// prepareChannels widens every channel plane to int32 and, if opts
// requests an inverse component transform (spec.md §6), permutes and
// transforms the first three channels before the wavelet pass runs:
// permutation first, then the component transform, so decode must
// invert in the opposite order (transform first, permutation last; see
// decoder.invertComponentTransform).
func (e *encoder) prepareChannels() {
	planes := make([][]int32, len(e.img.Channels))
	for i, p := range e.img.Channels {
		planes[i] = widenUint16(p)
	}
	if e.opts.ComponentPermutation != nil {
		planes = xform.Permutation{Order: e.opts.ComponentPermutation}.Apply(planes)
	}
	if e.opts.ComponentTransform == TransformRCT && len(planes) >= 3 {
		xform.Forward(planes[0], planes[1], planes[2])
	}
	e.channels = planes
}

// writeTransformChunks records which component transform/permutation
// prepareChannels applied, via the 0x4001/0x4002 chunk tags (spec.md
// §6), so a decoder can invert it in assembleImage.
func (e *encoder) writeTransformChunks() error {
	kind := uint16(e.opts.ComponentTransform)
	if err := e.writeChunk(bitstream.TagTransformType, []byte{0, 0, byte(kind >> 8), byte(kind)}); err != nil {
		return err
	}
	if e.opts.ComponentPermutation == nil {
		return nil
	}
	payload := make([]byte, len(e.opts.ComponentPermutation))
	for i, src := range e.opts.ComponentPermutation {
		payload[i] = byte(src)
	}
	return e.writeChunk(bitstream.TagTransformPermutation, payload)
}

// writeChunk emits a chunk whose payload length is known upfront, unlike
// writeSubband's codeblock chunk (whose entropy-coded length depends on
// the data itself and needs PushOffset/PatchUint32 back-patching).
func (e *encoder) writeChunk(tag bitstream.Tag, payload []byte) error {
	segments := (len(payload) + 3) / 4
	chunkTag, value := chunkSegmentsToTagValue(tag, segments)
	if err := e.writeSegment(chunkTag, value); err != nil {
		return err
	}
	padded := make([]byte, segments*4)
	copy(padded, payload)
	for _, b := range padded {
		if err := e.w.WriteBits(uint32(b), 8); err != nil {
			return wrapErr(KindStreamOverflow, "write chunk payload", err)
		}
	}
	return nil
}

// writeSegment writes one 4-byte tag-value segment.
func (e *encoder) writeSegment(tag bitstream.Tag, value uint16) error {
	if err := e.w.WriteBits(uint32(uint16(tag)), 16); err != nil {
		return wrapErr(KindStreamOverflow, "write segment", err)
	}
	if err := e.w.WriteBits(uint32(value), 16); err != nil {
		return wrapErr(KindStreamOverflow, "write segment", err)
	}
	return nil
}

func (e *encoder) writeHeader() error {
	if err := e.w.WriteBits(bitstream.StartMarker, 32); err != nil {
		return wrapErr(KindStreamOverflow, "write start marker", err)
	}
	if err := e.writeSegment(bitstream.TagImageWidth, uint16(e.img.Width)); err != nil {
		return err
	}
	if err := e.writeSegment(bitstream.TagImageHeight, uint16(e.img.Height)); err != nil {
		return err
	}
	if e.opts.EnabledParts.Has(PartImageFormats) {
		if err := e.writeSegment(bitstream.TagImageFormat, uint16(e.img.Format)); err != nil {
			return err
		}
		if err := e.writeSegment(bitstream.TagPatternWidth, uint16(e.img.PatternWidth)); err != nil {
			return err
		}
		if err := e.writeSegment(bitstream.TagPatternHeight, uint16(e.img.PatternHeight)); err != nil {
			return err
		}
		if err := e.writeSegment(bitstream.TagComponentsPerSample, uint16(e.img.ComponentsPerSample)); err != nil {
			return err
		}
	}
	if err := e.writeSegment(bitstream.TagChannelCount, uint16(len(e.img.Channels))); err != nil {
		return err
	}
	if err := e.writeSegment(bitstream.TagSubbandCount, 10); err != nil {
		return err
	}
	return e.writeSegment(bitstream.TagBitsPerComponent, uint16(e.img.BitsPerComponent))
}

// writeChannel emits one channel's parameters, runs the cascading
// forward wavelet transform, and emits its ten canonical subbands in
// order (spec.md §4.3: "cascading two-level-then-top transform").
func (e *encoder) writeChannel(ch int) error {
	cw, chh := e.img.ChannelWidth(), e.img.ChannelHeight()

	if err := e.writeSegment(bitstream.TagChannelNumber, uint16(ch)); err != nil {
		return err
	}
	if !e.opts.EnabledParts.Has(PartImageFormats) {
		if err := e.writeSegment(bitstream.TagChannelWidth, uint16(cw)); err != nil {
			return err
		}
		if err := e.writeSegment(bitstream.TagChannelHeight, uint16(chh)); err != nil {
			return err
		}
	}
	if err := e.writeSegment(bitstream.TagLowpassPrecision, e.opts.LowpassPrecision); err != nil {
		return err
	}
	packedPrescale := uint16(e.opts.Prescale[0]&0x3) |
		uint16(e.opts.Prescale[1]&0x3)<<2 |
		uint16(e.opts.Prescale[2]&0x3)<<4
	if err := e.writeSegment(bitstream.TagPrescaleShift, packedPrescale); err != nil {
		return err
	}

	tr := tree.NewChannel(cw, chh)
	plane := e.channels[ch]

	wavelet.Prescale(plane, uint(e.opts.Prescale[0]))
	ll0 := e.forwardLevel(plane, cw, chh, 0, tr.Wavelets[0], false)

	wavelet.Prescale(ll0, uint(e.opts.Prescale[1]))
	ll1 := e.forwardLevel(ll0, tr.Wavelets[0].Width, tr.Wavelets[0].Height, 1, tr.Wavelets[1], false)

	wavelet.Prescale(ll1, uint(e.opts.Prescale[2]))
	e.forwardLevel(ll1, tr.Wavelets[1].Width, tr.Wavelets[1].Height, 2, tr.Wavelets[2], true)

	for subband := 0; subband < 10; subband++ {
		if err := e.writeSubband(tr, subband); err != nil {
			return err
		}
	}
	return nil
}

// forwardLevel pads plane up to level's even working size, runs one
// 2-D lifting pass, quantizes and clamps the three transmitted bands
// (plus LL when storeLL, for the top/coarsest level only), and returns
// the raw, unquantized LL quadrant so the caller can feed it to the next
// coarser level.
func (e *encoder) forwardLevel(plane []int32, w, h, waveletIdx int, level *tree.Wavelet, storeLL bool) []int32 {
	even := padTo(plane, w, h, 2*level.Width, 2*level.Height)
	wavelet.Forward2D(even, 2*level.Width, 2*level.Height)
	ll, hl, lh, hh := splitQuadrants(even, level.Width, level.Height)

	quant := quantFor(e.opts.Quantization, waveletIdx)
	store := func(bandIdx int, data []int32) {
		qd := wavelet.Quantize(data, int32(quant[bandIdx]), e.opts.MidpointPrequant)
		dst := level.Bands[bandIdx].Data
		for i, v := range qd {
			dst[i] = wavelet.ClampInt16(v)
		}
	}
	store(tree.BandHL, hl)
	store(tree.BandLH, lh)
	store(tree.BandHH, hh)
	if storeLL {
		store(tree.BandLL, ll)
	}
	return ll
}

// chunkSegmentsToTagValue computes the tag/value pair that encodes a
// chunk payload of the given segment count, the inverse of
// Tag.PayloadSegments.
func chunkSegmentsToTagValue(base bitstream.Tag, segments int) (bitstream.Tag, uint16) {
	if base.Kind() == bitstream.LargeChunk {
		masked := base &^ 0xFF
		return masked | bitstream.Tag((segments>>16)&0xFF), uint16(segments & 0xFFFF)
	}
	return base, uint16(segments)
}

// writeSubband emits one subband: its SubbandNumber/Quantization
// parameters, then a TagLargeCodeblock chunk whose size is back-patched
// once the payload (raw bit-packed samples for the top-level lowpass
// band, entropy-coded run/magnitude symbols otherwise) is written and
// segment-aligned.
func (e *encoder) writeSubband(tr *tree.Channel, subband int) error {
	waveletIdx, bandIdx, err := tree.SubbandLocation(subband)
	if err != nil {
		return wrapErr(KindInvalidBand, "locate subband", err)
	}
	w := tr.Wavelets[waveletIdx]
	band := w.Bands[bandIdx]

	if err := e.writeSegment(bitstream.TagSubbandNumber, uint16(subband)); err != nil {
		return err
	}
	if err := e.writeSegment(bitstream.TagQuantization, e.opts.Quantization[subband]); err != nil {
		return err
	}

	e.w.PushOffset()
	if err := e.writeSegment(0, 0); err != nil {
		return err
	}

	var encErr error
	if waveletIdx == tree.Levels-1 && bandIdx == tree.BandLL {
		precision := e.opts.LowpassPrecision
		if precision == 0 {
			precision = bitstream.DefaultLowpassPrecision
		}
		for _, v := range band.Data {
			if werr := e.w.WriteBits(uint32(int32(v)), uint(precision)); werr != nil {
				encErr = werr
				break
			}
		}
	} else {
		encErr = e.codeset.EncodeBand(e.w, widenInt16(band.Data), band.Width, band.Height)
	}
	if encErr != nil {
		return wrapErr(KindStreamOverflow, "encode band", encErr)
	}

	if err := e.w.AlignSegment(); err != nil {
		return wrapErr(KindStreamOverflow, "align codeblock", err)
	}
	off, ok := e.w.PopOffset()
	if !ok {
		return newErr(KindStackUnderflow, "write codeblock")
	}
	segments := int((e.w.BytePos() - off - 4) / 4)
	tag, value := chunkSegmentsToTagValue(bitstream.TagLargeCodeblock, segments)
	packed := uint32(uint16(tag))<<16 | uint32(value)
	if err := e.w.PatchUint32(off, packed); err != nil {
		return wrapErr(KindStreamOverflow, "patch chunk size", err)
	}
	return nil
}
