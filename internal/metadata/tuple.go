// Package metadata implements the optional metadata tuple tree carried by
// the metadata chunk (tags 0x4010 small, 0x6100 large; spec.md §4.4): a
// FourCC-tagged tree of typed, padded tuples. A 'P' tuple's sized payload
// is itself a nested scope, giving the ordered parent/child tree spec.md
// §9 describes without needing an explicit end-of-scope marker. The
// teacher has no analogue for this format; its shape is grounded on
// cocosip-go-dicom-codec's tag/value element walking style adapted to
// VC-5's 4-byte-aligned FourCC tuples.
package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vc5codec/vc5/internal/bio"
)

// sizeEscape is the all-ones 24-bit size value that signals the real size
// follows inline as a var-length integer (spec.md §4.4's fixed 3-byte/
// 2-byte+1-byte size fields, extended per SPEC_FULL.md §4.1 for tuples
// whose payload would not fit in 24 bits).
const sizeEscape = 0xFFFFFF

// Type is the one-byte type code preceding a tuple's size/count field.
type Type byte

const (
	// TypeNesting is the '0' type code: a bare marker tuple with no
	// payload and no children of its own (spec.md §4.4: "'0' or
	// nesting-tuple types (no payload)"). Only 'P' tuples carry a child
	// scope; '0' tuples are leaves, used as flags/separators within a
	// scope.
	TypeNesting Type = '0'
	// TypeNested marks a 'P' tuple: its payload is itself a flat,
	// padded run of child tuples, the only construct that opens a
	// nested scope.
	TypeNested Type = 'P'
	TypeChar   Type = 'c'
	TypeString Type = 's'
	TypeInt32  Type = 'L'
	TypeFloat  Type = 'f'
)

// hasRepeatCount reports whether t's size field is followed by a 2-byte
// repeat count (1-byte size + 2-byte count) rather than a bare 3-byte size
// (spec.md §4.4).
func hasRepeatCount(t Type) bool {
	switch t {
	case TypeChar, TypeInt32, TypeFloat:
		return true
	default:
		return false
	}
}

// Tuple is one node of the metadata tree.
type Tuple struct {
	FourCC   [4]byte
	Type     Type
	Count    uint16 // element count, valid only when hasRepeatCount(Type)
	Payload  []byte // raw, unpadded payload bytes
	Children []*Tuple
}

// Name returns the FourCC as a string for logging and lookups.
func (t *Tuple) Name() string {
	return string(t.FourCC[:])
}

// padLen4 returns the number of zero bytes needed to round n up to a
// multiple of 4 (spec.md §4.4: "payload padded to 4-byte boundary").
func padLen4(n int) int {
	return (4 - n%4) % 4
}

// ErrTruncated is returned when the payload ends mid-tuple.
var ErrTruncated = fmt.Errorf("metadata: truncated tuple stream")

// Parse decodes a flat, 4-byte-aligned metadata payload into a forest of
// Tuples. Every 'P' tuple's sized payload is itself parsed as a nested
// scope, giving the tree spec.md §9 describes ("an ordered list of
// parent/child edges with a scope stack during parse") without needing an
// explicit end-of-scope marker, since a 'P' tuple's child scope is bounded
// by its own size field. When pruneDuplicates is true, a tuple whose
// FourCC already appears earlier in the same scope is dropped rather than
// appended (spec.md §4.4: "duplicates within a scope may optionally be
// pruned").
func Parse(data []byte, pruneDuplicates bool) ([]*Tuple, error) {
	r := bytes.NewReader(data)
	return parseScope(r, pruneDuplicates)
}

func parseScope(r *bytes.Reader, pruneDuplicates bool) ([]*Tuple, error) {
	var scope []*Tuple
	seen := map[string]bool{}
	for r.Len() > 0 {
		tup, err := parseOne(r, pruneDuplicates)
		if err != nil {
			return nil, err
		}
		if pruneDuplicates && seen[tup.Name()] {
			continue
		}
		seen[tup.Name()] = true
		scope = append(scope, tup)
	}
	return scope, nil
}

// parseOne reads a single tuple header and payload.
func parseOne(r *bytes.Reader, pruneDuplicates bool) (*Tuple, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, ErrTruncated
	}
	typeByte, err := r.ReadByte()
	if err != nil {
		return nil, ErrTruncated
	}
	t := &Tuple{FourCC: head, Type: Type(typeByte)}

	var size int
	if hasRepeatCount(t.Type) {
		sizeByte, err := r.ReadByte()
		if err != nil {
			return nil, ErrTruncated
		}
		var count uint16
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, ErrTruncated
		}
		t.Count = count
		size = int(sizeByte)
	} else {
		var sizeBytes [3]byte
		if _, err := io.ReadFull(r, sizeBytes[:]); err != nil {
			return nil, ErrTruncated
		}
		size = int(sizeBytes[0])<<16 | int(sizeBytes[1])<<8 | int(sizeBytes[2])
		if size == sizeEscape {
			extended, err := bio.ReadVarLen(r)
			if err != nil {
				return nil, ErrTruncated
			}
			size = int(extended)
		}
	}

	if t.Type == TypeNesting && size != 0 {
		return nil, fmt.Errorf("metadata: nesting tuple %q must not carry a payload", t.Name())
	}

	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, ErrTruncated
		}
	}
	skipPad(r, size)

	if t.Type == TypeNested {
		children, err := parseScope(bytes.NewReader(payload), pruneDuplicates)
		if err != nil {
			return nil, err
		}
		t.Children = children
		return t, nil
	}

	t.Payload = payload
	return t, nil
}

func skipPad(r *bytes.Reader, payloadLen int) {
	pad := padLen4(payloadLen)
	for i := 0; i < pad; i++ {
		r.ReadByte()
	}
}

// Write serializes a forest of Tuples back into a flat, padded metadata
// payload, the inverse of Parse.
func Write(tuples []*Tuple) ([]byte, error) {
	var buf bytes.Buffer
	for _, t := range tuples {
		if err := writeOne(&buf, t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeOne(buf *bytes.Buffer, t *Tuple) error {
	buf.Write(t.FourCC[:])
	buf.WriteByte(byte(t.Type))

	switch t.Type {
	case TypeNesting:
		if len(t.Payload) != 0 || len(t.Children) != 0 {
			return fmt.Errorf("metadata: nesting tuple %q must not carry a payload or children", t.Name())
		}
		writeSize3(buf, 0)
		return nil
	case TypeNested:
		child, err := Write(t.Children)
		if err != nil {
			return err
		}
		if err := writeSize3OrEscape(buf, len(child)); err != nil {
			return fmt.Errorf("metadata: nested tuple %q: %w", t.Name(), err)
		}
		buf.Write(child)
		writePad(buf, len(child))
		return nil
	default:
		if hasRepeatCount(t.Type) {
			if len(t.Payload) > 0xFF {
				return fmt.Errorf("metadata: tuple %q payload too large for 1-byte size", t.Name())
			}
			buf.WriteByte(byte(len(t.Payload)))
			binary.Write(buf, binary.BigEndian, t.Count)
		} else if err := writeSize3OrEscape(buf, len(t.Payload)); err != nil {
			return fmt.Errorf("metadata: tuple %q: %w", t.Name(), err)
		}
		buf.Write(t.Payload)
		writePad(buf, len(t.Payload))
		return nil
	}
}

func writeSize3(buf *bytes.Buffer, size int) {
	buf.WriteByte(byte(size >> 16))
	buf.WriteByte(byte(size >> 8))
	buf.WriteByte(byte(size))
}

// writeSize3OrEscape writes size as the fixed 3-byte field, or the
// sizeEscape marker followed by a var-length integer when size doesn't
// fit in 24 bits.
func writeSize3OrEscape(buf *bytes.Buffer, size int) error {
	if size < sizeEscape {
		writeSize3(buf, size)
		return nil
	}
	writeSize3(buf, sizeEscape)
	return bio.WriteVarLen(buf, uint64(size))
}

func writePad(buf *bytes.Buffer, payloadLen int) {
	pad := padLen4(payloadLen)
	for i := 0; i < pad; i++ {
		buf.WriteByte(0)
	}
}
