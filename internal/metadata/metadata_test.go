package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scalarTuple(name string, typ Type, payload []byte, count uint16) *Tuple {
	var fourcc [4]byte
	copy(fourcc[:], name)
	return &Tuple{FourCC: fourcc, Type: typ, Payload: payload, Count: count}
}

func TestScalarTupleRoundTrip(t *testing.T) {
	in := []*Tuple{
		scalarTuple("VERS", TypeChar, []byte("1.0"), 3),
		scalarTuple("SEQN", TypeInt32, []byte{0, 0, 0, 7}, 1),
	}

	data, err := Write(in)
	require.NoError(t, err)
	require.Equal(t, 0, len(data)%4, "metadata payload must stay 4-byte aligned")

	out, err := Parse(data, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "VERS", out[0].Name())
	require.Equal(t, TypeChar, out[0].Type)
	require.Equal(t, []byte("1.0"), out[0].Payload)
	require.Equal(t, uint16(3), out[0].Count)
	require.Equal(t, "SEQN", out[1].Name())
	require.Equal(t, []byte{0, 0, 0, 7}, out[1].Payload)
}

func TestNestedTupleRoundTrip(t *testing.T) {
	child := scalarTuple("NAME", TypeChar, []byte("hi"), 2)
	parent := &Tuple{FourCC: [4]byte{'G', 'R', 'P', '1'}, Type: TypeNested, Children: []*Tuple{child}}

	data, err := Write([]*Tuple{parent})
	require.NoError(t, err)

	out, err := Parse(data, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, TypeNested, out[0].Type)
	require.Len(t, out[0].Children, 1)
	require.Equal(t, "NAME", out[0].Children[0].Name())
	require.Equal(t, []byte("hi"), out[0].Children[0].Payload)
}

func TestNestingTupleIsLeafMarker(t *testing.T) {
	marker := &Tuple{FourCC: [4]byte{'F', 'L', 'A', 'G'}, Type: TypeNesting}
	trailer := scalarTuple("LAST", TypeChar, []byte("z"), 1)

	data, err := Write([]*Tuple{marker, trailer})
	require.NoError(t, err)

	out, err := Parse(data, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, TypeNesting, out[0].Type)
	require.Empty(t, out[0].Children)
	require.Equal(t, "LAST", out[1].Name())
}

func TestNestingTupleRejectsChildren(t *testing.T) {
	bad := &Tuple{FourCC: [4]byte{'F', 'L', 'A', 'G'}, Type: TypeNesting, Children: []*Tuple{scalarTuple("NOPE", TypeChar, nil, 0)}}
	_, err := Write([]*Tuple{bad})
	require.Error(t, err)
}

func TestDuplicatePruning(t *testing.T) {
	a1 := scalarTuple("DUPE", TypeChar, []byte("a"), 1)
	a2 := scalarTuple("DUPE", TypeChar, []byte("b"), 1)
	b := scalarTuple("UNIQ", TypeChar, []byte("c"), 1)

	data, err := Write([]*Tuple{a1, a2, b})
	require.NoError(t, err)

	out, err := Parse(data, true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "DUPE", out[0].Name())
	require.Equal(t, []byte("a"), out[0].Payload, "first occurrence in scope order is kept")
	require.Equal(t, "UNIQ", out[1].Name())
}

func TestTruncatedPayloadIsError(t *testing.T) {
	_, err := Parse([]byte{'A', 'B', 'C', 'D', byte(TypeChar), 0}, false)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestImageIdentifierRoundTrip(t *testing.T) {
	var umid [UMIDLabelSize]byte
	copy(umid[:], "umid-label-0")

	id := NewImageIdentifier(umid, 42)
	data := id.Marshal()
	require.Len(t, data, byteSize)

	out, err := UnmarshalImageIdentifier(data)
	require.NoError(t, err)
	require.Equal(t, id.UMIDLabel, out.UMIDLabel)
	require.Equal(t, id.ID, out.ID)
	require.Equal(t, uint32(42), out.Sequence)
}

func TestLargePayloadUsesSizeEscape(t *testing.T) {
	big := scalarTuple("HUGE", TypeString, make([]byte, sizeEscape), 0)
	for i := range big.Payload {
		big.Payload[i] = byte(i)
	}

	data, err := Write([]*Tuple{big})
	require.NoError(t, err)

	out, err := Parse(data, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, big.Payload, out[0].Payload)
}

func TestImageIdentifierShortPayload(t *testing.T) {
	_, err := UnmarshalImageIdentifier(make([]byte, byteSize-1))
	require.ErrorIs(t, err, ErrShortIdentifier)
}
