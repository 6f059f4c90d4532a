package metadata

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// UMIDLabelSize is the length of the fixed UMID label prefix carried by the
// unique image identifier chunk (tag 0x4004, spec.md §6: "12-byte UMID
// label followed by a 16-byte UUID and a 4-byte image sequence number").
const UMIDLabelSize = 12

// ImageIdentifier is the payload of the optional unique image identifier
// chunk, grounded on jpfielding-dicos.go's pkg/util/uuid.go use of
// github.com/google/uuid to stamp DICOS instances with a UUID.
type ImageIdentifier struct {
	UMIDLabel [UMIDLabelSize]byte
	ID        uuid.UUID
	Sequence  uint32
}

// NewImageIdentifier stamps a fresh random UUID with the given UMID label
// and sequence number.
func NewImageIdentifier(umidLabel [UMIDLabelSize]byte, sequence uint32) ImageIdentifier {
	return ImageIdentifier{UMIDLabel: umidLabel, ID: uuid.New(), Sequence: sequence}
}

// byteSize is the wire size of an ImageIdentifier: 12-byte label + 16-byte
// UUID + 4-byte sequence number.
const byteSize = UMIDLabelSize + 16 + 4

// ErrShortIdentifier is returned when fewer than byteSize bytes are
// available to decode an ImageIdentifier.
var ErrShortIdentifier = fmt.Errorf("metadata: unique image identifier payload shorter than %d bytes", byteSize)

// Marshal encodes the identifier to its fixed-size wire form.
func (id ImageIdentifier) Marshal() []byte {
	buf := make([]byte, byteSize)
	copy(buf[:UMIDLabelSize], id.UMIDLabel[:])
	copy(buf[UMIDLabelSize:UMIDLabelSize+16], id.ID[:])
	binary.BigEndian.PutUint32(buf[UMIDLabelSize+16:], id.Sequence)
	return buf
}

// UnmarshalImageIdentifier decodes an ImageIdentifier from its fixed-size
// wire form.
func UnmarshalImageIdentifier(data []byte) (ImageIdentifier, error) {
	if len(data) < byteSize {
		return ImageIdentifier{}, ErrShortIdentifier
	}
	var id ImageIdentifier
	copy(id.UMIDLabel[:], data[:UMIDLabelSize])
	copy(id.ID[:], data[UMIDLabelSize:UMIDLabelSize+16])
	id.Sequence = binary.BigEndian.Uint32(data[UMIDLabelSize+16:])
	return id, nil
}
