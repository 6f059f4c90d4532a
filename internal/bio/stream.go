package bio

import "io"

// MemoryStream is an in-memory, growable byte stream that supports
// sequential writes plus random-access overwrites, used as the byte-stream
// abstraction backing an encoder's Writer when the caller's io.Writer isn't
// itself seekable (spec: "a byte stream abstraction (file or memory)").
type MemoryStream struct {
	buf []byte
	pos int64
}

// NewMemoryStream creates an empty memory stream.
func NewMemoryStream() *MemoryStream {
	return &MemoryStream{}
}

// Write appends p at the current position, growing the buffer and
// overwriting in place as needed.
func (m *MemoryStream) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (m *MemoryStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.buf)) + offset
	default:
		return 0, io.ErrUnexpectedEOF
	}
	if target < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	m.pos = target
	return m.pos, nil
}

// Bytes returns the stream's contents accumulated so far.
func (m *MemoryStream) Bytes() []byte {
	return m.buf
}

var _ io.WriteSeeker = (*MemoryStream)(nil)
