package codec

import (
	"bytes"
	"encoding/binary"
)

// Chunk is a growable byte buffer that items are appended to in order.
// It has no header and no length prefix of its own — concatenating two
// chunks is just concatenating their bytes.
type Chunk struct {
	buf []byte
}

// NewChunk returns an empty Chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Bytes returns the chunk's accumulated bytes.
func (c *Chunk) Bytes() []byte {
	return c.buf
}

// Len returns the number of bytes appended so far.
func (c *Chunk) Len() int {
	return len(c.buf)
}

// AppendString appends s followed by a single 0x00 terminator.
func (c *Chunk) AppendString(s string) {
	c.buf = append(c.buf, s...)
	c.buf = append(c.buf, 0)
}

// AppendChunk appends a copy of other's bytes with no length prefix.
func (c *Chunk) AppendChunk(other *Chunk) {
	c.buf = append(c.buf, other.buf...)
}

// AppendValue appends the fixed-width, host-endian-agnostic (big-endian
// on the wire) bytes of v. v must be a fixed-width type accepted by
// encoding/binary.Write: a bool, a fixed-size numeric type, or a fixed-
// size array/struct composed of those.
func (c *Chunk) AppendValue(v any) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
		return err
	}
	c.buf = append(c.buf, buf.Bytes()...)
	return nil
}

// AppendAll appends each item in order using its natural rule: a
// string appends as a terminated string, a *Chunk appends as a raw
// copy, anything else appends as a fixed-width value.
func (c *Chunk) AppendAll(items ...any) error {
	for _, item := range items {
		switch v := item.(type) {
		case string:
			c.AppendString(v)
		case *Chunk:
			c.AppendChunk(v)
		default:
			if err := c.AppendValue(v); err != nil {
				return err
			}
		}
	}
	return nil
}
