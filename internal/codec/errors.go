package codec

import "errors"

var (
	// ErrShortRead is returned when a read would advance the cursor
	// past the end of the underlying buffer.
	ErrShortRead = errors.New("codec: short read")
	// ErrUnterminatedString is returned when a string read runs off
	// the end of the buffer without finding a 0x00 terminator.
	ErrUnterminatedString = errors.New("codec: unterminated string")
)
