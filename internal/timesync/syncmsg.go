package timesync

import (
	"meshpeer/internal/codec"
)

// Sync and Respond are application-level messages (spec.md §4.7): they
// carry the clock-sync exchange, distinct from the connection-control
// vocabulary of internal/election, so they are framed under
// codec.TagApplication rather than codec.TagControl.
const (
	SubtagSync    = "Sync"
	SubtagRespond = "Respond"
)

// EncodeSync builds the client -> server Sync(t1) request, t1 being
// the client's send-time timestamp.
func EncodeSync(t1 TimeStamp) []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagApplication, SubtagSync, t1)
	return c.Bytes()
}

// DecodeSync reads a Sync payload after the application+sub-tag have
// been consumed from s.
func DecodeSync(s *codec.Stream) (TimeStamp, error) {
	var t1 TimeStamp
	if err := s.ReadValue(&t1); err != nil {
		return 0, err
	}
	return t1, nil
}

// EncodeRespond builds the server -> client Respond(t1, t2) reply, t1
// echoing the client's original send-time and t2 being the server's
// receive-time timestamp.
func EncodeRespond(t1, t2 TimeStamp) []byte {
	c := codec.NewChunk()
	_ = c.AppendAll(codec.TagApplication, SubtagRespond, t1, t2)
	return c.Bytes()
}

// DecodeRespond reads a Respond payload after the application+sub-tag
// have been consumed from s.
func DecodeRespond(s *codec.Stream) (t1, t2 TimeStamp, err error) {
	if err := s.ReadValue(&t1); err != nil {
		return 0, 0, err
	}
	if err := s.ReadValue(&t2); err != nil {
		return 0, 0, err
	}
	return t1, t2, nil
}
