package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
)

// Response is a message sent from the server back to a collector.
type Response interface {
	responseTag() uint32
}

// Ack acknowledges one command. Code 0 means the sample was persisted.
type Ack struct {
	Code uint32
}

func (Ack) responseTag() uint32 { return defs.RespAck }

// OK reports whether the ack retires the message.
func (a Ack) OK() bool {
	return a.Code == defs.AckOK
}

// ResponseSize is tag(4) + code(4).
const ResponseSize = 8

// EncodeResponse serializes resp. Responses ride on the connection that
// carried the command, so they have no envelope.
func EncodeResponse(resp Response) []byte {
	buf := make([]byte, ResponseSize)
	binary.LittleEndian.PutUint32(buf[0:4], resp.responseTag())
	switch r := resp.(type) {
	case Ack:
		binary.LittleEndian.PutUint32(buf[4:8], r.Code)
	case *Ack:
		binary.LittleEndian.PutUint32(buf[4:8], r.Code)
	}
	return buf
}

// DecodeResponse parses a response produced by EncodeResponse.
func DecodeResponse(b []byte) (Response, error) {
	if len(b) < ResponseSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedResponse, len(b), ResponseSize)
	}

	tag := binary.LittleEndian.Uint32(b[0:4])
	if tag != defs.RespAck {
		return nil, fmt.Errorf("%w: tag %d", ErrMalformedResponse, tag)
	}

	return Ack{Code: binary.LittleEndian.Uint32(b[4:8])}, nil
}

// ReadResponse reads exactly one response from r.
func ReadResponse(r io.Reader) (Response, error) {
	buf := make([]byte, ResponseSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return DecodeResponse(buf)
}
