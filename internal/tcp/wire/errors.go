package wire

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated            = errors.New("envelope truncated")
	ErrUnrecognizedProtocol = errors.New("unrecognized protocol")
	ErrUnsupportedVersion   = errors.New("unsupported version")
	ErrCorruptedPayload     = errors.New("corrupted payload")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrUnknownCommand       = errors.New("unknown command")
	ErrMalformedResponse    = errors.New("malformed response")
)

// DecodeError reports why an envelope was rejected.
type DecodeError struct {
	Err  error
	Want uint32
	Got  uint32
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: want %#x, got %#x", e.Err, e.Want, e.Got)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsFrameIntact reports whether err left the stream positioned on a frame
// boundary, i.e. the envelope was structurally valid and passed the checksum.
func IsFrameIntact(err error) bool {
	return errors.Is(err, ErrUnknownCommand) || errors.Is(err, ErrMalformedPayload)
}
