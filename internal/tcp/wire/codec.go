package wire

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
)

// Encode frames cmd stamped with the current time.
func Encode(cmd Command) ([]byte, error) {
	return EncodeAt(cmd, time.Now())
}

// EncodeAt frames cmd with the given timestamp. Unix seconds are truncated
// to 32 bits, so the header rolls over in 2106.
func EncodeAt(cmd Command, at time.Time) ([]byte, error) {
	payload, err := marshalCommand(cmd)
	if err != nil {
		return nil, err
	}

	out := make([]byte, defs.HeaderSize+len(payload)+defs.TrailerSize)
	binary.BigEndian.PutUint16(out[0:2], defs.MagicNumber)
	binary.BigEndian.PutUint16(out[2:4], defs.VersionNumber)
	binary.BigEndian.PutUint32(out[4:8], uint32(at.Unix()))
	binary.BigEndian.PutUint32(out[8:12], uint32(len(payload)))
	copy(out[defs.HeaderSize:], payload)
	binary.BigEndian.PutUint32(out[defs.HeaderSize+len(payload):], crc32.ChecksumIEEE(payload))

	return out, nil
}

// Header is the fixed 12-byte envelope prefix.
type Header struct {
	Magic       uint16
	Version     uint16
	Timestamp   uint32
	PayloadSize uint32
}

// FrameSize is the full envelope length the header announces.
func (h Header) FrameSize() int {
	return defs.HeaderSize + int(h.PayloadSize) + defs.TrailerSize
}

func parseHeader(b []byte) Header {
	return Header{
		Magic:       binary.BigEndian.Uint16(b[0:2]),
		Version:     binary.BigEndian.Uint16(b[2:4]),
		Timestamp:   binary.BigEndian.Uint32(b[4:8]),
		PayloadSize: binary.BigEndian.Uint32(b[8:12]),
	}
}

// validate runs the structural and compatibility checks.
func (h Header) validate() error {
	if h.Magic != defs.MagicNumber {
		return &DecodeError{Err: ErrUnrecognizedProtocol, Want: uint32(defs.MagicNumber), Got: uint32(h.Magic)}
	}
	if h.Version != defs.VersionNumber {
		return &DecodeError{Err: ErrUnsupportedVersion, Want: uint32(defs.VersionNumber), Got: uint32(h.Version)}
	}
	return nil
}

// Decode validates one envelope and returns its timestamp and command.
// Checks run in order: magic, version, bounds, crc, then payload decoding.
// Bytes past the announced frame are ignored.
func Decode(b []byte) (uint32, Command, error) {
	if len(b) < defs.HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(b), defs.HeaderSize)
	}

	h := parseHeader(b)
	if err := h.validate(); err != nil {
		return 0, nil, err
	}

	// uint64 math so a hostile payload_size cannot overflow int on 32-bit hosts
	frameSize := uint64(defs.HeaderSize) + uint64(h.PayloadSize) + uint64(defs.TrailerSize)
	if uint64(len(b)) < frameSize {
		return 0, nil, fmt.Errorf("%w: %d bytes, frame needs %d", ErrTruncated, len(b), frameSize)
	}

	payloadEnd := defs.HeaderSize + int(h.PayloadSize)
	payload := b[defs.HeaderSize:payloadEnd]
	received := binary.BigEndian.Uint32(b[payloadEnd : payloadEnd+defs.TrailerSize])

	if computed := crc32.ChecksumIEEE(payload); computed != received {
		return 0, nil, &DecodeError{Err: ErrCorruptedPayload, Want: received, Got: computed}
	}

	cmd, err := unmarshalCommand(payload)
	if err != nil {
		return 0, nil, err
	}

	return h.Timestamp, cmd, nil
}

// ReadFrame reads exactly one envelope from r. Magic and version are
// rejected as soon as the header arrives, before any payload is read.
// io.EOF is returned unwrapped when the stream ends cleanly between frames.
func ReadFrame(r io.Reader, maxPayload uint32) ([]byte, error) {
	header := make([]byte, defs.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: header: %w", ErrTruncated, err)
		}
		return nil, err
	}

	h := parseHeader(header)
	if err := h.validate(); err != nil {
		return nil, err
	}
	if h.PayloadSize > maxPayload {
		return nil, &DecodeError{Err: ErrPayloadTooLarge, Want: maxPayload, Got: h.PayloadSize}
	}

	frame := make([]byte, h.FrameSize())
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[defs.HeaderSize:]); err != nil {
		return nil, fmt.Errorf("%w: body: %w", ErrTruncated, err)
	}

	return frame, nil
}
