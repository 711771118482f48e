// Package wire implements the collector protocol envelope: a big-endian
// header, a fixed little-endian payload layout and a CRC-32 trailer.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
)

// Command is a message sent from a collector to the server.
// The set of implementations is closed; new variants get a new tag.
type Command interface {
	commandTag() uint32
}

// CollectorID is the 128-bit collector identifier.
type CollectorID struct {
	Hi uint64
	Lo uint64
}

// NewCollectorID builds an identifier from a 64-bit value, mostly useful in tests.
func NewCollectorID(v uint64) CollectorID {
	return CollectorID{Lo: v}
}

// CollectorIDFromUUID maps the UUID bytes onto the 128-bit value (big-endian).
func CollectorIDFromUUID(u uuid.UUID) CollectorID {
	return CollectorID{
		Hi: binary.BigEndian.Uint64(u[0:8]),
		Lo: binary.BigEndian.Uint64(u[8:16]),
	}
}

// UUID returns the identifier as a UUID.
func (id CollectorID) UUID() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[0:8], id.Hi)
	binary.BigEndian.PutUint64(u[8:16], id.Lo)
	return u
}

// String returns the canonical UUID form used as the database key.
func (id CollectorID) String() string {
	return id.UUID().String()
}

// IsZero reports whether the identifier is all zeros.
func (id CollectorID) IsZero() bool {
	return id.Hi == 0 && id.Lo == 0
}

// SubmitData carries one metrics sample.
type SubmitData struct {
	CollectorID     CollectorID
	TotalMemory     uint64
	UsedMemory      uint64
	AverageCPUUsage float32
}

func (SubmitData) commandTag() uint32 { return defs.CmdSubmitData }

// submitDataSize is tag(4) + id(16) + total(8) + used(8) + cpu(4).
const submitDataSize = 40

// Tag returns the variant index of cmd.
func Tag(cmd Command) uint32 {
	return cmd.commandTag()
}

func marshalCommand(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case SubmitData:
		return c.marshal(), nil
	case *SubmitData:
		return c.marshal(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (c SubmitData) marshal() []byte {
	buf := make([]byte, submitDataSize)
	binary.LittleEndian.PutUint32(buf[0:4], defs.CmdSubmitData)
	// u128 little-endian: low word first
	binary.LittleEndian.PutUint64(buf[4:12], c.CollectorID.Lo)
	binary.LittleEndian.PutUint64(buf[12:20], c.CollectorID.Hi)
	binary.LittleEndian.PutUint64(buf[20:28], c.TotalMemory)
	binary.LittleEndian.PutUint64(buf[28:36], c.UsedMemory)
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(c.AverageCPUUsage))
	return buf
}

func unmarshalCommand(payload []byte) (Command, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: payload of %d bytes has no tag", ErrMalformedPayload, len(payload))
	}

	tag := binary.LittleEndian.Uint32(payload[0:4])
	switch tag {
	case defs.CmdSubmitData:
		if len(payload) != submitDataSize {
			return nil, fmt.Errorf("%w: submit data is %d bytes, want %d", ErrMalformedPayload, len(payload), submitDataSize)
		}
		return SubmitData{
			CollectorID: CollectorID{
				Lo: binary.LittleEndian.Uint64(payload[4:12]),
				Hi: binary.LittleEndian.Uint64(payload[12:20]),
			},
			TotalMemory:     binary.LittleEndian.Uint64(payload[20:28]),
			UsedMemory:      binary.LittleEndian.Uint64(payload[28:36]),
			AverageCPUUsage: math.Float32frombits(binary.LittleEndian.Uint32(payload[36:40])),
		}, nil
	default:
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownCommand, tag)
	}
}
