package defs

import "time"

// Protocol constants
const (
	MagicNumber   uint16 = 1234 // 0x04D2
	VersionNumber uint16 = 1

	// Envelope layout: magic(2) version(2) timestamp(4) payload_size(4) payload crc32(4)
	HeaderSize  = 12
	TrailerSize = 4

	// ReadBufferSize is the largest envelope a server connection accepts.
	ReadBufferSize = 1024
	MaxPayloadSize = ReadBufferSize - HeaderSize - TrailerSize

	// Command tags, the u32 that opens every payload
	CmdSubmitData uint32 = 0

	// Response tags
	RespAck uint32 = 0

	// Ack codes
	AckOK                 uint32 = 0
	AckStorageFailure     uint32 = 1
	AckUnsupportedCommand uint32 = 2

	DefaultCollectorAddress = "127.0.0.1:9004"

	// Configuration constants
	DefaultReadTimeout   = 5 * time.Minute
	ConnectionRetryDelay = 1 * time.Second
)
