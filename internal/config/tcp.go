package config

import (
	"os"
	"strconv"
	"time"

	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
)

type TCPConfig struct {
	ListenAddr  string
	ReadTimeout time.Duration
	MaxPayload  uint32
}

func NewTCPConfig() *TCPConfig {
	addr := os.Getenv("COLLECTOR_LISTEN_ADDR")
	if addr == "" {
		addr = defs.DefaultCollectorAddress
	}

	readTimeout := defs.DefaultReadTimeout
	if sec, err := strconv.Atoi(os.Getenv("COLLECTOR_READ_TIMEOUT_SEC")); err == nil && sec >= 0 {
		readTimeout = time.Duration(sec) * time.Second
	}

	maxPayload := uint32(defs.MaxPayloadSize)
	if v, err := strconv.ParseUint(os.Getenv("COLLECTOR_MAX_PAYLOAD"), 10, 32); err == nil && v > 0 {
		maxPayload = uint32(v)
	}

	return &TCPConfig{
		ListenAddr:  addr,
		ReadTimeout: readTimeout,
		MaxPayload:  maxPayload,
	}
}
