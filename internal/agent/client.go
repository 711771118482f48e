package agent

import (
	"context"
	"fmt"
	"net"
	"time"

	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// Session is one connection to the server.
type Session interface {
	// Send writes one encoded envelope.
	Send(frame []byte) error
	// Receive reads the response to the last frame sent.
	Receive() (wire.Response, error)
	Close() error
}

// Transport opens sessions to the server.
type Transport interface {
	Dial(ctx context.Context) (Session, error)
}

// TCPTransport dials the collector endpoint over TCP.
type TCPTransport struct {
	Address     string
	DialTimeout time.Duration
	// IOTimeout bounds each write and each response read. Zero disables it.
	IOTimeout time.Duration
}

// NewTCPTransport creates a transport for address.
func NewTCPTransport(address string, dialTimeout, ioTimeout time.Duration) *TCPTransport {
	return &TCPTransport{
		Address:     address,
		DialTimeout: dialTimeout,
		IOTimeout:   ioTimeout,
	}
}

// Dial connects to the server.
func (t *TCPTransport) Dial(ctx context.Context) (Session, error) {
	dialer := net.Dialer{Timeout: t.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", t.Address, err)
	}

	return &tcpSession{conn: conn, ioTimeout: t.IOTimeout}, nil
}

type tcpSession struct {
	conn      net.Conn
	ioTimeout time.Duration
}

func (s *tcpSession) Send(frame []byte) error {
	if s.ioTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.ioTimeout)); err != nil {
			return err
		}
	}

	_, err := s.conn.Write(frame)
	return err
}

// Receive treats a closed connection (zero-length read) as an error.
func (s *tcpSession) Receive() (wire.Response, error) {
	if s.ioTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.ioTimeout)); err != nil {
			return nil, err
		}
	}

	return wire.ReadResponse(s.conn)
}

func (s *tcpSession) Close() error {
	return s.conn.Close()
}
