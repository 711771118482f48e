package agent

import (
	"context"
	"sync"

	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// step scripts the outcome of one send attempt. The zero value is Ack(0).
type step struct {
	sendErr error
	recvErr error
	resp    wire.Response
}

type fakeTransport struct {
	mu      sync.Mutex
	dialErr error
	steps   []step
	dials   int
	sent    [][]byte
	acked   [][]byte
}

func (f *fakeTransport) Dial(context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return &fakeSession{transport: f}, nil
}

func (f *fakeTransport) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

type fakeSession struct {
	transport *fakeTransport
	current   step
	frame     []byte
}

func (s *fakeSession) Send(frame []byte) error {
	f := s.transport
	f.mu.Lock()
	defer f.mu.Unlock()

	s.current = step{}
	if len(f.steps) > 0 {
		s.current = f.steps[0]
		f.steps = f.steps[1:]
	}
	if s.current.sendErr != nil {
		return s.current.sendErr
	}

	s.frame = frame
	f.sent = append(f.sent, frame)
	return nil
}

func (s *fakeSession) Receive() (wire.Response, error) {
	f := s.transport
	f.mu.Lock()
	defer f.mu.Unlock()

	if s.current.recvErr != nil {
		return nil, s.current.recvErr
	}
	if s.current.resp != nil {
		return s.current.resp, nil
	}

	f.acked = append(f.acked, s.frame)
	return wire.Ack{Code: 0}, nil
}

func (s *fakeSession) Close() error { return nil }
