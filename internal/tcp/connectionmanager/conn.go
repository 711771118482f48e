package connectionmanager

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"gitlab.com/sysmon-2025.net/internal/adapter/metrics"
	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// ConnectionManager tracks open collector connections
type ConnectionManager struct {
	Connections map[string]net.Conn // remote address -> conn
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
	metrics     *metrics.ServerMetrics
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger, m *metrics.ServerMetrics) *ConnectionManager {
	if m == nil {
		m = metrics.NewServerMetrics(nil)
	}
	return &ConnectionManager{
		Connections: make(map[string]net.Conn),
		Logger:      logger,
		metrics:     m,
	}
}

// AddConnection registers a newly accepted connection
func (cm *ConnectionManager) AddConnection(conn net.Conn) {
	cm.ConnMutex.Lock()
	cm.Connections[conn.RemoteAddr().String()] = conn
	cm.ConnMutex.Unlock()

	cm.metrics.Connections.Inc()
	cm.metrics.ActiveConnections.Inc()
}

// RemoveConnection forgets a connection once its handler returns
func (cm *ConnectionManager) RemoveConnection(conn net.Conn) {
	addr := conn.RemoteAddr().String()

	cm.ConnMutex.Lock()
	_, exists := cm.Connections[addr]
	delete(cm.Connections, addr)
	cm.ConnMutex.Unlock()

	if exists {
		cm.metrics.ActiveConnections.Dec()
	}
}

// Count returns the number of open connections
func (cm *ConnectionManager) Count() int {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	return len(cm.Connections)
}

// CloseAll closes every tracked connection
func (cm *ConnectionManager) CloseAll() {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()

	for addr, conn := range cm.Connections {
		if err := conn.Close(); err != nil {
			cm.Logger.Error("Failed to close connection", "remoteAddr", addr, "error", err)
		}
	}
}

// SendAck writes an Ack response with the given code
func (cm *ConnectionManager) SendAck(conn net.Conn, code uint32) error {
	if err := SendResponse(conn, wire.Ack{Code: code}); err != nil {
		return err
	}

	cm.metrics.Acks.WithLabelValues(strconv.FormatUint(uint64(code), 10)).Inc()
	return nil
}

// SendResponse writes one response to a collector
func SendResponse(conn net.Conn, resp wire.Response) error {
	if _, err := conn.Write(wire.EncodeResponse(resp)); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}

	return nil
}
