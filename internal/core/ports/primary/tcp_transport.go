package primary

import (
	"context"
	"net"

	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// CommandHandler handles one decoded command variant.
// A returned error closes the connection.
type CommandHandler interface {
	HandleCommand(ctx context.Context, conn net.Conn, timestamp uint32, cmd wire.Command) error
}
