package mongodb

import (
	"context"
	"errors"
	"strings"

	conn "github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
)

// Connector is the slice of the connection coordinator the tools depend on.
type Connector interface {
	EnsureConnected(ctx context.Context) (conn.Session, error)
	Disconnect(ctx context.Context)
}

// errorText renders an error for the tool caller. Each class of the taxonomy
// gets a distinct label so the caller can tell a bad parameter from a broken
// link from a server-side failure. Rendered as normal text: a failed tool
// call must never look like a protocol failure.
func errorText(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, conn.ErrValidation):
		return "Parameter Error: " + strings.TrimPrefix(msg, conn.ErrValidation.Error()+": ")
	case errors.Is(err, conn.ErrConnection):
		return "Connection Error: " + strings.TrimPrefix(msg, conn.ErrConnection.Error()+": ")
	case errors.Is(err, conn.ErrRemote):
		return "MongoDB Error: " + strings.TrimPrefix(msg, conn.ErrRemote.Error()+": ")
	default:
		return "Error: " + msg
	}
}
