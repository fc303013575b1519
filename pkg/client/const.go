package client

import (
	"errors"

	"go.uber.org/atomic"
)

// Status represents the state of the connection.
type Status int

const (
	CONNECTING = Status(iota)
	LOGGINGIN
	RUNNING
	SHUTTINGDOWN
	CLOSED
)

func (s Status) String() string {
	switch s {
	case CONNECTING:
		return "CONNECTING"
	case LOGGINGIN:
		return "LOGGINGIN"
	case RUNNING:
		return "RUNNING"
	case SHUTTINGDOWN:
		return "SHUTTINGDOWN"
	case CLOSED:
		return "CLOSED"
	}
	return "unknown status"
}

var (
	ErrLoginFailed      = errors.New("rosapi login failed")
	ErrConnectionClosed = errors.New("rosapi connection closed")
	ErrClosed           = errors.New("rosapi device closed")
	ErrTagReused        = errors.New("rosapi tag reused while still outstanding")
)

// Statistics Statistics
type Statistics struct {
	InSentences atomic.Uint64
	OutCommands atomic.Uint64
	InBytes     atomic.Uint64
	OutBytes    atomic.Uint64
	Traps       atomic.Uint64
}
