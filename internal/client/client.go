// Package client owns the single WebSocket connection to the chat relay and
// keeps it alive across drops.
package client

import (
	"context"
	"errors"
)

// ErrNotConnected is returned when sending while the socket is not open.
var ErrNotConnected = errors.New("not connected to server")

// Socket is one open WebSocket connection carrying text frames.
type Socket interface {
	// ReadMessage blocks until the next data frame arrives.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one text frame. It honours ctx's deadline.
	WriteMessage(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error
}

// Dialer opens sockets. Both the gorilla and gobwas implementations satisfy it.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// Status is the lifecycle state of a Manager.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusOpen
	StatusReconnecting
	StatusDisconnected
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusOpen:
		return "open"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
