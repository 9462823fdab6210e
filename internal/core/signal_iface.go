package core

import "errors"

// Frame is a raw encoded event ready to be written to a transport.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks. It returns ErrBackpressure when the outbound
	// buffer is full and ErrClosed after Close.
	TrySend(Frame) error
	Close()
}
