package webcast

import "errors"

// Sentinel errors returned by this package.
var (
	// ErrUserOffline is returned by Connect when the broadcaster is not live.
	ErrUserOffline = errors.New("user is offline")

	// ErrDisconnected is returned by Run when an established session ends.
	ErrDisconnected = errors.New("session disconnected")

	// ErrMalformedFrame is returned by Run when the relay sends a frame that
	// cannot be decoded.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrRelay is returned when the relay rejects the session for a reason
	// other than the broadcaster being offline.
	ErrRelay = errors.New("relay error")

	// ErrNotConnected is returned by Run before a successful Connect.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned by Connect while a session is open.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client closed")
)
