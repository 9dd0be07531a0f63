package gateway

import "errors"

var (
	// ErrUnauthorized signals rejected credentials or a missing/expired session.
	ErrUnauthorized = errors.New("gateway: unauthorized")
	// ErrNotFound signals that the requested table or row does not exist.
	ErrNotFound = errors.New("gateway: not found")
	// ErrUnavailable signals a network or service failure; callers treat it
	// as transient and fall back rather than retry automatically.
	ErrUnavailable = errors.New("gateway: backend unavailable")
	// ErrNoSession signals that no principal is currently signed in.
	ErrNoSession = errors.New("gateway: no active session")
)
