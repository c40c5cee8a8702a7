package walletauth

import (
	"errors"
)

var (
	// ErrUnauthorized is returned for every rejected credential: bad signature, expired nonce,
	// revoked or reused token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the session lacks a required role
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRequest is returned when the server rejects the request shape or address
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnavailable is returned when the server cannot reach its stores; the call may be retried
	ErrUnavailable = errors.New("service unavailable")

	// ErrUnexpectedResponse is returned for any other status
	ErrUnexpectedResponse = errors.New("unexpected response")
)
