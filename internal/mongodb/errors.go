package mongodb

import "errors"

// Error taxonomy for the connection and query path. Tool handlers render
// each class differently, so every error leaving this package wraps exactly
// one of these sentinels.
var (
	// ErrValidation marks caller mistakes: bad parameters, malformed
	// extended JSON, out-of-range limits. Never involves the network.
	ErrValidation = errors.New("validation error")

	// ErrConnection marks failures establishing or keeping the two-hop
	// path (SSH tunnel or MongoDB session).
	ErrConnection = errors.New("connection error")

	// ErrRemote marks failures reported by MongoDB while executing an
	// operation over an established connection.
	ErrRemote = errors.New("mongodb operation error")
)
