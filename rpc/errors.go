package rpc

import "errors"

// Error kinds surfaced by the confidential RPC client, per the failure model in spec.md §4.4:
// transport errors and attestation failures surface as RPC errors, decode errors surface as
// MalformedResponse.
var (
	// ErrTransport covers connection and attestation-session failures.
	ErrTransport = errors.New("rpc: transport error")
	// ErrDecode covers malformed or unexpected response payloads.
	ErrDecode = errors.New("rpc: malformed response")
)
