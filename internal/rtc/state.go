// Package rtc covers the media-backend surface of the console: access token
// minting with embedded grants, the token issuer behind /api/token, and a
// minimal participant room client.
package rtc

// ConnectionState mirrors the media backend's session lifecycle. Only
// StateConnected gates behavior elsewhere in this codebase.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
