package mcp

import "time"

// ClientInfo mirrors the MCP initialize request's clientInfo block.
type ClientInfo struct {
	Name    string
	Version string
}

// SessionState is a coarse classification of a stateful session's health,
// driven by the ping keep-alive (§4.4.7).
type SessionState string

const (
	SessionConnected    SessionState = "connected"
	SessionDistressed   SessionState = "distressed"
	SessionDisconnected SessionState = "disconnected"
)

// SessionMetadata describes a single logical connection tracked by the
// stateful transport, or by the stateless transport in analytics mode.
type SessionMetadata struct {
	ID              string
	ConnectedAt     time.Time
	LastActivity    time.Time
	RequestCount    int64
	IsAuthenticated bool
	ClientInfo      *ClientInfo
	Capabilities    map[string]bool
	PingFailures    int
	LastPingAttempt time.Time
	IPAddress       string
	State           SessionState
}
