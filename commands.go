package tickwire

// Version is reported by the CLI.
const Version = "0.1.0"

// Standard error messages
const (
	// Protocol errors
	ErrInvalidMessageFormat = "invalid message format"
	ErrRateLimitExceeded    = "rate limit exceeded"

	// Connection errors
	ErrUnknownConnection = "unknown connection"
	ErrNotConnected      = "not connected"
	ErrConnectionClosed  = "connection is closed"
	ErrFailedToEncode    = "failed to encode packet"
	ErrNetworkClosed     = "network closed"
)
