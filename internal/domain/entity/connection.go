package entity

// ConnectionState tracks the lifecycle of the single realtime channel a
// session owns. Exactly one instance exists per active session, and no
// inbound event is processed unless the state is StateConnected.
type ConnectionState string

const (
	// StateDisconnected is the initial state and the result of an explicit disconnect.
	StateDisconnected ConnectionState = "disconnected"
	// StateConnecting means a transport dial and handshake are in flight.
	StateConnecting ConnectionState = "connecting"
	// StateConnected means the handshake was acknowledged and events flow.
	StateConnected ConnectionState = "connected"
	// StateReconnecting means the transport dropped and bounded retries are running.
	StateReconnecting ConnectionState = "reconnecting"
	// StateFailed means the dial or the retry budget was exhausted.
	StateFailed ConnectionState = "failed"
)

// String returns the string representation of the ConnectionState.
func (s ConnectionState) String() string {
	return string(s)
}

// CanProcessEvents reports whether inbound events may be applied in this state.
func (s ConnectionState) CanProcessEvents() bool {
	return s == StateConnected
}
