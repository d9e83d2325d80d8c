package rtmp

import "fmt"

// SessionState is the per-connection lifecycle state.
type SessionState int

// Session states. A connection is created Handshaking and every path ends in
// Closed.
const (
	StateHandshaking SessionState = iota
	StateConnected
	StatePublishing
	StatePlaying
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StatePublishing:
		return "publishing"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// validTransitions is the explicit transition table; anything absent is an
// illegal transition and rejected, which keeps states like "publishing
// before connect" structurally unreachable.
var validTransitions = map[SessionState][]SessionState{
	StateHandshaking: {StateConnected, StateClosed},
	StateConnected:   {StatePublishing, StatePlaying, StateClosed},
	StatePublishing:  {StateClosed},
	StatePlaying:     {StateClosed},
}

// transition moves the session to next or fails with a ProtocolError naming
// the rejected edge.
func transition(from, to SessionState) (SessionState, error) {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return to, nil
		}
	}
	return from, &ProtocolError{Reason: fmt.Sprintf("illegal session transition %s -> %s", from, to)}
}
