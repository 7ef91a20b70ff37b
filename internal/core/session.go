package core

import (
	"github.com/bramvdv/tileverse-server/internal/proto"
)

// Session is one physical connection as the hub sees it. The transport
// layer owns the socket; the hub only writes envelopes into Out and may
// ask the transport to close via the close hook.
type Session struct {
	ID  string
	Out chan *proto.Envelope

	// Set by the hub once the handshake succeeds.
	Verified bool
	Identity string
	Browser  bool

	closeHook func(reason string)
}

// NewSession builds a session with a buffered outbound queue.
func NewSession(id string, closeHook func(reason string)) *Session {
	return &Session{
		ID:        id,
		Out:       make(chan *proto.Envelope, 32),
		closeHook: closeHook,
	}
}

// Deliver queues an envelope for the write loop. Slow consumers drop.
func (s *Session) Deliver(env *proto.Envelope) bool {
	select {
	case s.Out <- env:
		return true
	default:
		return false
	}
}

// Close asks the transport to tear the connection down.
func (s *Session) Close(reason string) {
	if s.closeHook != nil {
		s.closeHook(reason)
	}
}
