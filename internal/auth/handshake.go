// Package auth implements the per-socket challenge/response handshake that
// promotes an anonymous socket to a verified identity, and the symmetric
// handshake for graceful disconnection.
package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bramvdv/tileverse-server/internal/identity"
)

var (
	// ErrStaleAttempt rejects connection attempts declared too far in the past.
	ErrStaleAttempt = errors.New("auth: connection attempt is too old")
	// ErrIdentityInUse rejects a second live registration of the same identity.
	ErrIdentityInUse = errors.New("auth: public key and nick combination already in use")
	// ErrNoPending means a verification arrived without a matching challenge.
	ErrNoPending = errors.New("auth: no pending handshake for identity")
	// ErrNotVerified means the presented signature did not check out.
	ErrNotVerified = errors.New("auth: signature did not verify")
)

// KeyDirectory is the slice of the identity registry the handshake needs.
type KeyDirectory interface {
	KeyRegistered(identity string) bool
}

// Pending is a socket mid-handshake. It reaches exactly one terminal
// state, promotion or discard, and never outlives the handshake.
type Pending struct {
	Identity  string
	SocketID  string
	PublicKey string
	Nick      string
	Browser   bool
	Challenge string
	IssuedAt  time.Time
}

// Disconnecting is a pending graceful-disconnect handshake.
type Disconnecting struct {
	Identity  string
	SocketID  string
	Explicit  bool
	Rooms     []string
	Challenge string
	IssuedAt  time.Time
}

// Service drives both handshakes. It is owned by the hub and only touched
// from the hub loop.
type Service struct {
	keys         KeyDirectory
	staleWindow  time.Duration
	challengeTTL time.Duration
	now          func() time.Time

	pending     map[string]*Pending       // identity -> handshake
	disconnects map[string]*Disconnecting // socket ID -> handshake
}

// NewService builds a handshake service. staleWindow bounds how old a
// connection attempt's declared timestamp may be; challengeTTL bounds how
// long an unanswered challenge lives before eviction.
func NewService(keys KeyDirectory, staleWindow, challengeTTL time.Duration) *Service {
	return &Service{
		keys:         keys,
		staleWindow:  staleWindow,
		challengeTTL: challengeTTL,
		now:          time.Now,
		pending:      make(map[string]*Pending),
		disconnects:  make(map[string]*Disconnecting),
	}
}

// Begin validates a connection attempt and issues its single-use
// challenge. The declared timestamp must be within the staleness window
// and the identity string must not hold a live key.
func (s *Service) Begin(socketID, publicKey, nick string, browser bool, declaredAt time.Time) (*Pending, error) {
	if s.now().Sub(declaredAt) > s.staleWindow {
		return nil, ErrStaleAttempt
	}
	id := identity.FromKey(publicKey, nick)
	if s.keys.KeyRegistered(id) {
		return nil, ErrIdentityInUse
	}
	p := &Pending{
		Identity:  id,
		SocketID:  socketID,
		PublicKey: publicKey,
		Nick:      nick,
		Browser:   browser,
		Challenge: uuid.NewString(),
		IssuedAt:  s.now(),
	}
	s.pending[id] = p
	return p, nil
}

// Complete consumes the pending handshake for an identity and verifies the
// signature over its challenge. The pending record is removed on every
// outcome; a failed verification requires a fresh attempt.
func (s *Service) Complete(id string, signature []byte) (*Pending, error) {
	p, ok := s.pending[id]
	if !ok {
		return nil, ErrNoPending
	}
	delete(s.pending, id)
	if err := identity.VerifySignature(p.PublicKey, signature, p.Challenge, p.Browser); err != nil {
		return nil, ErrNotVerified
	}
	return p, nil
}

// Abort discards any pending handshake for a socket, e.g. when the socket
// drops mid-handshake.
func (s *Service) Abort(socketID string) {
	for id, p := range s.pending {
		if p.SocketID == socketID {
			delete(s.pending, id)
		}
	}
	delete(s.disconnects, socketID)
}

// BeginDisconnect issues the disconnect challenge for a verified socket.
func (s *Service) BeginDisconnect(socketID, id string, explicit bool, rooms []string) *Disconnecting {
	d := &Disconnecting{
		Identity:  id,
		SocketID:  socketID,
		Explicit:  explicit,
		Rooms:     rooms,
		Challenge: uuid.NewString(),
		IssuedAt:  s.now(),
	}
	s.disconnects[socketID] = d
	return d
}

// CompleteDisconnect consumes the disconnect handshake for a socket and
// verifies the signature against the identity's registered key.
func (s *Service) CompleteDisconnect(socketID, publicKey string, browser bool, signature []byte) (*Disconnecting, error) {
	d, ok := s.disconnects[socketID]
	if !ok {
		return nil, ErrNoPending
	}
	delete(s.disconnects, socketID)
	if err := identity.VerifySignature(publicKey, signature, d.Challenge, browser); err != nil {
		return nil, ErrNotVerified
	}
	return d, nil
}

// Sweep evicts handshakes whose challenge outlived the TTL and returns
// them so the caller can close the sockets. Without eviction an abandoned
// handshake would pin its pending record forever.
func (s *Service) Sweep() []*Pending {
	cutoff := s.now().Add(-s.challengeTTL)
	var expired []*Pending
	for id, p := range s.pending {
		if p.IssuedAt.Before(cutoff) {
			delete(s.pending, id)
			expired = append(expired, p)
		}
	}
	for sockID, d := range s.disconnects {
		if d.IssuedAt.Before(cutoff) {
			delete(s.disconnects, sockID)
		}
	}
	return expired
}

// PendingCount reports outstanding connection handshakes.
func (s *Service) PendingCount() int {
	return len(s.pending)
}
