package game

import (
	"github.com/rs/zerolog"

	"github.com/bramvdv/tileverse-server/internal/proto"
)

// Relay message types for capture-the-flag.
const (
	CTFStart   = "start"
	CTFJoin    = "join"
	CTFFlag    = "flag"
	CTFCapture = "capture"
	CTFEnd     = "end"
)

// RoomSender delivers an envelope to every member of a world, optionally
// skipping one identity.
type RoomSender interface {
	SendRoom(world string, env *proto.Envelope, except string)
}

type ctfRound struct {
	running      bool
	participants map[string]struct{}
	positions    map[string]proto.CellRef
}

// CTF runs one capture-the-flag round per world: a running flag, the
// participant set, and a relay for everything else. Owned by the hub.
type CTF struct {
	send   RoomSender
	log    *zerolog.Logger
	rounds map[string]*ctfRound // world name -> round
}

func NewCTF(send RoomSender, logger *zerolog.Logger) *CTF {
	return &CTF{
		send:   send,
		log:    logger,
		rounds: make(map[string]*ctfRound),
	}
}

func (c *CTF) round(world string) *ctfRound {
	r, ok := c.rounds[world]
	if !ok {
		r = &ctfRound{
			participants: make(map[string]struct{}),
			positions:    make(map[string]proto.CellRef),
		}
		c.rounds[world] = r
	}
	return r
}

// Handle processes one message for its world. Starts and joins mutate the
// round; everything else relays to the world's members.
func (c *CTF) Handle(from string, p proto.CTFPayload, env *proto.Envelope) {
	r := c.round(p.World)
	switch p.Type {
	case CTFStart:
		if r.running {
			return
		}
		r.running = true
		r.participants[from] = struct{}{}
		c.send.SendRoom(p.World, env, "")
	case CTFJoin:
		if !r.running {
			return
		}
		r.participants[from] = struct{}{}
		c.send.SendRoom(p.World, env, from)
	case CTFEnd:
		c.endRound(p.World, r, env)
	case CTFFlag, CTFCapture:
		if !r.running {
			return
		}
		c.send.SendRoom(p.World, env, from)
	default:
		c.log.Debug().Str("type", p.Type).Str("world", p.World).Msg("unknown ctf message type")
	}
}

// Running reports whether a round is live in the world.
func (c *CTF) Running(world string) bool {
	r, ok := c.rounds[world]
	return ok && r.running
}

// Participants reports the live participant count for a world's round.
func (c *CTF) Participants(world string) int {
	r, ok := c.rounds[world]
	if !ok {
		return 0
	}
	return len(r.participants)
}

// PositionUpdate records a participant's latest cell while a round runs.
// Non-participants and idle worlds are ignored.
func (c *CTF) PositionUpdate(world, id string, x, y int) {
	r, ok := c.rounds[world]
	if !ok || !r.running {
		return
	}
	if _, in := r.participants[id]; !in {
		return
	}
	r.positions[id] = proto.CellRef{Row: y, Column: x}
}

// ParticipantPosition returns a participant's last recorded cell.
func (c *CTF) ParticipantPosition(world, id string) (proto.CellRef, bool) {
	r, ok := c.rounds[world]
	if !ok {
		return proto.CellRef{}, false
	}
	pos, ok := r.positions[id]
	return pos, ok
}

// RemoveParticipant drops an identity from a world's round, for example
// when it leaves the world. A round with no participants left ends, and
// the remaining members hear about it.
func (c *CTF) RemoveParticipant(world, id string) {
	r, ok := c.rounds[world]
	if !ok {
		return
	}
	if _, in := r.participants[id]; !in {
		return
	}
	delete(r.participants, id)
	delete(r.positions, id)
	if r.running && len(r.participants) == 0 {
		end := proto.New(proto.CmdCTF, proto.CTFPayload{Type: CTFEnd, World: world}, proto.Opts{})
		c.endRound(world, r, end)
	}
}

// HandleDisconnect drops the identity from every world's round.
func (c *CTF) HandleDisconnect(id string) {
	for world := range c.rounds {
		c.RemoveParticipant(world, id)
	}
}

func (c *CTF) endRound(world string, r *ctfRound, env *proto.Envelope) {
	if !r.running {
		return
	}
	r.running = false
	r.participants = make(map[string]struct{})
	r.positions = make(map[string]proto.CellRef)
	c.send.SendRoom(world, env, "")
}
