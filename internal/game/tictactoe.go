// Package game holds the mini-game coordinators. The server does not
// referee these games; it pairs players and relays their moves, and only
// steps in when a participant vanishes mid-match.
package game

import (
	"github.com/rs/zerolog"

	"github.com/bramvdv/tileverse-server/internal/proto"
)

// Relay message types for tic-tac-toe.
const (
	TTTInvite  = "invite"
	TTTAccept  = "accept"
	TTTDecline = "decline"
	TTTMove    = "move"
	TTTQuit    = "quit"
)

// IdentitySender delivers an envelope to every socket of one identity.
type IdentitySender interface {
	SendIdentity(identity string, env *proto.Envelope)
}

// TicTacToe pairs players and relays their messages verbatim. Owned by the
// hub and only touched from the hub loop.
type TicTacToe struct {
	send    IdentitySender
	log     *zerolog.Logger
	matches map[string]string // identity -> opponent, both directions
}

func NewTicTacToe(send IdentitySender, logger *zerolog.Logger) *TicTacToe {
	return &TicTacToe{
		send:    send,
		log:     logger,
		matches: make(map[string]string),
	}
}

// Handle relays one message. Accepting an invite records the pairing; a
// quit or decline dissolves it. Moves between unpaired players are dropped.
func (t *TicTacToe) Handle(from string, p proto.TicTacToePayload, env *proto.Envelope) {
	if p.To == "" {
		return
	}
	switch p.Type {
	case TTTInvite:
		t.send.SendIdentity(p.To, env)
	case TTTAccept:
		t.matches[from] = p.To
		t.matches[p.To] = from
		t.send.SendIdentity(p.To, env)
	case TTTDecline:
		t.send.SendIdentity(p.To, env)
	case TTTMove:
		if t.matches[from] != p.To {
			t.log.Debug().Str("from", from).Str("to", p.To).Msg("tictactoe move outside a match")
			return
		}
		t.send.SendIdentity(p.To, env)
	case TTTQuit:
		t.dissolve(from)
		t.send.SendIdentity(p.To, env)
	default:
		t.log.Debug().Str("type", p.Type).Msg("unknown tictactoe message type")
	}
}

// HandleDisconnect ends any match the identity was in, telling the
// opponent the game is over.
func (t *TicTacToe) HandleDisconnect(id string) {
	opponent, ok := t.matches[id]
	if !ok {
		return
	}
	t.dissolve(id)
	quit := proto.New(proto.CmdTicTacToe, proto.TicTacToePayload{
		Type: TTTQuit,
		From: id,
		To:   opponent,
	}, proto.Opts{To: opponent})
	t.send.SendIdentity(opponent, quit)
}

// InMatch reports whether the identity has a live pairing.
func (t *TicTacToe) InMatch(id string) bool {
	_, ok := t.matches[id]
	return ok
}

func (t *TicTacToe) dissolve(id string) {
	if opponent, ok := t.matches[id]; ok {
		delete(t.matches, opponent)
	}
	delete(t.matches, id)
}
