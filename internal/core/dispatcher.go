package core

import (
	"github.com/rs/zerolog"

	"github.com/bramvdv/tileverse-server/internal/proto"
)

// Handler processes one verified, well-formed envelope for a command tag.
type Handler func(sess *Session, env *proto.Envelope)

// Dispatcher is the command-tag-to-handler table built at startup.
type Dispatcher struct {
	handlers map[string]Handler
	log      *zerolog.Logger
}

// NewDispatcher builds an empty dispatch table.
func NewDispatcher(logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		log:      logger,
	}
}

// Register binds a handler to a command tag. Registering a tag twice is a
// startup configuration error and panics.
func (d *Dispatcher) Register(command string, h Handler) {
	if _, dup := d.handlers[command]; dup {
		panic("core: handler already registered for command " + command)
	}
	d.handlers[command] = h
}

// Dispatch invokes the handler for an envelope's command tag. Unknown
// tags are logged and dropped, never a failure.
func (d *Dispatcher) Dispatch(sess *Session, env *proto.Envelope) {
	h, ok := d.handlers[env.Command]
	if !ok {
		d.log.Warn().Str("command", env.Command).Str("socket", sess.ID).Msg("no handler for command")
		return
	}
	h(sess, env)
}

// Registered reports whether a tag has a handler; used by tests.
func (d *Dispatcher) Registered(command string) bool {
	_, ok := d.handlers[command]
	return ok
}
