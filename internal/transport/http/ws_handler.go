package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/bramvdv/tileverse-server/internal/core"
	"github.com/bramvdv/tileverse-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to the hub as
// sessions. Malformed envelopes are dropped here; everything well-formed
// goes through the hub loop.
type WSHandler struct {
	hub     *core.Hub
	log     *zerolog.Logger
	limiter *rateLimiter
}

// NewWSHandler builds a new WebSocket handler. connPerMinute caps accepted
// connections; zero disables the cap.
func NewWSHandler(hub *core.Hub, connPerMinute int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:     hub,
		log:     logger,
		limiter: newRateLimiter(connPerMinute),
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if !h.limiter.allow() {
		stdhttp.Error(w, "too many connections", stdhttp.StatusTooManyRequests)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := core.NewSession(uuid.NewString(), func(string) { cancel() })
	h.hub.Attach(sess)
	defer h.hub.Detach(sess.ID)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return err
		}
		env, ok := proto.Decode(raw)
		if !ok {
			h.log.Warn().Str("socket", sess.ID).Msg("dropping malformed envelope")
			continue
		}
		h.hub.Inbound(sess, env)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		select {
		case env := <-sess.Out:
			if err := wsjson.Write(ctx, conn, env); err != nil {
				h.log.Error().Err(err).Str("socket", sess.ID).Msg("write ws envelope")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
