package core

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/bramvdv/tileverse-server/internal/auth"
	"github.com/bramvdv/tileverse-server/internal/game"
	"github.com/bramvdv/tileverse-server/internal/identity"
	"github.com/bramvdv/tileverse-server/internal/proto"
	"github.com/bramvdv/tileverse-server/internal/scheduler"
)

const sweepPeriod = 30 * time.Second

// Options configures a hub.
type Options struct {
	Catalog      *Catalog
	LobbyGrid    [][]string
	HistoryLimit int
	StaleWindow  time.Duration
	ChallengeTTL time.Duration
	JoinPause    time.Duration
	Logger       *zerolog.Logger
}

type inboundMsg struct {
	sess *Session
	env  *proto.Envelope
}

// Hub is the single owner of all mutable server state. One goroutine runs
// its loop; transports and timers funnel work in through channels, so no
// registry, room, or score access ever races.
type Hub struct {
	log  *zerolog.Logger
	opts Options

	registry   *identity.Registry
	auth       *auth.Service
	sched      *scheduler.Scheduler
	dispatcher *Dispatcher
	scores     *Scoreboard
	ttt        *game.TicTacToe
	ctf        *game.CTF
	rng        *rand.Rand
	now        func() time.Time

	sessions map[string]*Session            // socket ID -> session
	rooms    map[string]*Room               // room name -> room (worlds and channels)
	lobby    map[string]struct{}            // identities idling in the lobby
	cli      map[string]struct{}            // headless identities (text-mode broadcasts)
	worldOf  map[string]string              // identity -> current world, if any
	cleared  map[string]map[string]struct{} // world -> identities that passed its password

	register   chan *Session
	unregister chan string
	inbound    chan inboundMsg
	tasks      chan func()
	done       chan struct{}
}

// NewHub wires the hub and builds every static world from the catalog.
// Run must be called before any transport attaches.
func NewHub(opts Options) *Hub {
	h := &Hub{
		log:      opts.Logger,
		opts:     opts,
		registry: identity.NewRegistry(),
		scores:   NewScoreboard(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,

		sessions: make(map[string]*Session),
		rooms:    make(map[string]*Room),
		lobby:    make(map[string]struct{}),
		cli:      make(map[string]struct{}),
		worldOf:  make(map[string]string),
		cleared:  make(map[string]map[string]struct{}),

		register:   make(chan *Session),
		unregister: make(chan string),
		inbound:    make(chan inboundMsg, 64),
		tasks:      make(chan func(), 64),
		done:       make(chan struct{}),
	}
	h.auth = auth.NewService(h.registry, opts.StaleWindow, opts.ChallengeTTL)
	h.sched = scheduler.New(h.submitTask)
	h.dispatcher = NewDispatcher(opts.Logger)
	h.ttt = game.NewTicTacToe(h, opts.Logger)
	h.ctf = game.NewCTF(h, opts.Logger)
	h.registerHandlers()
	h.buildWorlds()
	return h
}

func (h *Hub) buildWorlds() {
	for _, spec := range h.opts.Catalog.Worlds {
		var regen func() [][]string
		if spec.Maze {
			regen = func() [][]string { return spec.BuildGrid(h.rng) }
		}
		room := NewWorld(spec.Name, spec.BuildGrid(h.rng), h.opts.HistoryLimit, regen)
		h.rooms[spec.Name] = room
		StartLoops(room, spec, h.sched, h.now, h.emitTiles)
	}
}

// Run owns the loop until ctx is cancelled. Everything that touches hub
// state happens inside this goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.sched.Every(sweepPeriod, h.sweepHandshakes)
	h.log.Info().Int("worlds", len(h.opts.Catalog.Worlds)).Msg("hub running")
	for {
		select {
		case sess := <-h.register:
			h.sessions[sess.ID] = sess
			h.log.Debug().Str("socket", sess.ID).Msg("socket attached")
		case socketID := <-h.unregister:
			h.dropSocket(socketID)
		case msg := <-h.inbound:
			h.handleInbound(msg.sess, msg.env)
		case fn := <-h.tasks:
			fn()
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Attach hands a freshly accepted connection to the hub loop.
func (h *Hub) Attach(sess *Session) {
	select {
	case h.register <- sess:
	case <-h.done:
	}
}

// Detach reports a closed connection to the hub loop.
func (h *Hub) Detach(socketID string) {
	select {
	case h.unregister <- socketID:
	case <-h.done:
	}
}

// Inbound hands one decoded envelope to the hub loop.
func (h *Hub) Inbound(sess *Session, env *proto.Envelope) {
	select {
	case h.inbound <- inboundMsg{sess: sess, env: env}:
	case <-h.done:
	}
}

// LeaderboardSnapshot fetches the score table through the hub loop, for
// the HTTP surface. Safe to call from any goroutine.
func (h *Hub) LeaderboardSnapshot(ctx context.Context) ([]proto.LeaderboardEntry, error) {
	reply := make(chan []proto.LeaderboardEntry, 1)
	select {
	case h.tasks <- func() { reply <- h.scores.Entries() }:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, context.Canceled
	}
	select {
	case entries := <-reply:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) submitTask(fn func()) {
	select {
	case h.tasks <- fn:
	case <-h.done:
	}
}

func (h *Hub) shutdown() {
	h.sched.StopAll()
	close(h.done)
	for _, sess := range h.sessions {
		sess.Close("server shutting down")
	}
	h.log.Info().Msg("hub stopped")
}

// handleInbound is the gate every client envelope passes before dispatch:
// the integrity hash must check out, and an unverified socket may only
// speak the handshake commands.
func (h *Hub) handleInbound(sess *Session, env *proto.Envelope) {
	if !proto.VerifyHash(env) {
		h.log.Warn().Str("socket", sess.ID).Str("command", env.Command).Msg("dropping envelope with bad hash")
		return
	}
	if !sess.Verified && env.Command != proto.CmdConnectionAttempt && env.Command != proto.CmdSubmitVerification {
		h.log.Warn().Str("socket", sess.ID).Str("command", env.Command).Msg("dropping command from unverified socket")
		return
	}
	h.dispatcher.Dispatch(sess, env)
}

func (h *Hub) sweepHandshakes() {
	for _, p := range h.auth.Sweep() {
		h.log.Info().Str("identity", p.Identity).Str("socket", p.SocketID).Msg("handshake challenge expired")
		if sess, ok := h.sessions[p.SocketID]; ok {
			sess.Deliver(proto.New(proto.CmdFailedVerification, proto.FailedVerificationPayload{}, proto.Opts{}))
			sess.Close("verification timed out")
		}
	}
}

// --- send primitives; hub loop only ---

func (h *Hub) sendSocket(socketID string, env *proto.Envelope) {
	sess, ok := h.sessions[socketID]
	if !ok {
		return
	}
	if !sess.Deliver(env) {
		h.log.Warn().Str("socket", socketID).Str("command", env.Command).Msg("outbound queue full, dropping")
	}
}

// SendIdentity delivers to every socket authenticated as the identity. A
// bare hash fans out across every nick seen for it.
func (h *Hub) SendIdentity(id string, env *proto.Envelope) {
	for _, socketID := range h.registry.SocketsFor(id) {
		h.sendSocket(socketID, env)
	}
}

// SendRoom delivers to every interactive member of a room, skipping except.
func (h *Hub) SendRoom(roomName string, env *proto.Envelope, except string) {
	room, ok := h.rooms[roomName]
	if !ok {
		return
	}
	for _, member := range room.Members() {
		if member == except {
			continue
		}
		h.SendIdentity(member, env)
	}
}

func (h *Hub) broadcastAll(env *proto.Envelope, except string) {
	for _, sess := range h.sessions {
		if !sess.Verified || sess.Identity == except {
			continue
		}
		if !sess.Deliver(env) {
			h.log.Warn().Str("socket", sess.ID).Str("command", env.Command).Msg("outbound queue full, dropping")
		}
	}
}

func (h *Hub) sendLobby(env *proto.Envelope, except string) {
	for id := range h.lobby {
		if id == except {
			continue
		}
		h.SendIdentity(id, env)
	}
}

// emitTiles fans a world loop's grid deltas out to the world's members.
// Runs on the hub loop via the scheduler.
func (h *Hub) emitTiles(room *Room, tiles []proto.TileUpdate) {
	if room.MemberCount() == 0 && room.BotCount() == 0 {
		return
	}
	env := proto.New(proto.CmdUpdateWorldTiles, proto.UpdateWorldTilesPayload{Tiles: tiles}, proto.Opts{})
	for _, member := range room.Members() {
		h.SendIdentity(member, env)
	}
}

// --- occupancy bookkeeping ---

func (h *Hub) worldSizes() []int {
	out := make([]int, 0, len(h.opts.Catalog.Worlds))
	for _, spec := range h.opts.Catalog.Worlds {
		out = append(out, h.rooms[spec.Name].MemberCount())
	}
	return out
}

func (h *Hub) botSizes() []int {
	out := make([]int, 0, len(h.opts.Catalog.Worlds))
	for _, spec := range h.opts.Catalog.Worlds {
		out = append(out, h.rooms[spec.Name].BotCount())
	}
	return out
}

func (h *Hub) privateWorlds() []string {
	out := []string{}
	for _, spec := range h.opts.Catalog.Worlds {
		if h.rooms[spec.Name].Private {
			out = append(out, spec.Name)
		}
	}
	return out
}

// broadcastOccupancy tells the lobby about a world's membership delta.
// Clients inside worlds do not track the counters.
func (h *Hub) broadcastOccupancy(world, action string) {
	env := proto.New(proto.CmdWorldSizeUpdate, proto.WorldSizeUpdatePayload{World: world, Action: action}, proto.Opts{})
	h.sendLobby(env, "")
}

// --- departure cascade ---

// dropSocket handles a connection that went away, gracefully or not.
func (h *Hub) dropSocket(socketID string) {
	h.auth.Abort(socketID)
	sess, ok := h.sessions[socketID]
	if !ok {
		return
	}
	delete(h.sessions, socketID)
	if !sess.Verified {
		return
	}
	h.registry.RemoveSocket(sess.Identity, socketID)
	if len(h.registry.SocketsFor(sess.Identity)) == 0 {
		h.removeIdentity(sess.Identity)
	}
}

// removeIdentity runs the full departure cascade once an identity's last
// socket is gone: games, world, lobby, channels, admin claims, and the
// live key registration.
func (h *Hub) removeIdentity(id string) {
	h.ttt.HandleDisconnect(id)
	h.ctf.HandleDisconnect(id)

	if world, ok := h.worldOf[id]; ok {
		h.leaveWorld(id, world)
	}
	if _, ok := h.lobby[id]; ok {
		delete(h.lobby, id)
		h.sendLobby(proto.New(proto.CmdDeleteClient, proto.DeleteClientPayload{Identity: id}, proto.Opts{}), id)
	}
	for name, room := range h.rooms {
		if room.IsWorld {
			continue
		}
		if removed, _ := room.Remove(id); removed && room.MemberCount() == 0 {
			delete(h.rooms, name)
			h.log.Info().Str("channel", name).Msg("empty channel removed")
		}
	}
	h.registry.DeregisterKey(id)

	if _, headless := h.cli[id]; headless {
		delete(h.cli, id)
	}
	notice := proto.New(proto.CmdInfo, proto.InfoPayload{Msg: id + " disconnected"}, proto.Opts{})
	for peer := range h.cli {
		h.SendIdentity(peer, notice)
	}
	h.log.Info().Str("identity", id).Msg("identity departed")
}

// leaveWorld removes an identity from its world and tells everyone who
// needs to know: the world's members lose the actor, the lobby hears the
// occupancy delta, and an admin's departure reopens the world.
func (h *Hub) leaveWorld(id, worldName string) {
	room, ok := h.rooms[worldName]
	if !ok {
		return
	}
	removed, wasBot := room.Remove(id)
	if !removed {
		delete(h.worldOf, id)
		return
	}
	delete(h.worldOf, id)

	deleteEnv := proto.New(proto.CmdDeleteClient, proto.DeleteClientPayload{Identity: id}, proto.Opts{})
	for _, member := range room.Members() {
		h.SendIdentity(member, deleteEnv)
	}

	action := proto.ActionLeftClient
	if wasBot {
		action = proto.ActionLeftBot
	}
	h.broadcastOccupancy(worldName, action)

	h.ctf.RemoveParticipant(worldName, id)

	if room.WorldAdmin == id {
		h.revertAdmin(room)
	}
	if room.MemberCount() == 0 && room.BotCount() == 0 && room.Regenerate() {
		h.log.Debug().Str("world", worldName).Msg("empty world regenerated")
	}
}

// revertAdmin reopens a private world after its admin left.
func (h *Hub) revertAdmin(room *Room) {
	room.Private = false
	room.WorldAdmin = ""
	room.WorldPassword = ""
	delete(h.cleared, room.Name)
	h.SendRoom(room.Name, proto.New(proto.CmdUpdateAdmin, proto.UpdateAdminPayload{Identity: ""}, proto.Opts{To: room.Name}), "")
	h.sendLobby(proto.New(proto.CmdAllPrivateWorlds, proto.AllPrivateWorldsPayload{Worlds: h.privateWorlds()}, proto.Opts{}), "")
	h.log.Info().Str("world", room.Name).Msg("world reverted to public")
}
