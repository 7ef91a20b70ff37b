package core

import (
	"sort"
	"strings"

	"github.com/bramvdv/tileverse-server/internal/auth"
	"github.com/bramvdv/tileverse-server/internal/identity"
	"github.com/bramvdv/tileverse-server/internal/proto"
)

const (
	homeChannelPrefix = "#channel_"
	homeHistoryLimit  = 50
	maxChannelHistory = 100
	welcomeMessage    = "welcome to the grid"
)

func (h *Hub) registerHandlers() {
	h.dispatcher.Register(proto.CmdConnectionAttempt, h.handleConnectionAttempt)
	h.dispatcher.Register(proto.CmdSubmitVerification, h.handleSubmitVerification)
	h.dispatcher.Register(proto.CmdChatMessage, h.handleChatMessage)
	h.dispatcher.Register(proto.CmdAudio, h.handleAudio)
	h.dispatcher.Register(proto.CmdChannelCreate, h.handleChannelCreate)
	h.dispatcher.Register(proto.CmdChannelJoin, h.handleChannelJoin)
	h.dispatcher.Register(proto.CmdChannelLeave, h.handleChannelLeave)
	h.dispatcher.Register(proto.CmdRequestAllChannels, h.handleRequestAllChannels)
	h.dispatcher.Register(proto.CmdJoinWorld, h.handleJoinWorld)
	h.dispatcher.Register(proto.CmdTryPassword, h.handleTryPassword)
	h.dispatcher.Register(proto.CmdSetAdmin, h.handleSetAdmin)
	h.dispatcher.Register(proto.CmdUpdatePosition, h.handleUpdatePosition)
	h.dispatcher.Register(proto.CmdUpdateSkin, h.handleUpdateSkin)
	h.dispatcher.Register(proto.CmdRequestPublicKey, h.handleRequestPublicKey)
	h.dispatcher.Register(proto.CmdDisconnectAttempt, h.handleDisconnectAttempt)
	h.dispatcher.Register(proto.CmdDisconnectCommit, h.handleDisconnectCommit)
	h.dispatcher.Register(proto.CmdUpdateScore, h.handleUpdateScore)
	h.dispatcher.Register(proto.CmdRequestLeaderboard, h.handleRequestLeaderboard)
	h.dispatcher.Register(proto.CmdTicTacToe, h.handleTicTacToe)
	h.dispatcher.Register(proto.CmdCTF, h.handleCTF)
}

func (h *Hub) sendError(sess *Session, code, msg string) {
	ce := &CoreError{Code: code, Message: msg}
	sess.Deliver(proto.New(proto.CmdError, proto.ErrorPayload{Msg: ce.Code + ": " + ce.Message}, proto.Opts{To: sess.Identity}))
}

func (h *Hub) sendSuccess(sess *Session, msg string) {
	sess.Deliver(proto.New(proto.CmdSuccess, proto.SuccessPayload{Msg: msg}, proto.Opts{To: sess.Identity}))
}

// forwarded clones a client envelope for fan-out: the sender identity goes
// into From and the hop gets a fresh timestamp and seal.
func forwarded(env *proto.Envelope, from string) *proto.Envelope {
	out := *env
	out.From = from
	out.Timestamp = proto.Now()
	proto.Seal(&out)
	return &out
}

// --- handshake ---

func (h *Hub) handleConnectionAttempt(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.ConnectionAttemptPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed connection attempt")
		return
	}
	declaredAt, err := proto.ParseTimestamp(env.Timestamp)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "unparseable timestamp")
		return
	}
	pend, err := h.auth.Begin(sess.ID, p.PublicKey, p.Nick, p.Browser, declaredAt)
	switch err {
	case nil:
	case auth.ErrStaleAttempt:
		h.sendError(sess, ErrCodeStaleAttempt, "connection attempt is too old")
		sess.Close("stale connection attempt")
		return
	case auth.ErrIdentityInUse:
		h.sendError(sess, ErrCodeIdentityInUse, "that key and nick are already connected")
		return
	default:
		h.sendError(sess, ErrCodeBadRequest, err.Error())
		return
	}
	h.log.Info().Str("identity", pend.Identity).Str("socket", sess.ID).Msg("handshake started")
	sess.Deliver(proto.New(proto.CmdPromptVerification,
		proto.PromptVerificationPayload{Challenge: pend.Challenge},
		proto.Opts{To: pend.Identity}))
}

func (h *Hub) handleSubmitVerification(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.SubmitVerificationPayload](env)
	if err != nil || env.Identity == "" {
		h.sendError(sess, ErrCodeBadRequest, "malformed verification")
		return
	}
	pend, err := h.auth.Complete(env.Identity, p.Signature)
	if err != nil {
		h.log.Info().Str("identity", env.Identity).Err(err).Msg("verification failed")
		h.sendError(sess, ErrCodeNotVerified, "challenge signature rejected")
		sess.Deliver(proto.New(proto.CmdFailedVerification, proto.FailedVerificationPayload{}, proto.Opts{}))
		sess.Close("verification failed")
		return
	}
	h.completeHandshake(sess, pend)
}

// completeHandshake promotes the socket and walks the client through the
// bootstrap sequence: acknowledgement, its own identity, the lobby layout,
// the world catalog and its occupancy, then its home channel.
func (h *Hub) completeHandshake(sess *Session, pend *auth.Pending) {
	sess.Verified = true
	sess.Identity = pend.Identity
	sess.Browser = pend.Browser
	h.registry.RegisterKey(pend.Identity, pend.PublicKey)
	h.registry.AddSocket(pend.Identity, pend.PublicKey, sess.ID)

	to := proto.Opts{To: pend.Identity}
	sess.Deliver(proto.New(proto.CmdSuccess, proto.SuccessPayload{Msg: "verified"}, to))
	sess.Deliver(proto.New(proto.CmdConnected, proto.ConnectedPayload{Msg: welcomeMessage}, to))
	sess.Deliver(proto.New(proto.CmdMyIdentity, proto.MyIdentityPayload{Identity: pend.Identity}, to))
	sess.Deliver(proto.New(proto.CmdLobbyLogic, proto.LobbyLogicPayload{Logic: h.opts.LobbyGrid}, to))
	sess.Deliver(proto.New(proto.CmdAllWorlds, proto.AllWorldsPayload{Worlds: h.opts.Catalog.Names()}, to))
	sess.Deliver(proto.New(proto.CmdAllPrivateWorlds, proto.AllPrivateWorldsPayload{Worlds: h.privateWorlds()}, to))
	sess.Deliver(proto.New(proto.CmdAllBotSizes, proto.AllBotSizesPayload{Bots: h.botSizes()}, to))
	sess.Deliver(proto.New(proto.CmdWorldSize, proto.WorldSizePayload{Worlds: h.worldSizes()}, to))

	home := homeChannelPrefix + pend.Identity
	room, ok := h.rooms[home]
	if !ok {
		room = NewChannel(home, pend.Identity, "", homeHistoryLimit, true)
		h.rooms[home] = room
	} else {
		room.AddMember(pend.Identity)
	}
	h.replayHistory(sess, room)

	h.lobby[pend.Identity] = struct{}{}
	if !pend.Browser {
		h.cli[pend.Identity] = struct{}{}
	}
	h.log.Info().Str("identity", pend.Identity).Str("socket", sess.ID).Msg("socket verified")
}

func (h *Hub) replayHistory(sess *Session, room *Room) {
	for _, entry := range room.History() {
		sess.Deliver(proto.New(proto.CmdChatMessage,
			proto.ChatMessagePayload{Text: entry.Text},
			proto.Opts{To: room.Name, From: entry.Sender}))
	}
}

// --- messaging ---

func (h *Hub) handleChatMessage(sess *Session, env *proto.Envelope) {
	h.routeMessage(sess, env, true)
}

func (h *Hub) handleAudio(sess *Session, env *proto.Envelope) {
	h.routeMessage(sess, env, false)
}

// routeMessage fans a chat or audio envelope to its destination: a channel
// or world by name, an identity or bare hash, or everyone when To is empty.
func (h *Hub) routeMessage(sess *Session, env *proto.Envelope, recordHistory bool) {
	out := forwarded(env, sess.Identity)
	to := env.To
	if room := h.chatRoom(to); room != nil {
		if !room.HasMember(sess.Identity) && !room.HasBot(sess.Identity) && !room.ExternalMessages {
			h.sendError(sess, ErrCodeNotInRoom, "room does not accept outside messages")
			return
		}
		if recordHistory {
			if p, err := proto.Bind[proto.ChatMessagePayload](env); err == nil {
				room.AppendHistory(sess.Identity, p.Text)
			}
		}
		for _, member := range room.Members() {
			if member == sess.Identity {
				continue
			}
			h.SendIdentity(member, out)
		}
		for _, bot := range room.Bots() {
			if bot == sess.Identity {
				continue
			}
			h.SendIdentity(bot, out)
		}
		return
	}
	if strings.HasPrefix(to, "#") {
		h.sendError(sess, ErrCodeRoomNotFound, "no such room "+to)
		return
	}
	if to != "" {
		h.SendIdentity(to, out)
		return
	}
	h.broadcastAll(out, sess.Identity)
}

// chatRoom resolves a message destination to a room. Channels are keyed by
// their '#'-name; worlds answer to their bare catalog name or with the
// prefix attached.
func (h *Hub) chatRoom(name string) *Room {
	if room, ok := h.rooms[name]; ok {
		return room
	}
	if trimmed := strings.TrimPrefix(name, "#"); trimmed != name {
		if room, ok := h.rooms[trimmed]; ok && room.IsWorld {
			return room
		}
	}
	return nil
}

// --- channels ---

func (h *Hub) handleChannelCreate(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.ChannelCreatePayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed channel create")
		return
	}
	if !ValidRoomName(p.Channel) {
		h.sendError(sess, ErrCodeBadRoomName, "channel names start with '#' and carry no spaces")
		return
	}
	if _, exists := h.rooms[p.Channel]; exists {
		h.sendError(sess, ErrCodeRoomExists, "channel "+p.Channel+" already exists")
		return
	}
	limit := p.History
	if limit < 0 {
		limit = 0
	}
	if limit > maxChannelHistory {
		limit = maxChannelHistory
	}
	var hash string
	if p.Password != "" {
		hash, err = auth.HashRoomPassword(p.Password)
		if err != nil {
			h.sendError(sess, ErrCodeBadRequest, "unusable password")
			return
		}
	}
	h.rooms[p.Channel] = NewChannel(p.Channel, sess.Identity, hash, limit, p.ExternalMessages)
	h.log.Info().Str("channel", p.Channel).Str("owner", sess.Identity).Msg("channel created")
	h.sendSuccess(sess, "created "+p.Channel)
}

func (h *Hub) handleChannelJoin(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.ChannelJoinPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed channel join")
		return
	}
	room, ok := h.rooms[p.Channel]
	if !ok || room.IsWorld {
		h.sendError(sess, ErrCodeRoomNotFound, "no such channel "+p.Channel)
		return
	}
	if room.Secret && !auth.CheckRoomPassword(room.PasswordHash, p.Password) {
		h.sendError(sess, ErrCodeWrongPassword, "wrong password for "+p.Channel)
		return
	}
	if !room.AddMember(sess.Identity) {
		h.sendError(sess, ErrCodeAlreadyJoined, "already in "+p.Channel)
		return
	}
	h.sendSuccess(sess, "joined "+p.Channel)
	h.replayHistory(sess, room)
}

func (h *Hub) handleChannelLeave(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.ChannelLeavePayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed channel leave")
		return
	}
	room, ok := h.rooms[p.Channel]
	if !ok || room.IsWorld {
		h.sendError(sess, ErrCodeRoomNotFound, "no such channel "+p.Channel)
		return
	}
	if removed, _ := room.Remove(sess.Identity); !removed {
		h.sendError(sess, ErrCodeNotInRoom, "not in "+p.Channel)
		return
	}
	if room.MemberCount() == 0 {
		delete(h.rooms, p.Channel)
		h.log.Info().Str("channel", p.Channel).Msg("empty channel removed")
	}
	h.sendSuccess(sess, "left "+p.Channel)
}

func (h *Hub) handleRequestAllChannels(sess *Session, env *proto.Envelope) {
	names := make([]string, 0, len(h.rooms))
	for name, room := range h.rooms {
		if room.IsWorld {
			name = "#" + name
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sess.Deliver(proto.New(proto.CmdPrintChannel, proto.PrintChannelPayload{Channel: name}, proto.Opts{To: sess.Identity}))
	}
}

// --- worlds ---

func (h *Hub) handleJoinWorld(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.JoinWorldPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed world join")
		return
	}
	id := sess.Identity

	// Empty name means back to the lobby.
	if p.WorldName == "" {
		if world, ok := h.worldOf[id]; ok {
			h.leaveWorld(id, world)
		}
		h.lobby[id] = struct{}{}
		sess.Deliver(proto.New(proto.CmdLobbyLogic, proto.LobbyLogicPayload{Logic: h.opts.LobbyGrid}, proto.Opts{To: id}))
		return
	}

	room, ok := h.rooms[p.WorldName]
	if !ok || !room.IsWorld {
		h.sendError(sess, ErrCodeRoomNotFound, "no such world "+p.WorldName)
		return
	}
	if room.Private && room.WorldAdmin != id && !h.isCleared(p.WorldName, id) {
		h.sendError(sess, ErrCodeWrongPassword, p.WorldName+" is private")
		return
	}
	if h.worldOf[id] == p.WorldName {
		h.sendError(sess, ErrCodeAlreadyJoined, "already in "+p.WorldName)
		return
	}

	if world, in := h.worldOf[id]; in {
		h.leaveWorld(id, world)
	}
	if _, idle := h.lobby[id]; idle {
		delete(h.lobby, id)
		h.sendLobby(proto.New(proto.CmdDeleteClient, proto.DeleteClientPayload{Identity: id}, proto.Opts{}), id)
	}

	action := proto.ActionJoinedClient
	if p.IsBot {
		room.AddBot(id)
		action = proto.ActionJoinedBot
	} else {
		room.AddMember(id)
	}
	h.worldOf[id] = p.WorldName

	reply := proto.JoinWorldPayload{
		WorldName:   p.WorldName,
		WorldLogic:  room.Grid,
		Coordinates: p.Coordinates,
		IsBot:       p.IsBot,
	}
	sess.Deliver(proto.New(proto.CmdJoinWorld, reply, proto.Opts{To: id}))

	// Interactive newcomers get the current actors and the world's chat
	// history; bots render nothing.
	if !p.IsBot {
		for actor, pos := range room.Positions() {
			sess.Deliver(proto.New(proto.CmdUpdatePosition, proto.UpdatePositionPayload{
				Identity: actor,
				X:        pos.X,
				Y:        pos.Y,
				Skin:     pos.Skin,
			}, proto.Opts{To: id}))
		}
		h.replayHistory(sess, room)
	}

	room.Pause(h.now().Add(h.opts.JoinPause))
	h.broadcastOccupancy(p.WorldName, action)
	h.log.Info().Str("identity", id).Str("world", p.WorldName).Bool("bot", p.IsBot).Msg("joined world")
}

func (h *Hub) isCleared(world, id string) bool {
	_, ok := h.cleared[world][id]
	return ok
}

func (h *Hub) handleTryPassword(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.TryPasswordPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed password attempt")
		return
	}
	room, ok := h.rooms[p.World]
	if !ok || !room.IsWorld {
		h.sendError(sess, ErrCodeRoomNotFound, "no such world "+p.World)
		return
	}
	if room.Private && p.Password != room.WorldPassword {
		sess.Deliver(proto.New(proto.CmdFailPassword, proto.FailPasswordPayload{}, proto.Opts{To: sess.Identity}))
		return
	}
	if room.Private {
		set, ok := h.cleared[p.World]
		if !ok {
			set = make(map[string]struct{})
			h.cleared[p.World] = set
		}
		set[sess.Identity] = struct{}{}
	}
	sess.Deliver(proto.New(proto.CmdSuccessPassword, proto.SuccessPasswordPayload{}, proto.Opts{To: sess.Identity}))
}

func (h *Hub) handleSetAdmin(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.SetAdminPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed admin claim")
		return
	}
	room, ok := h.rooms[p.World]
	if !ok || !room.IsWorld {
		h.sendError(sess, ErrCodeRoomNotFound, "no such world "+p.World)
		return
	}
	if !room.HasMember(sess.Identity) {
		h.sendError(sess, ErrCodeNotInRoom, "join the world before claiming it")
		return
	}
	if room.Private && room.WorldAdmin != sess.Identity {
		h.sendError(sess, ErrCodeBadRequest, p.World+" is already claimed")
		return
	}
	room.Private = true
	room.WorldAdmin = sess.Identity
	room.WorldPassword = p.Password
	// Members hear who claimed the world; the lobby hears the privacy change.
	h.SendRoom(p.World, proto.New(proto.CmdUpdateAdmin, proto.UpdateAdminPayload{Identity: sess.Identity}, proto.Opts{To: p.World}), "")
	h.sendLobby(proto.New(proto.CmdAllPrivateWorlds, proto.AllPrivateWorldsPayload{Worlds: h.privateWorlds()}, proto.Opts{}), "")
	h.log.Info().Str("world", p.World).Str("admin", sess.Identity).Msg("world claimed private")
}

// --- movement and appearance ---

func (h *Hub) handleUpdatePosition(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.UpdatePositionPayload](env)
	if err != nil || p.Identity != sess.Identity {
		return
	}
	// Position updates from identities outside any world are ignored.
	world, ok := h.worldOf[sess.Identity]
	if !ok {
		return
	}
	room := h.rooms[world]
	room.SetPosition(sess.Identity, Position{X: p.X, Y: p.Y, Skin: p.Skin})
	h.ctf.PositionUpdate(world, sess.Identity, p.X, p.Y)
	h.fanWorldUpdate(room, sess.Identity, forwarded(env, sess.Identity))
}

// fanWorldUpdate spreads a movement or appearance change through a world:
// a player's change reaches players and bots, a bot's change reaches only
// the other bots.
func (h *Hub) fanWorldUpdate(room *Room, from string, out *proto.Envelope) {
	if !room.HasBot(from) {
		for _, member := range room.Members() {
			if member == from {
				continue
			}
			h.SendIdentity(member, out)
		}
	}
	for _, bot := range room.Bots() {
		if bot == from {
			continue
		}
		h.SendIdentity(bot, out)
	}
}

func (h *Hub) handleUpdateSkin(sess *Session, env *proto.Envelope) {
	out := forwarded(env, sess.Identity)
	if world, ok := h.worldOf[sess.Identity]; ok {
		p, err := proto.Bind[proto.UpdateSkinPayload](env)
		if err != nil {
			return
		}
		room := h.rooms[world]
		if pos, has := room.Position(sess.Identity); has {
			pos.Skin = p.Skin
			room.SetPosition(sess.Identity, pos)
		}
		h.fanWorldUpdate(room, sess.Identity, out)
		return
	}
	// Lobby occupants only echo to themselves: the client renders its own
	// appearance change and nobody else tracks lobby skins.
	sess.Deliver(out)
}

// --- key lookup ---

func (h *Hub) handleRequestPublicKey(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.RequestPublicKeyPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed key request")
		return
	}
	match, ok := h.registry.PrefixSearch(p.Prefix)
	if !ok {
		h.sendError(sess, ErrCodeRoomNotFound, "no unique identity for prefix")
		return
	}
	key, _ := h.registry.PublicKey(match)
	_, nick, _ := identity.Split(match)
	sess.Deliver(proto.New(proto.CmdGivePublicKey, proto.GivePublicKeyPayload{
		Identity:  match,
		PublicKey: key,
		Nick:      nick,
	}, proto.Opts{To: sess.Identity}))
}

// --- graceful disconnect ---

func (h *Hub) handleDisconnectAttempt(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.DisconnectAttemptPayload](env)
	if err != nil || p.Identity != sess.Identity {
		h.sendError(sess, ErrCodeBadRequest, "malformed disconnect attempt")
		return
	}
	d := h.auth.BeginDisconnect(sess.ID, sess.Identity, p.Explicit, p.Rooms)
	sess.Deliver(proto.New(proto.CmdDisconnectPrompt,
		proto.DisconnectPromptPayload{Challenge: d.Challenge},
		proto.Opts{To: sess.Identity}))
}

func (h *Hub) handleDisconnectCommit(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.DisconnectCommitPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed disconnect commit")
		return
	}
	key, ok := h.registry.PublicKey(sess.Identity)
	if !ok {
		h.sendError(sess, ErrCodeNotVerified, "no live key for identity")
		return
	}
	d, err := h.auth.CompleteDisconnect(sess.ID, key, sess.Browser, p.Signature)
	if err != nil {
		h.sendError(sess, ErrCodeNotVerified, "disconnect signature rejected")
		return
	}
	id := sess.Identity
	if d.Explicit {
		// An explicit disconnect names the rooms to leave while other
		// sockets of the identity may stay connected.
		for _, name := range d.Rooms {
			if h.worldOf[id] == name {
				h.leaveWorld(id, name)
				continue
			}
			if room, ok := h.rooms[name]; ok && !room.IsWorld {
				if removed, _ := room.Remove(id); removed && room.MemberCount() == 0 {
					delete(h.rooms, name)
				}
			}
		}
	}
	h.sendSuccess(sess, "goodbye")
	h.registry.RemoveSocket(id, sess.ID)
	sess.Verified = false
	sess.Identity = ""
	if len(h.registry.SocketsFor(id)) == 0 {
		h.removeIdentity(id)
	}
	if sess.Browser {
		// Browser clients keep the page and socket; the client tears its
		// session state down and returns to the login surface.
		sess.Deliver(proto.New(proto.CmdBrowserDisconnect, proto.BrowserDisconnectPayload{}, proto.Opts{}))
		return
	}
	sess.Close("disconnected")
}

// --- scores ---

func (h *Hub) handleUpdateScore(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.UpdateScorePayload](env)
	if err != nil || p.ID != sess.Identity {
		h.sendError(sess, ErrCodeBadRequest, "malformed score update")
		return
	}
	if !h.scores.Record(p.ID, p.Game, p.Win) {
		h.sendError(sess, ErrCodeBadRequest, "unknown game "+p.Game)
		return
	}
	h.sendSuccess(sess, "score recorded")
}

func (h *Hub) handleRequestLeaderboard(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.RequestLeaderboardPayload](env)
	if err != nil {
		h.sendError(sess, ErrCodeBadRequest, "malformed leaderboard request")
		return
	}
	sess.Deliver(proto.New(proto.CmdRequestLeaderboard, proto.RequestLeaderboardPayload{
		ID:      p.ID,
		Entries: h.scores.Entries(),
	}, proto.Opts{To: sess.Identity}))
}

// --- mini-games ---

func (h *Hub) handleTicTacToe(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.TicTacToePayload](env)
	if err != nil || p.From != sess.Identity {
		return
	}
	h.ttt.Handle(sess.Identity, p, forwarded(env, sess.Identity))
}

func (h *Hub) handleCTF(sess *Session, env *proto.Envelope) {
	p, err := proto.Bind[proto.CTFPayload](env)
	if err != nil {
		return
	}
	if world, ok := h.worldOf[sess.Identity]; !ok || world != p.World {
		h.sendError(sess, ErrCodeNotInRoom, "not in world "+p.World)
		return
	}
	h.ctf.Handle(sess.Identity, p, forwarded(env, sess.Identity))
}
