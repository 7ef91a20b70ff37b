package core

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bramvdv/tileverse-server/internal/identity"
	"github.com/bramvdv/tileverse-server/internal/proto"
)

var testKey = func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(cryptorand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
}()

var bootstrapSequence = []string{
	proto.CmdSuccess,
	proto.CmdConnected,
	proto.CmdMyIdentity,
	proto.CmdLobbyLogic,
	proto.CmdAllWorlds,
	proto.CmdAllPrivateWorlds,
	proto.CmdAllBotSizes,
	proto.CmdWorldSize,
}

// newTestHub builds a hub whose handlers the test drives directly; the
// loop goroutine never runs, so background tasks are stopped up front.
func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger := zerolog.Nop()
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	lobby, err := LoadLobbyLayout("")
	require.NoError(t, err)
	h := NewHub(Options{
		Catalog:      cat,
		LobbyGrid:    lobby,
		HistoryLimit: 5,
		StaleWindow:  5 * time.Minute,
		ChallengeTTL: 2 * time.Minute,
		JoinPause:    time.Second,
		Logger:       &logger,
	})
	h.sched.StopAll()
	return h
}

func nextEnv(t *testing.T, sess *Session) *proto.Envelope {
	t.Helper()
	select {
	case env := <-sess.Out:
		return env
	default:
		t.Fatal("expected a queued envelope")
		return nil
	}
}

func nextEnvOrNil(sess *Session) *proto.Envelope {
	select {
	case env := <-sess.Out:
		return env
	default:
		return nil
	}
}

func drain(sess *Session) {
	for {
		select {
		case <-sess.Out:
		default:
			return
		}
	}
}

func attach(h *Hub, socketID string) *Session {
	sess := NewSession(socketID, nil)
	h.sessions[sess.ID] = sess
	return sess
}

// connect runs the full handshake for a headless client and drains the
// bootstrap sequence.
func connect(t *testing.T, h *Hub, nick string) (*Session, string) {
	t.Helper()
	sess := attach(h, "sock-"+nick)
	pub := identity.EncodeHeadlessKey(&testKey.PublicKey)

	h.handleInbound(sess, proto.New(proto.CmdConnectionAttempt,
		proto.ConnectionAttemptPayload{PublicKey: pub, Nick: nick}, proto.Opts{}))
	prompt := nextEnv(t, sess)
	require.Equal(t, proto.CmdPromptVerification, prompt.Command)
	pp, err := proto.Bind[proto.PromptVerificationPayload](prompt)
	require.NoError(t, err)

	sig, err := identity.SignHeadless(testKey, pp.Challenge)
	require.NoError(t, err)
	id := identity.FromKey(pub, nick)
	h.handleInbound(sess, proto.New(proto.CmdSubmitVerification,
		proto.SubmitVerificationPayload{Signature: sig}, proto.Opts{Identity: id}))

	for _, cmd := range bootstrapSequence {
		env := nextEnv(t, sess)
		require.Equal(t, cmd, env.Command, "bootstrap sequence out of order")
	}
	return sess, id
}

func TestDispatcherTable(t *testing.T) {
	h := newTestHub(t)
	for _, cmd := range []string{
		proto.CmdConnectionAttempt,
		proto.CmdChatMessage,
		proto.CmdJoinWorld,
		proto.CmdUpdatePosition,
		proto.CmdTicTacToe,
		proto.CmdCTF,
	} {
		assert.True(t, h.dispatcher.Registered(cmd), cmd)
	}
	assert.Panics(t, func() {
		h.dispatcher.Register(proto.CmdChatMessage, func(*Session, *proto.Envelope) {})
	})
}

func TestHandshakeBootstrapSequence(t *testing.T) {
	h := newTestHub(t)
	sess, id := connect(t, h, "alice")
	assert.True(t, sess.Verified)
	assert.Equal(t, id, sess.Identity)
	assert.True(t, h.registry.KeyRegistered(id))
	_, inLobby := h.lobby[id]
	assert.True(t, inLobby)
	// Home channel exists with the newcomer as its owner-member.
	home, ok := h.rooms[homeChannelPrefix+id]
	require.True(t, ok)
	assert.True(t, home.HasMember(id))
}

func TestHandshakeRejectsLiveIdentity(t *testing.T) {
	h := newTestHub(t)
	_, _ = connect(t, h, "alice")

	intruder := attach(h, "sock-intruder")
	pub := identity.EncodeHeadlessKey(&testKey.PublicKey)
	h.handleInbound(intruder, proto.New(proto.CmdConnectionAttempt,
		proto.ConnectionAttemptPayload{PublicKey: pub, Nick: "alice"}, proto.Opts{}))
	env := nextEnv(t, intruder)
	require.Equal(t, proto.CmdError, env.Command)
	p, err := proto.Bind[proto.ErrorPayload](env)
	require.NoError(t, err)
	assert.Contains(t, p.Msg, ErrCodeIdentityInUse)
}

func TestHandshakeBadSignatureIsTerminal(t *testing.T) {
	h := newTestHub(t)
	sess := attach(h, "sock-mallory")
	pub := identity.EncodeHeadlessKey(&testKey.PublicKey)
	h.handleInbound(sess, proto.New(proto.CmdConnectionAttempt,
		proto.ConnectionAttemptPayload{PublicKey: pub, Nick: "mallory"}, proto.Opts{}))
	require.Equal(t, proto.CmdPromptVerification, nextEnv(t, sess).Command)

	id := identity.FromKey(pub, "mallory")
	h.handleInbound(sess, proto.New(proto.CmdSubmitVerification,
		proto.SubmitVerificationPayload{Signature: []byte("garbage")}, proto.Opts{Identity: id}))
	assert.Equal(t, proto.CmdError, nextEnv(t, sess).Command)
	assert.Equal(t, proto.CmdFailedVerification, nextEnv(t, sess).Command)
	assert.False(t, sess.Verified)

	// The challenge was consumed: a correct signature now is too late.
	sig, err := identity.SignHeadless(testKey, "whatever")
	require.NoError(t, err)
	h.handleInbound(sess, proto.New(proto.CmdSubmitVerification,
		proto.SubmitVerificationPayload{Signature: sig}, proto.Opts{Identity: id}))
	assert.Equal(t, proto.CmdError, nextEnv(t, sess).Command)
	assert.Equal(t, proto.CmdFailedVerification, nextEnv(t, sess).Command)
}

func TestStaleConnectionAttemptClosesSocket(t *testing.T) {
	h := newTestHub(t)
	closed := false
	sess := NewSession("sock-stale", func(string) { closed = true })
	h.sessions[sess.ID] = sess

	pub := identity.EncodeHeadlessKey(&testKey.PublicKey)
	env := proto.New(proto.CmdConnectionAttempt,
		proto.ConnectionAttemptPayload{PublicKey: pub, Nick: "laggard"}, proto.Opts{})
	env.Timestamp = time.Now().Add(-301 * time.Second).UTC().Format(time.RFC1123)
	h.handleInbound(sess, env)

	got := nextEnv(t, sess)
	require.Equal(t, proto.CmdError, got.Command)
	p, err := proto.Bind[proto.ErrorPayload](got)
	require.NoError(t, err)
	assert.Contains(t, p.Msg, ErrCodeStaleAttempt)
	assert.True(t, closed, "stale attempt must tear the connection down")
}

func TestUnverifiedSocketCommandsDropped(t *testing.T) {
	h := newTestHub(t)
	sess := attach(h, "sock-anon")
	h.handleInbound(sess, proto.New(proto.CmdChatMessage,
		proto.ChatMessagePayload{Text: "hi"}, proto.Opts{}))
	select {
	case env := <-sess.Out:
		t.Fatalf("expected drop, got %s", env.Command)
	default:
	}
}

func TestTamperedHashDropped(t *testing.T) {
	h := newTestHub(t)
	sess, id := connect(t, h, "alice")
	peer, _ := connect(t, h, "bob")

	env := proto.New(proto.CmdChatMessage, proto.ChatMessagePayload{Text: "hi"}, proto.Opts{Identity: id})
	env.Hash = "deadbeef"
	h.handleInbound(sess, env)
	select {
	case got := <-peer.Out:
		t.Fatalf("expected drop, got %s", got.Command)
	default:
	}
}

func TestSecretChannelAdmission(t *testing.T) {
	h := newTestHub(t)
	owner, ownerID := connect(t, h, "alice")
	guest, _ := connect(t, h, "bob")

	h.handleInbound(owner, proto.New(proto.CmdChannelCreate, proto.ChannelCreatePayload{
		Channel:  "#cave",
		Password: "swordfish",
		History:  3,
	}, proto.Opts{Identity: ownerID}))
	require.Equal(t, proto.CmdSuccess, nextEnv(t, owner).Command)

	h.handleInbound(guest, proto.New(proto.CmdChannelJoin, proto.ChannelJoinPayload{
		Channel:  "#cave",
		Password: "mackerel",
	}, proto.Opts{}))
	env := nextEnv(t, guest)
	require.Equal(t, proto.CmdError, env.Command)
	p, err := proto.Bind[proto.ErrorPayload](env)
	require.NoError(t, err)
	assert.Contains(t, p.Msg, ErrCodeWrongPassword)

	h.handleInbound(guest, proto.New(proto.CmdChannelJoin, proto.ChannelJoinPayload{
		Channel:  "#cave",
		Password: "swordfish",
	}, proto.Opts{}))
	assert.Equal(t, proto.CmdSuccess, nextEnv(t, guest).Command)
	assert.True(t, h.rooms["#cave"].HasMember(guest.Identity))
}

func TestChannelHistoryRingAndReplay(t *testing.T) {
	h := newTestHub(t)
	owner, ownerID := connect(t, h, "alice")

	h.handleInbound(owner, proto.New(proto.CmdChannelCreate, proto.ChannelCreatePayload{
		Channel: "#log",
		History: 3,
	}, proto.Opts{Identity: ownerID}))
	require.Equal(t, proto.CmdSuccess, nextEnv(t, owner).Command)

	for _, text := range []string{"one", "two", "three", "four", "five"} {
		h.handleInbound(owner, proto.New(proto.CmdChatMessage,
			proto.ChatMessagePayload{Text: text}, proto.Opts{To: "#log"}))
	}

	guest, _ := connect(t, h, "bob")
	h.handleInbound(guest, proto.New(proto.CmdChannelJoin,
		proto.ChannelJoinPayload{Channel: "#log"}, proto.Opts{}))
	require.Equal(t, proto.CmdSuccess, nextEnv(t, guest).Command)

	var got []string
	for i := 0; i < 3; i++ {
		env := nextEnv(t, guest)
		require.Equal(t, proto.CmdChatMessage, env.Command)
		assert.Equal(t, ownerID, env.From)
		p, err := proto.Bind[proto.ChatMessagePayload](env)
		require.NoError(t, err)
		got = append(got, p.Text)
	}
	assert.Equal(t, []string{"three", "four", "five"}, got)
}

func TestBadRoomNameRejected(t *testing.T) {
	h := newTestHub(t)
	sess, _ := connect(t, h, "alice")
	for _, name := range []string{"cave", "#my cave", "##cave"} {
		h.handleInbound(sess, proto.New(proto.CmdChannelCreate,
			proto.ChannelCreatePayload{Channel: name}, proto.Opts{}))
		env := nextEnv(t, sess)
		require.Equal(t, proto.CmdError, env.Command, name)
	}
}

func TestJoinWorldFlow(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	bob, _ := connect(t, h, "bob")

	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "GrassWorld"}, proto.Opts{}))
	reply := nextEnv(t, alice)
	require.Equal(t, proto.CmdJoinWorld, reply.Command)
	p, err := proto.Bind[proto.JoinWorldPayload](reply)
	require.NoError(t, err)
	assert.Equal(t, "GrassWorld", p.WorldName)
	assert.NotEmpty(t, p.WorldLogic)

	// Lobby peers see the departure, then the occupancy delta; clients
	// inside worlds track neither.
	gone := nextEnv(t, bob)
	require.Equal(t, proto.CmdDeleteClient, gone.Command)
	size := nextEnv(t, bob)
	require.Equal(t, proto.CmdWorldSizeUpdate, size.Command)
	sp, err := proto.Bind[proto.WorldSizeUpdatePayload](size)
	require.NoError(t, err)
	assert.Equal(t, proto.ActionJoinedClient, sp.Action)
	assert.Equal(t, "GrassWorld", sp.World)
	select {
	case env := <-alice.Out:
		t.Fatalf("world member should not get occupancy deltas, got %s", env.Command)
	default:
	}

	assert.Equal(t, "GrassWorld", h.worldOf[aliceID])
	_, inLobby := h.lobby[aliceID]
	assert.False(t, inLobby)
	assert.True(t, h.rooms["GrassWorld"].Paused(h.now()))
}

func TestJoinWorldReplaysPositionsAndIsolatesBots(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "IceWorld"}, proto.Opts{}))
	drain(alice)

	h.handleInbound(alice, proto.New(proto.CmdUpdatePosition, proto.UpdatePositionPayload{
		Identity: aliceID, X: 4, Y: 7, Skin: "fox",
	}, proto.Opts{}))

	bot, botID := connect(t, h, "roomba")
	h.handleInbound(bot, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "IceWorld", IsBot: true}, proto.Opts{}))
	reply := nextEnv(t, bot)
	require.Equal(t, proto.CmdJoinWorld, reply.Command)
	// Bots get the grid but no actor replay.
	for {
		select {
		case env := <-bot.Out:
			require.NotEqual(t, proto.CmdUpdatePosition, env.Command)
			continue
		default:
		}
		break
	}
	assert.True(t, h.rooms["IceWorld"].HasBot(botID))

	bob, _ := connect(t, h, "bob")
	drain(alice)
	h.handleInbound(bob, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "IceWorld"}, proto.Opts{}))
	require.Equal(t, proto.CmdJoinWorld, nextEnv(t, bob).Command)
	pos := nextEnv(t, bob)
	require.Equal(t, proto.CmdUpdatePosition, pos.Command)
	pp, err := proto.Bind[proto.UpdatePositionPayload](pos)
	require.NoError(t, err)
	assert.Equal(t, aliceID, pp.Identity)
	assert.Equal(t, 4, pp.X)
	assert.Equal(t, 7, pp.Y)

	// A player's movement reaches players and bots alike.
	drain(alice)
	drain(bot)
	h.handleInbound(bob, proto.New(proto.CmdUpdatePosition, proto.UpdatePositionPayload{
		Identity: bob.Identity, X: 1, Y: 1, Skin: "owl",
	}, proto.Opts{}))
	assert.Equal(t, proto.CmdUpdatePosition, nextEnv(t, alice).Command)
	assert.Equal(t, proto.CmdUpdatePosition, nextEnv(t, bot).Command)

	// A bot's movement reaches only other bots.
	drain(alice)
	drain(bob)
	h.handleInbound(bot, proto.New(proto.CmdUpdatePosition, proto.UpdatePositionPayload{
		Identity: botID, X: 2, Y: 2, Skin: "vacuum",
	}, proto.Opts{}))
	select {
	case env := <-alice.Out:
		t.Fatalf("player should not see bot movement, got %s", env.Command)
	default:
	}
	select {
	case env := <-bob.Out:
		t.Fatalf("player should not see bot movement, got %s", env.Command)
	default:
	}
}

func TestWorldChatReachesMembersAndHistory(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	bob, _ := connect(t, h, "bob")
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "GrassWorld"}, proto.Opts{}))
	h.handleInbound(bob, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "GrassWorld"}, proto.Opts{}))
	drain(alice)
	drain(bob)

	h.handleInbound(alice, proto.New(proto.CmdChatMessage,
		proto.ChatMessagePayload{Text: "ahoy"}, proto.Opts{To: "GrassWorld"}))
	env := nextEnv(t, bob)
	require.Equal(t, proto.CmdChatMessage, env.Command)
	assert.Equal(t, aliceID, env.From)

	// The prefixed form reaches the same room.
	h.handleInbound(alice, proto.New(proto.CmdChatMessage,
		proto.ChatMessagePayload{Text: "again"}, proto.Opts{To: "#GrassWorld"}))
	require.Equal(t, proto.CmdChatMessage, nextEnv(t, bob).Command)
	require.Len(t, h.rooms["GrassWorld"].History(), 2)

	// Non-members cannot chat into the world.
	carol, _ := connect(t, h, "carol")
	h.handleInbound(carol, proto.New(proto.CmdChatMessage,
		proto.ChatMessagePayload{Text: "psst"}, proto.Opts{To: "GrassWorld"}))
	require.Equal(t, proto.CmdError, nextEnv(t, carol).Command)

	// A later joiner replays the world's history.
	h.handleInbound(carol, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "GrassWorld"}, proto.Opts{}))
	require.Equal(t, proto.CmdJoinWorld, nextEnv(t, carol).Command)
	var texts []string
	for i := 0; i < 2; i++ {
		env := nextEnv(t, carol)
		require.Equal(t, proto.CmdChatMessage, env.Command)
		p, err := proto.Bind[proto.ChatMessagePayload](env)
		require.NoError(t, err)
		texts = append(texts, p.Text)
	}
	assert.Equal(t, []string{"ahoy", "again"}, texts)
}

func TestRequestAllChannelsListsWorlds(t *testing.T) {
	h := newTestHub(t)
	sess, id := connect(t, h, "alice")

	h.handleInbound(sess, proto.New(proto.CmdRequestAllChannels,
		proto.RequestAllChannelsPayload{}, proto.Opts{}))
	var names []string
	for {
		env := nextEnvOrNil(sess)
		if env == nil {
			break
		}
		require.Equal(t, proto.CmdPrintChannel, env.Command)
		p, err := proto.Bind[proto.PrintChannelPayload](env)
		require.NoError(t, err)
		names = append(names, p.Channel)
	}
	assert.Contains(t, names, "#GrassWorld")
	assert.Contains(t, names, homeChannelPrefix+id)
}

func TestAdminBroadcastScoping(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	eve, _ := connect(t, h, "eve")
	bob, _ := connect(t, h, "bob")
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "LavaWorld"}, proto.Opts{}))
	h.handleInbound(eve, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "LavaWorld"}, proto.Opts{}))
	drain(alice)
	drain(eve)
	drain(bob)

	h.handleInbound(alice, proto.New(proto.CmdSetAdmin, proto.SetAdminPayload{
		World: "LavaWorld", Password: "swordfish",
	}, proto.Opts{}))

	// Members hear the admin change, the lobby hears the privacy change,
	// and neither hears the other.
	env := nextEnv(t, eve)
	require.Equal(t, proto.CmdUpdateAdmin, env.Command)
	up, err := proto.Bind[proto.UpdateAdminPayload](env)
	require.NoError(t, err)
	assert.Equal(t, aliceID, up.Identity)
	assert.Nil(t, nextEnvOrNil(eve))

	env = nextEnv(t, bob)
	require.Equal(t, proto.CmdAllPrivateWorlds, env.Command)
	pw, err := proto.Bind[proto.AllPrivateWorldsPayload](env)
	require.NoError(t, err)
	assert.Equal(t, []string{"LavaWorld"}, pw.Worlds)
	assert.Nil(t, nextEnvOrNil(bob))
}

func TestLobbyPositionUpdateIgnored(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")

	h.handleInbound(alice, proto.New(proto.CmdUpdatePosition, proto.UpdatePositionPayload{
		Identity: aliceID, X: 1, Y: 1, Skin: "fox",
	}, proto.Opts{}))
	if env := nextEnvOrNil(alice); env != nil {
		t.Fatalf("lobby position update should be dropped silently, got %s", env.Command)
	}
}

func TestSendIdentityFansOutToAllSockets(t *testing.T) {
	h := newTestHub(t)
	first, id := connect(t, h, "alice")

	// A second device authenticated as the same identity.
	second := attach(h, "sock-alice-2")
	second.Verified = true
	second.Identity = id
	pub := identity.EncodeHeadlessKey(&testKey.PublicKey)
	h.registry.AddSocket(id, pub, second.ID)

	h.SendIdentity(id, proto.New(proto.CmdChatMessage,
		proto.ChatMessagePayload{Text: "ping"}, proto.Opts{To: id}))
	require.Equal(t, proto.CmdChatMessage, nextEnv(t, first).Command)
	require.Equal(t, proto.CmdChatMessage, nextEnv(t, second).Command)
}

func TestPrivateWorldAdmissionAndRevert(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "LavaWorld"}, proto.Opts{}))
	drain(alice)

	h.handleInbound(alice, proto.New(proto.CmdSetAdmin, proto.SetAdminPayload{
		World: "LavaWorld", Password: "swordfish",
	}, proto.Opts{}))
	room := h.rooms["LavaWorld"]
	assert.True(t, room.Private)
	assert.Equal(t, aliceID, room.WorldAdmin)

	bob, _ := connect(t, h, "bob")
	drain(bob)
	h.handleInbound(bob, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "LavaWorld"}, proto.Opts{}))
	env := nextEnv(t, bob)
	require.Equal(t, proto.CmdError, env.Command)

	h.handleInbound(bob, proto.New(proto.CmdTryPassword, proto.TryPasswordPayload{
		World: "LavaWorld", Password: "mackerel",
	}, proto.Opts{}))
	assert.Equal(t, proto.CmdFailPassword, nextEnv(t, bob).Command)

	h.handleInbound(bob, proto.New(proto.CmdTryPassword, proto.TryPasswordPayload{
		World: "LavaWorld", Password: "swordfish",
	}, proto.Opts{}))
	assert.Equal(t, proto.CmdSuccessPassword, nextEnv(t, bob).Command)

	h.handleInbound(bob, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "LavaWorld"}, proto.Opts{}))
	assert.Equal(t, proto.CmdJoinWorld, nextEnv(t, bob).Command)

	// The admin leaving reopens the world.
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: ""}, proto.Opts{}))
	assert.False(t, room.Private)
	assert.Empty(t, room.WorldAdmin)

	drain(bob)
	carol, _ := connect(t, h, "carol")
	drain(carol)
	h.handleInbound(carol, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "LavaWorld"}, proto.Opts{}))
	assert.Equal(t, proto.CmdJoinWorld, nextEnv(t, carol).Command)
}

func TestUpdateSkinLobbySelfEcho(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	bob, _ := connect(t, h, "bob")

	h.handleInbound(alice, proto.New(proto.CmdUpdateSkin,
		proto.UpdateSkinPayload{ID: aliceID, Skin: "fox"}, proto.Opts{}))
	env := nextEnv(t, alice)
	require.Equal(t, proto.CmdUpdateSkin, env.Command)
	select {
	case got := <-bob.Out:
		t.Fatalf("lobby skin change should not fan out, got %s", got.Command)
	default:
	}
}

func TestDepartureNoticeReachesHeadlessClients(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	bob, _ := connect(t, h, "bob")
	drain(bob)

	h.dropSocket(alice.ID)
	// Bob saw alice leave the lobby, then the text notice.
	require.Equal(t, proto.CmdDeleteClient, nextEnv(t, bob).Command)
	notice := nextEnv(t, bob)
	require.Equal(t, proto.CmdInfo, notice.Command)
	p, err := proto.Bind[proto.InfoPayload](notice)
	require.NoError(t, err)
	assert.Contains(t, p.Msg, aliceID)
}

func TestGracefulDisconnectFreesIdentity(t *testing.T) {
	h := newTestHub(t)
	sess, id := connect(t, h, "alice")

	h.handleInbound(sess, proto.New(proto.CmdDisconnectAttempt, proto.DisconnectAttemptPayload{
		Identity: id, Explicit: true,
	}, proto.Opts{Identity: id}))
	prompt := nextEnv(t, sess)
	require.Equal(t, proto.CmdDisconnectPrompt, prompt.Command)
	pp, err := proto.Bind[proto.DisconnectPromptPayload](prompt)
	require.NoError(t, err)

	sig, err := identity.SignHeadless(testKey, pp.Challenge)
	require.NoError(t, err)
	h.handleInbound(sess, proto.New(proto.CmdDisconnectCommit,
		proto.DisconnectCommitPayload{Signature: sig}, proto.Opts{Identity: id}))
	require.Equal(t, proto.CmdSuccess, nextEnv(t, sess).Command)

	assert.False(t, sess.Verified)
	assert.False(t, h.registry.KeyRegistered(id))

	// The identity string is free again for a fresh handshake.
	_, again := connect(t, h, "alice")
	assert.Equal(t, id, again)
}

func TestAbruptDropRunsDepartureCascade(t *testing.T) {
	h := newTestHub(t)
	alice, aliceID := connect(t, h, "alice")
	bob, _ := connect(t, h, "bob")
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "GrassWorld"}, proto.Opts{}))
	h.handleInbound(bob, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "GrassWorld"}, proto.Opts{}))
	drain(alice)
	drain(bob)

	h.dropSocket(alice.ID)
	assert.False(t, h.registry.KeyRegistered(aliceID))
	assert.False(t, h.rooms["GrassWorld"].HasMember(aliceID))

	env := nextEnv(t, bob)
	require.Equal(t, proto.CmdDeleteClient, env.Command)
	p, err := proto.Bind[proto.DeleteClientPayload](env)
	require.NoError(t, err)
	assert.Equal(t, aliceID, p.Identity)
}

func TestEmptyMazeWorldRegenerates(t *testing.T) {
	h := newTestHub(t)
	room := h.rooms["PsychedelicWorld"]
	before := room.Grid

	alice, _ := connect(t, h, "alice")
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: "PsychedelicWorld"}, proto.Opts{}))
	drain(alice)
	h.handleInbound(alice, proto.New(proto.CmdJoinWorld,
		proto.JoinWorldPayload{WorldName: ""}, proto.Opts{}))

	// Same backing room, fresh grid allocation.
	assert.NotSame(t, &before[0], &room.Grid[0])
}

func TestScoreUpdatesAndLeaderboard(t *testing.T) {
	h := newTestHub(t)
	sess, id := connect(t, h, "alice")

	h.handleInbound(sess, proto.New(proto.CmdUpdateScore,
		proto.UpdateScorePayload{ID: id, Game: "ttt", Win: true}, proto.Opts{}))
	require.Equal(t, proto.CmdSuccess, nextEnv(t, sess).Command)
	h.handleInbound(sess, proto.New(proto.CmdUpdateScore,
		proto.UpdateScorePayload{ID: id, Game: "ttt", Win: false}, proto.Opts{}))
	require.Equal(t, proto.CmdSuccess, nextEnv(t, sess).Command)

	h.handleInbound(sess, proto.New(proto.CmdRequestLeaderboard,
		proto.RequestLeaderboardPayload{ID: id}, proto.Opts{}))
	env := nextEnv(t, sess)
	require.Equal(t, proto.CmdRequestLeaderboard, env.Command)
	p, err := proto.Bind[proto.RequestLeaderboardPayload](env)
	require.NoError(t, err)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, [3]int{0, 2, 0}, p.Entries[0].Scores)
}

func TestLeaderboardSnapshotThroughLoop(t *testing.T) {
	logger := zerolog.Nop()
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	lobby, err := LoadLobbyLayout("")
	require.NoError(t, err)
	h := NewHub(Options{
		Catalog:      cat,
		LobbyGrid:    lobby,
		HistoryLimit: 5,
		StaleWindow:  5 * time.Minute,
		ChallengeTTL: 2 * time.Minute,
		JoinPause:    time.Second,
		Logger:       &logger,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	entries, err := h.LeaderboardSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
