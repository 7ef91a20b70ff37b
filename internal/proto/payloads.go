package proto

// Command tags. The strings are the wire protocol and never change
// independently of the clients.
const (
	CmdError              = "Error"
	CmdInfo               = "Info"
	CmdSuccess            = "Succes"
	CmdConnected          = "Connected"
	CmdChatMessage        = "ChatMessage"
	CmdAudio              = "audio"
	CmdConnectionAttempt  = "connectionAttempt"
	CmdPromptVerification = "promptVerification"
	CmdSubmitVerification = "submitVerification"
	CmdFailedVerification = "failedVerification"
	CmdMyIdentity         = "myHashNick"
	CmdDisconnectAttempt  = "disconnectAttempt"
	CmdDisconnectPrompt   = "disconnectVerification"
	CmdDisconnectCommit   = "disconnectCommit"
	CmdBrowserDisconnect  = "browserDisconnect"
	CmdRequestPublicKey   = "requestPublicKey"
	CmdGivePublicKey      = "givePublicKey"
	CmdChannelCreate      = "ChannelCreate"
	CmdChannelJoin        = "ChannelJoin"
	CmdChannelLeave       = "ChannelLeave"
	CmdRequestAllChannels = "requestAllChannels"
	CmdPrintChannel       = "printChannel"
	CmdJoinWorld          = "joinWorld"
	CmdAllWorlds          = "allWorlds"
	CmdAllPrivateWorlds   = "allPrivateWorlds"
	CmdWorldSize          = "worldSize"
	CmdWorldSizeUpdate    = "worldSizeUpdate"
	CmdAllBotSizes        = "allBotSizes"
	CmdLobbyLogic         = "lobbyLogic"
	CmdTryPassword        = "tryPassword"
	CmdSuccessPassword    = "successPassword"
	CmdFailPassword       = "failPassword"
	CmdSetAdmin           = "setAdmin"
	CmdUpdateAdmin        = "updateAdmin"
	CmdUpdatePosition     = "updatePosition"
	CmdUpdateSkin         = "updateSkin"
	CmdDeleteClient       = "deleteClient"
	CmdUpdateWorldTiles   = "updateWorldTiles"
	CmdUpdateScore        = "updateScore"
	CmdRequestLeaderboard = "requestLeaderboard"
	CmdTicTacToe          = "TicTacToeMsg"
	CmdCTF                = "CTFMsg"
)

// ErrorPayload is a point-to-point failure notification.
type ErrorPayload struct {
	Msg string `json:"msg"`
}

// InfoPayload is a human-readable informational notice.
type InfoPayload struct {
	Msg string `json:"msg"`
}

// SuccessPayload acknowledges a completed request.
type SuccessPayload struct {
	Msg string `json:"msg"`
}

// ConnectedPayload is the welcome acknowledgement after verification.
type ConnectedPayload struct {
	Msg string `json:"msg"`
}

// ChatMessagePayload is a plain chat line.
type ChatMessagePayload struct {
	Text string `json:"text"`
}

// AudioPayload carries an opaque recorded clip. Exempt from hashing.
type AudioPayload struct {
	Blob []byte `json:"blob"`
}

// ConnectionAttemptPayload opens the authentication handshake.
type ConnectionAttemptPayload struct {
	PublicKey string `json:"public_key"`
	Nick      string `json:"nick"`
	Browser   bool   `json:"browser"`
}

// PromptVerificationPayload delivers the single-use challenge to sign.
type PromptVerificationPayload struct {
	Challenge string `json:"challenge"`
}

// SubmitVerificationPayload returns the signed challenge.
type SubmitVerificationPayload struct {
	Signature []byte `json:"signature"`
	Browser   bool   `json:"browser"`
}

// FailedVerificationPayload tells the client to return to the login surface.
type FailedVerificationPayload struct{}

// MyIdentityPayload tells a client its own identity string.
type MyIdentityPayload struct {
	Identity string `json:"identity"`
}

// DisconnectAttemptPayload opens the graceful-disconnect handshake.
type DisconnectAttemptPayload struct {
	Identity string   `json:"identity"`
	Explicit bool     `json:"explicit"`
	Rooms    []string `json:"rooms,omitempty"`
}

// DisconnectPromptPayload delivers the disconnect challenge.
type DisconnectPromptPayload struct {
	Challenge string `json:"challenge"`
}

// DisconnectCommitPayload returns the signed disconnect challenge.
type DisconnectCommitPayload struct {
	Signature []byte `json:"signature"`
}

// BrowserDisconnectPayload tells a browser client to tear down its session
// without closing the page.
type BrowserDisconnectPayload struct{}

// RequestPublicKeyPayload asks for the key of an identity by prefix.
type RequestPublicKeyPayload struct {
	Prefix string `json:"prefix"`
}

// GivePublicKeyPayload answers a public key request.
type GivePublicKeyPayload struct {
	Identity  string `json:"identity"`
	PublicKey string `json:"public_key"`
	Nick      string `json:"nick,omitempty"`
}

// ChannelCreatePayload creates a dynamic chat channel.
type ChannelCreatePayload struct {
	Channel          string `json:"channel"`
	Password         string `json:"password,omitempty"`
	History          int    `json:"history"`
	ExternalMessages bool   `json:"external_messages"`
}

// ChannelJoinPayload joins an existing room.
type ChannelJoinPayload struct {
	Channel  string `json:"channel"`
	Password string `json:"password,omitempty"`
}

// ChannelLeavePayload leaves a room.
type ChannelLeavePayload struct {
	Channel string `json:"channel"`
}

// RequestAllChannelsPayload asks for the room listing.
type RequestAllChannelsPayload struct{}

// PrintChannelPayload is one line of the room listing.
type PrintChannelPayload struct {
	Channel string `json:"channel"`
}

// Coordinates is a spawn position plus appearance.
type Coordinates struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Skin string `json:"skin"`
}

// JoinWorldPayload moves a client between the lobby and worlds. An empty
// WorldName sends the client back to the lobby. Server replies reuse the
// same command with the world grid attached.
type JoinWorldPayload struct {
	WorldName   string       `json:"world_name"`
	WorldLogic  [][]string   `json:"world_logic,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	IsBot       bool         `json:"is_bot,omitempty"`
}

// AllWorldsPayload lists the static world catalog.
type AllWorldsPayload struct {
	Worlds []string `json:"worlds"`
}

// AllPrivateWorldsPayload lists worlds currently claimed private.
type AllPrivateWorldsPayload struct {
	Worlds []string `json:"worlds"`
}

// WorldSizePayload carries per-world occupancy, in catalog order.
type WorldSizePayload struct {
	Worlds []int `json:"worlds"`
}

// WorldSizeUpdatePayload is an occupancy delta for one world.
type WorldSizeUpdatePayload struct {
	World  string `json:"world"`
	Action string `json:"action"`
}

// Occupancy delta actions.
const (
	ActionJoinedClient = "joined_client"
	ActionLeftClient   = "left_client"
	ActionJoinedBot    = "joined_bot"
	ActionLeftBot      = "left_bot"
)

// AllBotSizesPayload carries per-world bot counts, in catalog order.
type AllBotSizesPayload struct {
	Bots []int `json:"bots"`
}

// LobbyLogicPayload is the static lobby layout sent at bootstrap.
type LobbyLogicPayload struct {
	Logic [][]string `json:"logic"`
}

// TryPasswordPayload probes a private world's password before joining.
type TryPasswordPayload struct {
	World    string `json:"world"`
	Password string `json:"password"`
}

// SuccessPasswordPayload confirms a password probe.
type SuccessPasswordPayload struct{}

// FailPasswordPayload rejects a password probe.
type FailPasswordPayload struct{}

// SetAdminPayload claims a world: it becomes private behind a password.
type SetAdminPayload struct {
	World    string `json:"world"`
	Password string `json:"password"`
}

// UpdateAdminPayload announces a world's admin change. An empty identity
// means the world reverted to public.
type UpdateAdminPayload struct {
	Identity string `json:"identity"`
}

// UpdatePositionPayload moves an actor on a world grid.
type UpdatePositionPayload struct {
	Identity  string `json:"identity"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction,omitempty"`
	Skin      string `json:"skin"`
}

// UpdateSkinPayload changes an actor's appearance.
type UpdateSkinPayload struct {
	ID   string `json:"id"`
	Skin string `json:"skin"`
}

// DeleteClientPayload removes an actor from members' rendered world.
type DeleteClientPayload struct {
	Identity string `json:"identity"`
}

// TileUpdate is one grid cell mutation.
type TileUpdate struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Tile string `json:"tile"`
}

// UpdateWorldTilesPayload is a batch of grid deltas from a world loop.
type UpdateWorldTilesPayload struct {
	Tiles []TileUpdate `json:"tiles"`
}

// UpdateScorePayload reports a mini-game result.
type UpdateScorePayload struct {
	ID   string `json:"id"`
	Game string `json:"game"`
	Win  bool   `json:"win"`
}

// LeaderboardEntry is one identity's scores: RPS, TTT, CTF.
type LeaderboardEntry struct {
	Identity string `json:"identity"`
	Scores   [3]int `json:"scores"`
}

// RequestLeaderboardPayload asks for the score table; the reply reuses the
// command with Entries filled in. Exempt from hashing.
type RequestLeaderboardPayload struct {
	ID      string             `json:"id"`
	Entries []LeaderboardEntry `json:"entries,omitempty"`
}

// TicTacToePayload is the tic-tac-toe matchmaking relay message.
type TicTacToePayload struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to,omitempty"`
	Pos  string `json:"pos,omitempty"`
}

// CellRef addresses one grid cell in a CTF round.
type CellRef struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// CTFPayload is the capture-the-flag relay message for one world.
type CTFPayload struct {
	Type  string   `json:"type"`
	World string   `json:"world"`
	Text  string   `json:"text,omitempty"`
	Pos   *CellRef `json:"pos,omitempty"`
}

func init() {
	RegisterVerifier(CmdError, shape(func(p ErrorPayload) bool { return p.Msg != "" }))
	RegisterVerifier(CmdInfo, shape(func(p InfoPayload) bool { return p.Msg != "" }))
	RegisterVerifier(CmdSuccess, shape(func(p SuccessPayload) bool { return p.Msg != "" }))
	RegisterVerifier(CmdConnected, shape(func(p ConnectedPayload) bool { return p.Msg != "" }))
	RegisterVerifier(CmdChatMessage, shape[ChatMessagePayload](nil))
	RegisterVerifier(CmdAudio, shape[AudioPayload](nil))
	RegisterVerifier(CmdConnectionAttempt, shape(func(p ConnectionAttemptPayload) bool {
		return p.PublicKey != "" && p.Nick != ""
	}))
	RegisterVerifier(CmdPromptVerification, shape(func(p PromptVerificationPayload) bool { return p.Challenge != "" }))
	RegisterVerifier(CmdSubmitVerification, shape(func(p SubmitVerificationPayload) bool { return len(p.Signature) > 0 }))
	RegisterVerifier(CmdFailedVerification, shape[FailedVerificationPayload](nil))
	RegisterVerifier(CmdMyIdentity, shape(func(p MyIdentityPayload) bool { return p.Identity != "" }))
	RegisterVerifier(CmdDisconnectAttempt, shape(func(p DisconnectAttemptPayload) bool { return p.Identity != "" }))
	RegisterVerifier(CmdDisconnectPrompt, shape(func(p DisconnectPromptPayload) bool { return p.Challenge != "" }))
	RegisterVerifier(CmdDisconnectCommit, shape(func(p DisconnectCommitPayload) bool { return len(p.Signature) > 0 }))
	RegisterVerifier(CmdBrowserDisconnect, shape[BrowserDisconnectPayload](nil))
	RegisterVerifier(CmdRequestPublicKey, shape(func(p RequestPublicKeyPayload) bool { return p.Prefix != "" }))
	RegisterVerifier(CmdGivePublicKey, shape(func(p GivePublicKeyPayload) bool {
		return p.Identity != "" && p.PublicKey != ""
	}))
	RegisterVerifier(CmdChannelCreate, shape(func(p ChannelCreatePayload) bool { return p.Channel != "" }))
	RegisterVerifier(CmdChannelJoin, shape(func(p ChannelJoinPayload) bool { return p.Channel != "" }))
	RegisterVerifier(CmdChannelLeave, shape(func(p ChannelLeavePayload) bool { return p.Channel != "" }))
	RegisterVerifier(CmdRequestAllChannels, shape[RequestAllChannelsPayload](nil))
	RegisterVerifier(CmdPrintChannel, shape(func(p PrintChannelPayload) bool { return p.Channel != "" }))
	RegisterVerifier(CmdJoinWorld, shape[JoinWorldPayload](nil))
	RegisterVerifier(CmdAllWorlds, shape[AllWorldsPayload](nil))
	RegisterVerifier(CmdAllPrivateWorlds, shape[AllPrivateWorldsPayload](nil))
	RegisterVerifier(CmdWorldSize, shape[WorldSizePayload](nil))
	RegisterVerifier(CmdWorldSizeUpdate, shape(func(p WorldSizeUpdatePayload) bool {
		return p.World != "" && p.Action != ""
	}))
	RegisterVerifier(CmdAllBotSizes, shape[AllBotSizesPayload](nil))
	RegisterVerifier(CmdLobbyLogic, shape[LobbyLogicPayload](nil))
	RegisterVerifier(CmdTryPassword, shape(func(p TryPasswordPayload) bool { return p.World != "" }))
	RegisterVerifier(CmdSuccessPassword, shape[SuccessPasswordPayload](nil))
	RegisterVerifier(CmdFailPassword, shape[FailPasswordPayload](nil))
	RegisterVerifier(CmdSetAdmin, shape(func(p SetAdminPayload) bool { return p.World != "" && p.Password != "" }))
	RegisterVerifier(CmdUpdateAdmin, shape[UpdateAdminPayload](nil))
	RegisterVerifier(CmdUpdatePosition, shape(func(p UpdatePositionPayload) bool { return p.Identity != "" }))
	RegisterVerifier(CmdUpdateSkin, shape(func(p UpdateSkinPayload) bool { return p.Skin != "" }))
	RegisterVerifier(CmdDeleteClient, shape(func(p DeleteClientPayload) bool { return p.Identity != "" }))
	RegisterVerifier(CmdUpdateWorldTiles, shape(func(p UpdateWorldTilesPayload) bool { return len(p.Tiles) > 0 }))
	RegisterVerifier(CmdUpdateScore, shape(func(p UpdateScorePayload) bool { return p.ID != "" && p.Game != "" }))
	RegisterVerifier(CmdRequestLeaderboard, shape(func(p RequestLeaderboardPayload) bool { return p.ID != "" }))
	RegisterVerifier(CmdTicTacToe, shape(func(p TicTacToePayload) bool { return p.Type != "" && p.From != "" }))
	RegisterVerifier(CmdCTF, shape(func(p CTFPayload) bool { return p.Type != "" && p.World != "" }))
}
