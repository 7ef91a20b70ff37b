package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashRoundTrip(t *testing.T) {
	env := New(CmdChatMessage, ChatMessagePayload{Text: "hello there"}, Opts{Identity: "abc:nick"})

	require.NotEmpty(t, env.Hash)
	assert.True(t, VerifyHash(env))
}

func TestHashDetectsMutation(t *testing.T) {
	env := New(CmdChatMessage, ChatMessagePayload{Text: "hello there"}, Opts{})

	// Flip one character in the payload.
	raw := []byte(env.Payload)
	for i, b := range raw {
		if b == 'h' {
			raw[i] = 'H'
			break
		}
	}
	env.Payload = json.RawMessage(raw)

	assert.False(t, VerifyHash(env))
}

func TestHashMissingFails(t *testing.T) {
	env := New(CmdChatMessage, ChatMessagePayload{Text: "x"}, Opts{})
	env.Hash = ""
	assert.False(t, VerifyHash(env))
}

func TestHashIgnoresWhitespace(t *testing.T) {
	compact := json.RawMessage(`{"text":"hi"}`)
	spaced := json.RawMessage(`{ "text": "hi" }`)
	assert.Equal(t, HashPayload(compact), HashPayload(spaced))
}

func TestExemptCommandsSkipHash(t *testing.T) {
	audio := New(CmdAudio, AudioPayload{Blob: []byte{1, 2, 3}}, Opts{})
	assert.Empty(t, audio.Hash)
	assert.True(t, VerifyHash(audio))

	lb := New(CmdRequestLeaderboard, RequestLeaderboardPayload{ID: "abc:nick"}, Opts{})
	assert.Empty(t, lb.Hash)
	assert.True(t, VerifyHash(lb))
}

func TestDecodeRejectsUnknownCommand(t *testing.T) {
	data := []byte(`{"command":"noSuchCommand","timestamp":"x","identity":"a","payload":{}}`)
	_, ok := Decode(data)
	assert.False(t, ok)
}

func TestDecodeRejectsMissingPayload(t *testing.T) {
	data := []byte(`{"command":"ChatMessage","timestamp":"x","identity":"a"}`)
	_, ok := Decode(data)
	assert.False(t, ok)
}

func TestDecodeRejectsFailingVerifier(t *testing.T) {
	// connectionAttempt requires a public key and a nick.
	data := []byte(`{"command":"connectionAttempt","timestamp":"x","identity":"a","payload":{"nick":"bob"}}`)
	_, ok := Decode(data)
	assert.False(t, ok)
}

func TestDecodeAcceptsWellFormed(t *testing.T) {
	env := New(CmdChannelJoin, ChannelJoinPayload{Channel: "general"}, Opts{Identity: "abc:bob"})
	data, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, ok := Decode(data)
	require.True(t, ok)
	assert.Equal(t, CmdChannelJoin, decoded.Command)

	p, err := Bind[ChannelJoinPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, "general", p.Channel)
}

func TestDecodeGarbage(t *testing.T) {
	_, ok := Decode([]byte("not json at all"))
	assert.False(t, ok)
}

func TestRegisterVerifierDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		RegisterVerifier(CmdChatMessage, shape[ChatMessagePayload](nil))
	})
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := Now()
	parsed, err := ParseTimestamp(ts)
	require.NoError(t, err)
	assert.False(t, parsed.IsZero())
}
