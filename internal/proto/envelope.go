package proto

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape for every protocol message, in both directions.
// The payload is kept raw so it can be re-verified and re-hashed without a
// round-trip through a typed struct.
type Envelope struct {
	To        string          `json:"to,omitempty"`
	From      string          `json:"from,omitempty"`
	Timestamp string          `json:"timestamp"`
	Command   string          `json:"command"`
	Payload   json.RawMessage `json:"payload"`
	Identity  string          `json:"identity"`
	Hash      string          `json:"hash,omitempty"`
}

// Opts carries the optional envelope fields a sender may set.
type Opts struct {
	To       string
	From     string
	Identity string
}

// Now returns the timestamp format used on the wire. Every hop re-stamps.
func Now() string {
	return time.Now().UTC().Format(time.RFC1123)
}

// ParseTimestamp decodes a wire timestamp.
func ParseTimestamp(ts string) (time.Time, error) {
	return time.Parse(time.RFC1123, ts)
}

// New builds a sealed envelope for the given command and payload.
// It panics if the payload cannot be marshalled, which is a programming
// error for the server's own payload types.
func New(command string, payload any, opts Opts) *Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic("proto: unmarshalable payload for " + command + ": " + err.Error())
	}
	env := &Envelope{
		To:        opts.To,
		From:      opts.From,
		Timestamp: Now(),
		Command:   command,
		Payload:   raw,
		Identity:  opts.Identity,
	}
	Seal(env)
	return env
}

// Decode parses raw bytes into an Envelope and checks its shape: a command
// tag, a payload field, and a registered verifier accepting that payload.
// Malformed input returns ok=false, never an error or a panic.
func Decode(data []byte) (*Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	return &env, Verify(&env)
}

// Verify re-checks an already decoded envelope against the registry.
func Verify(env *Envelope) bool {
	if env.Command == "" || env.Payload == nil {
		return false
	}
	return VerifyPayload(env.Command, env.Payload)
}

// Bind unmarshals an envelope's payload into the given typed struct.
func Bind[T any](env *Envelope) (T, error) {
	var v T
	err := json.Unmarshal(env.Payload, &v)
	return v, err
}
