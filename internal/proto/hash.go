package proto

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
)

// Commands whose payload is never hash-verified: audio carries an opaque
// blob unsuitable for hashing at this layer, requestLeaderboard is a
// non-sensitive read-only request.
var hashExempt = map[string]struct{}{
	CmdAudio:              {},
	CmdRequestLeaderboard: {},
}

// HashExempt reports whether a command skips integrity hashing.
func HashExempt(command string) bool {
	_, ok := hashExempt[command]
	return ok
}

// HashPayload computes the integrity digest of a raw payload: SHA-1 over
// the whitespace-compacted JSON bytes. The payload travels unmodified
// between hops, so compaction is enough to make the digest deterministic.
func HashPayload(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		// Not JSON; hash the bytes as-is so verification still round-trips.
		buf.Reset()
		buf.Write(raw)
	}
	sum := sha1.Sum(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Seal stamps the integrity hash onto an envelope. Exempt commands are
// left without a hash.
func Seal(env *Envelope) {
	if HashExempt(env.Command) {
		env.Hash = ""
		return
	}
	env.Hash = HashPayload(env.Payload)
}

// VerifyHash recomputes the payload digest and compares it to the stamped
// hash. Exempt commands are accepted unconditionally; everything else with
// a missing or mismatched hash fails.
func VerifyHash(env *Envelope) bool {
	if HashExempt(env.Command) {
		return true
	}
	if env.Hash == "" {
		return false
	}
	return HashPayload(env.Payload) == env.Hash
}
