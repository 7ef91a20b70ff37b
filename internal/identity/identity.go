// Package identity maps public keys to durable actor identifiers and
// tracks which sockets are live for each of them.
package identity

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Derive computes the hash part of an identity string from a public key.
func Derive(publicKey string) string {
	sum := sha1.Sum([]byte(publicKey))
	return hex.EncodeToString(sum[:])
}

// Combine builds the identity string used as the map key everywhere above
// the socket layer.
func Combine(hash, nick string) string {
	return hash + ":" + nick
}

// FromKey derives the full identity string for a key and display name.
func FromKey(publicKey, nick string) string {
	return Combine(Derive(publicKey), nick)
}

// Split separates an identity string into hash and nick. Nicks may contain
// colons, so the split happens at the first one. A bare hash returns an
// empty nick and ok=false.
func Split(identity string) (hash, nick string, ok bool) {
	i := strings.IndexByte(identity, ':')
	if i < 0 {
		return identity, "", false
	}
	return identity[:i], identity[i+1:], true
}
