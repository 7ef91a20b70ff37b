package identity

import (
	"sort"
	"time"
)

// Record is one cryptographic actor: a public key, its first-seen time,
// and every socket currently authenticated as that identity. Records
// persist until process restart; only the live-key registration and the
// socket set shrink on disconnect.
type Record struct {
	PublicKey string
	FirstSeen time.Time
	Sockets   map[string]struct{}
}

// Registry owns the identity records and the live public key table. It is
// mutated only from the hub loop; it carries no locking of its own.
type Registry struct {
	users map[string]*Record
	keys  map[string]string // identity -> live public key
	now   func() time.Time
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*Record),
		keys:  make(map[string]string),
		now:   time.Now,
	}
}

// KeyRegistered reports whether an identity currently holds a live key,
// i.e. some session registered it and has not gracefully deregistered.
func (r *Registry) KeyRegistered(identity string) bool {
	_, ok := r.keys[identity]
	return ok
}

// PublicKey returns the live key for an identity.
func (r *Registry) PublicKey(identity string) (string, bool) {
	k, ok := r.keys[identity]
	return k, ok
}

// RegisterKey marks an identity's key live.
func (r *Registry) RegisterKey(identity, publicKey string) {
	r.keys[identity] = publicKey
}

// DeregisterKey removes the live key, freeing the identity string for a
// future connection. The historical record stays.
func (r *Registry) DeregisterKey(identity string) {
	delete(r.keys, identity)
}

// AddSocket registers a socket under an identity, creating the record on
// first contact. Returns true when the identity already existed.
func (r *Registry) AddSocket(identity, publicKey, socketID string) bool {
	rec, existing := r.users[identity]
	if !existing {
		rec = &Record{
			PublicKey: publicKey,
			FirstSeen: r.now(),
			Sockets:   make(map[string]struct{}),
		}
		r.users[identity] = rec
	}
	rec.PublicKey = publicKey
	rec.Sockets[socketID] = struct{}{}
	return existing
}

// RemoveSocket drops a socket from an identity's live set.
func (r *Registry) RemoveSocket(identity, socketID string) {
	if rec, ok := r.users[identity]; ok {
		delete(rec.Sockets, socketID)
	}
}

// SocketsFor resolves an identity string, or a bare hash, to socket IDs.
// A full identity returns that record's sockets; a bare hash returns the
// union across every nick seen for it.
func (r *Registry) SocketsFor(hashOrIdentity string) []string {
	if _, _, ok := Split(hashOrIdentity); ok {
		if rec, found := r.users[hashOrIdentity]; found {
			return socketList(rec)
		}
		return nil
	}
	var out []string
	for id, rec := range r.users {
		h, _, _ := Split(id)
		if h == hashOrIdentity {
			out = append(out, socketList(rec)...)
		}
	}
	return out
}

// Identities lists every identity with at least one live socket.
func (r *Registry) Identities() []string {
	out := make([]string, 0, len(r.users))
	for id, rec := range r.users {
		if len(rec.Sockets) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// PrefixSearch finds the identity with a live key matching the prefix.
// Ambiguous prefixes return nothing: handing out a key for a guessed
// identity would defeat the point of asking by prefix.
func (r *Registry) PrefixSearch(prefix string) (string, bool) {
	var match string
	for id := range r.keys {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			if match != "" {
				return "", false
			}
			match = id
		}
	}
	return match, match != ""
}

func socketList(rec *Record) []string {
	out := make([]string, 0, len(rec.Sockets))
	for id := range rec.Sockets {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
