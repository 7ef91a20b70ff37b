package core

import (
	"sort"
	"strings"
	"time"

	"github.com/bramvdv/tileverse-server/internal/scheduler"
)

// Position is one actor's place and appearance on a world grid.
type Position struct {
	X    int
	Y    int
	Skin string
}

// HistoryEntry is one remembered chat line.
type HistoryEntry struct {
	Sender string
	Text   string
}

// Room is a chat channel or a game world. Both share membership,
// admission, and history; worlds additionally carry a live grid, a
// position map, and background loops. All mutation happens on the hub
// loop; Room carries no locking.
type Room struct {
	Name    string
	IsWorld bool

	// Creation-time admission: a secret room's password is fixed when it
	// is created and stored hashed.
	Secret       bool
	PasswordHash string
	// Owner of a dynamic channel (its creator).
	OwnerID string
	// Whether non-members may send into the room.
	ExternalMessages bool

	// Per-session world privacy: a member claimed admin and set a
	// plaintext password. Reverts to public when the admin leaves.
	Private       bool
	WorldAdmin    string
	WorldPassword string

	// Grid and regeneration hook for maze-style worlds.
	Grid  [][]string
	regen func() [][]string

	members   map[string]struct{}
	bots      map[string]struct{}
	positions map[string]Position

	historyLimit int
	history      []HistoryEntry
	cursor       int

	pausedUntil time.Time
	tasks       []*scheduler.Task
}

// ValidRoomName checks the naming rule: exactly one leading '#', no
// whitespace anywhere.
func ValidRoomName(name string) bool {
	if !strings.HasPrefix(name, "#") || strings.Count(name, "#") != 1 {
		return false
	}
	return !strings.ContainsAny(name, " \t\n")
}

// NewChannel builds a dynamic chat channel. The creator becomes its sole
// member and implicit owner. passwordHash empty means open admission.
func NewChannel(name, ownerID, passwordHash string, historyLimit int, externalMessages bool) *Room {
	r := newRoom(name, historyLimit)
	r.OwnerID = ownerID
	r.Secret = passwordHash != ""
	r.PasswordHash = passwordHash
	r.ExternalMessages = externalMessages
	if ownerID != "" {
		r.members[ownerID] = struct{}{}
	}
	return r
}

// NewWorld builds a static game world with its grid. regen, when set,
// rebuilds the grid from scratch (maze-style worlds regenerate when the
// world empties).
func NewWorld(name string, grid [][]string, historyLimit int, regen func() [][]string) *Room {
	r := newRoom(name, historyLimit)
	r.IsWorld = true
	r.Grid = grid
	r.regen = regen
	return r
}

func newRoom(name string, historyLimit int) *Room {
	var history []HistoryEntry
	if historyLimit > 0 {
		history = make([]HistoryEntry, 0, historyLimit)
	}
	return &Room{
		Name:         name,
		members:      make(map[string]struct{}),
		bots:         make(map[string]struct{}),
		positions:    make(map[string]Position),
		historyLimit: historyLimit,
		history:      history,
	}
}

// AddMember admits an identity. Returns false when already a member.
func (r *Room) AddMember(id string) bool {
	if _, exists := r.members[id]; exists {
		return false
	}
	r.members[id] = struct{}{}
	return true
}

// AddBot admits an autonomous identity into the disjoint bot set.
func (r *Room) AddBot(id string) bool {
	if _, exists := r.bots[id]; exists {
		return false
	}
	r.bots[id] = struct{}{}
	return true
}

// Remove evicts an identity from whichever set holds it. The position map
// entry goes with it.
func (r *Room) Remove(id string) (removed, wasBot bool) {
	if _, ok := r.members[id]; ok {
		delete(r.members, id)
		delete(r.positions, id)
		return true, false
	}
	if _, ok := r.bots[id]; ok {
		delete(r.bots, id)
		delete(r.positions, id)
		return true, true
	}
	return false, false
}

// HasMember reports interactive membership.
func (r *Room) HasMember(id string) bool {
	_, ok := r.members[id]
	return ok
}

// HasBot reports bot membership.
func (r *Room) HasBot(id string) bool {
	_, ok := r.bots[id]
	return ok
}

// Members returns interactive member identities, sorted.
func (r *Room) Members() []string {
	return sortedKeys(r.members)
}

// Bots returns bot identities, sorted.
func (r *Room) Bots() []string {
	return sortedKeys(r.bots)
}

// MemberCount is the interactive occupancy.
func (r *Room) MemberCount() int { return len(r.members) }

// BotCount is the bot occupancy.
func (r *Room) BotCount() int { return len(r.bots) }

// AppendHistory records a chat line at the ring cursor. A zero limit
// disables history entirely.
func (r *Room) AppendHistory(sender, text string) {
	if r.historyLimit == 0 {
		return
	}
	entry := HistoryEntry{Sender: sender, Text: text}
	if len(r.history) < r.historyLimit {
		r.history = append(r.history, entry)
	} else {
		r.history[r.cursor] = entry
	}
	r.cursor = (r.cursor + 1) % r.historyLimit
}

// History returns the remembered lines, oldest first.
func (r *Room) History() []HistoryEntry {
	if len(r.history) < r.historyLimit {
		out := make([]HistoryEntry, len(r.history))
		copy(out, r.history)
		return out
	}
	// Ring is full: the cursor points at the oldest entry.
	out := make([]HistoryEntry, 0, len(r.history))
	out = append(out, r.history[r.cursor:]...)
	out = append(out, r.history[:r.cursor]...)
	return out
}

// SetPosition records an actor's latest position. Last write wins.
func (r *Room) SetPosition(id string, p Position) {
	r.positions[id] = p
}

// Position returns an actor's latest known position.
func (r *Room) Position(id string) (Position, bool) {
	p, ok := r.positions[id]
	return p, ok
}

// Positions returns a snapshot of the live position map.
func (r *Room) Positions() map[string]Position {
	out := make(map[string]Position, len(r.positions))
	for id, p := range r.positions {
		out[id] = p
	}
	return out
}

// PositionedIDs returns identities with a live position, sorted.
func (r *Room) PositionedIDs() []string {
	out := make([]string, 0, len(r.positions))
	for id := range r.positions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Pause suspends background loops until the deadline. Fired on join so a
// freshly rendered grid is not mutated under the newcomer.
func (r *Room) Pause(until time.Time) {
	if until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}

// Paused reports whether loops should skip this step.
func (r *Room) Paused(now time.Time) bool {
	return now.Before(r.pausedUntil)
}

// AttachTask ties a scheduler task's lifetime to the room.
func (r *Room) AttachTask(t *scheduler.Task) {
	r.tasks = append(r.tasks, t)
}

// StopTasks cancels every background loop the room owns.
func (r *Room) StopTasks() {
	for _, t := range r.tasks {
		t.Stop()
	}
	r.tasks = nil
}

// Regenerate rebuilds the grid from the room's generator, if any.
// Returns true when the grid changed.
func (r *Room) Regenerate() bool {
	if r.regen == nil {
		return false
	}
	r.Grid = r.regen()
	return true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
