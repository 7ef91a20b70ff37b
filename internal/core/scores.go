package core

import (
	"sort"

	"github.com/bramvdv/tileverse-server/internal/proto"
)

// Game names accepted by score updates, mapped to leaderboard columns.
var gameColumn = map[string]int{
	"rps": 0,
	"ttt": 1,
	"ctf": 2,
}

// Scoreboard keeps per-identity mini-game scores for the process lifetime.
// Mutated only on the hub loop.
type Scoreboard struct {
	scores map[string][3]int
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{scores: make(map[string][3]int)}
}

// Record applies one game result: a win is worth three points, a loss
// takes one away but never below zero. Unknown games are ignored.
func (s *Scoreboard) Record(identity, game string, win bool) bool {
	col, ok := gameColumn[game]
	if !ok {
		return false
	}
	row := s.scores[identity]
	if win {
		row[col] += 3
	} else if row[col] > 0 {
		row[col]--
	}
	s.scores[identity] = row
	return true
}

// Entries returns the full table sorted by total score, best first; ties
// break on identity for a stable order.
func (s *Scoreboard) Entries() []proto.LeaderboardEntry {
	out := make([]proto.LeaderboardEntry, 0, len(s.scores))
	for id, row := range s.scores {
		out = append(out, proto.LeaderboardEntry{Identity: id, Scores: row})
	}
	sort.Slice(out, func(i, j int) bool {
		ti := out[i].Scores[0] + out[i].Scores[1] + out[i].Scores[2]
		tj := out[j].Scores[0] + out[j].Scores[1] + out[j].Scores[2]
		if ti != tj {
			return ti > tj
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}
