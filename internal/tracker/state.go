package tracker

import (
	"errors"
	"fmt"
	"slices"

	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/journal"
	"github.com/magefree/mage-tracker-go/internal/tracker/counters"
)

// State is the full, independent view of a match handed to the presentation
// layer on every re-render.
type State struct {
	Format          FormatView             `json:"format"`
	ThemeID         string                 `json:"themeId"`
	Players         []PlayerView           `json:"players"`
	Turn            int                    `json:"turn"`
	StormCount      int                    `json:"stormCount"`
	EventLog        []journal.LogEntry     `json:"eventLog"`
	MatchHistory    []journal.MatchSummary `json:"matchHistory"`
	CanAddPlayer    bool                   `json:"canAddPlayer"`
	CanRemovePlayer bool                   `json:"canRemovePlayer"`
}

// FormatView is the rendered subset of the active format.
type FormatView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	StartingLife    int    `json:"startingLife"`
	MaxPlayers      int    `json:"maxPlayers"`
	CommanderDamage bool   `json:"commanderDamage"`
}

// Snapshot is the persisted subset of a match.
type Snapshot struct {
	ThemeID      string                 `json:"themeId"`
	FormatID     string                 `json:"formatId"`
	Players      []Player               `json:"players"`
	Turn         int                    `json:"turn"`
	StormCount   int                    `json:"stormCount"`
	EventLog     []journal.LogEntry     `json:"eventLog"`
	MatchHistory []journal.MatchSummary `json:"matchHistory"`
}

// Copy returns a deep copy of the snapshot.
func (s Snapshot) Copy() Snapshot {
	out := s
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		out.Players[i] = p.Copy()
	}
	out.EventLog = slices.Clone(s.EventLog)
	if s.MatchHistory != nil {
		out.MatchHistory = make([]journal.MatchSummary, len(s.MatchHistory))
		for i, h := range s.MatchHistory {
			out.MatchHistory[i] = h.Copy()
		}
	}
	return out
}

// ErrMalformedSnapshot marks a structurally unusable snapshot.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Normalize validates a decoded snapshot and repairs recoverable fields in
// place: catalog ids are re-resolved, counters floored, self commander damage
// dropped, oversized rosters and logs truncated. A roster that is too small or
// has duplicate or non-positive ids is a structural error.
func (s *Snapshot) Normalize() error {
	format := catalog.FormatOrDefault(s.FormatID)
	s.FormatID = format.ID
	s.ThemeID = catalog.ThemeOrDefault(s.ThemeID).ID

	if len(s.Players) < catalog.MinPlayers {
		return fmt.Errorf("%w: roster has %d players", ErrMalformedSnapshot, len(s.Players))
	}
	if limit := format.MaxPlayers(); len(s.Players) > limit {
		s.Players = s.Players[:limit]
	}
	seen := make(map[int]bool, len(s.Players))
	for i := range s.Players {
		p := &s.Players[i]
		if p.ID <= 0 || seen[p.ID] {
			return fmt.Errorf("%w: invalid player id %d", ErrMalformedSnapshot, p.ID)
		}
		seen[p.ID] = true
		p.Poison = counters.Floor(p.Poison)
		p.Energy = counters.Floor(p.Energy)
		p.Experience = counters.Floor(p.Experience)
		if !p.Color.Valid() {
			p.Color = catalog.ColorForPlayer(p.ID)
		}
		if p.CommanderDamage == nil {
			p.CommanderDamage = counters.Ledger{}
		}
	}
	for i := range s.Players {
		p := &s.Players[i]
		for opp, dmg := range p.CommanderDamage {
			if opp == p.ID || !seen[opp] {
				delete(p.CommanderDamage, opp)
				continue
			}
			p.CommanderDamage[opp] = counters.Floor(dmg)
		}
	}

	s.Turn = max(1, s.Turn)
	s.StormCount = max(0, s.StormCount)
	if len(s.EventLog) > journal.EventLogCapacity {
		s.EventLog = s.EventLog[:journal.EventLogCapacity]
	}
	if len(s.MatchHistory) > journal.HistoryCapacity {
		s.MatchHistory = s.MatchHistory[:journal.HistoryCapacity]
	}
	return nil
}

// State returns an independent copy of the full match view.
func (m *Match) State() State {
	players := make([]PlayerView, len(m.roster))
	for i, p := range m.roster {
		players[i] = newPlayerView(p)
	}
	history := m.history.Entries()
	for i := range history {
		history[i] = history[i].Copy()
	}
	return State{
		Format: FormatView{
			ID:              m.format.ID,
			Name:            m.format.Name,
			StartingLife:    m.format.StartingLife,
			MaxPlayers:      m.format.MaxPlayers(),
			CommanderDamage: m.format.CommanderDamage,
		},
		ThemeID:         m.theme.ID,
		Players:         players,
		Turn:            m.turn,
		StormCount:      m.storm,
		EventLog:        m.eventLog.Entries(),
		MatchHistory:    history,
		CanAddPlayer:    len(m.roster) < m.format.MaxPlayers(),
		CanRemovePlayer: len(m.roster) > catalog.MinPlayers,
	}
}

// Snapshot returns the persisted subset of the match as an independent copy.
func (m *Match) Snapshot() Snapshot {
	players := make([]Player, len(m.roster))
	for i, p := range m.roster {
		players[i] = p.Copy()
	}
	history := m.history.Entries()
	for i := range history {
		history[i] = history[i].Copy()
	}
	return Snapshot{
		ThemeID:      m.theme.ID,
		FormatID:     m.format.ID,
		Players:      players,
		Turn:         m.turn,
		StormCount:   m.storm,
		EventLog:     m.eventLog.Entries(),
		MatchHistory: history,
	}
}
