package tracker

import (
	"encoding/json"
	"fmt"

	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/tracker/counters"
)

// Player is one participant's scoreboard record.
type Player struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Life       int           `json:"life"`
	Poison     int           `json:"poison"`
	Energy     int           `json:"energy"`
	Experience int           `json:"experience"`
	Color      catalog.Color `json:"colorIdentity"`
	// CommanderDamage is the damage this player has taken, keyed by opponent id.
	CommanderDamage counters.Ledger `json:"commanderDamage"`
}

// NewPlayer creates a player with zeroed counters and the cycled default color.
func NewPlayer(id, life int) Player {
	return Player{
		ID:              id,
		Name:            fmt.Sprintf("Player %d", id),
		Life:            life,
		Color:           catalog.ColorForPlayer(id),
		CommanderDamage: counters.Ledger{},
	}
}

// Elimination describes why a player is out of the match.
type Elimination int

const (
	EliminationNone Elimination = iota
	EliminationLife
	EliminationPoison
	EliminationCommanderDamage
)

func (e Elimination) String() string {
	switch e {
	case EliminationNone:
		return "NONE"
	case EliminationLife:
		return "LIFE"
	case EliminationPoison:
		return "POISON"
	case EliminationCommanderDamage:
		return "COMMANDER_DAMAGE"
	default:
		return "UNKNOWN"
	}
}

// EliminationReason derives the elimination state from the counters. It is
// never stored: raising life above 0 or poison below 10 clears it.
func (p Player) EliminationReason() Elimination {
	switch {
	case p.Life <= 0:
		return EliminationLife
	case p.Poison >= counters.PoisonLethal:
		return EliminationPoison
	}
	if _, lethal := p.CommanderDamage.Lethal(); lethal {
		return EliminationCommanderDamage
	}
	return EliminationNone
}

// Eliminated reports whether the player is out (life <= 0, poison >= 10, or
// 21 commander damage from a single opponent).
func (p Player) Eliminated() bool {
	return p.EliminationReason() != EliminationNone
}

// CommanderLethalFrom reports whether damage from opponentID reached 21.
func (p Player) CommanderLethalFrom(opponentID int) bool {
	return p.CommanderDamage.Get(opponentID) >= counters.CommanderLethal
}

// Copy creates a deep copy of the player.
func (p Player) Copy() Player {
	p.CommanderDamage = p.CommanderDamage.Copy()
	return p
}

// resetCounters restores format defaults and clears commander damage.
func (p *Player) resetCounters(life int) {
	p.Life = life
	p.Poison = 0
	p.Energy = 0
	p.Experience = 0
	p.CommanderDamage = counters.Ledger{}
}

// UnmarshalJSON also accepts the legacy "color" key.
func (p *Player) UnmarshalJSON(data []byte) error {
	type plain Player
	var raw struct {
		plain
		LegacyColor catalog.Color `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Player(raw.plain)
	if p.Color == "" {
		p.Color = raw.LegacyColor
	}
	if p.CommanderDamage == nil {
		p.CommanderDamage = counters.Ledger{}
	}
	return nil
}

// PlayerView is a player plus its derived state, as rendered.
type PlayerView struct {
	Player
	Eliminated  bool   `json:"eliminated"`
	Elimination string `json:"elimination"`
	// CommanderDamageTaken lists the commander-damage panel rows by opponent id.
	CommanderDamageTaken []counters.LedgerView `json:"commanderDamageTaken"`
	CommanderDamageTotal int                   `json:"commanderDamageTotal"`
}

func newPlayerView(p Player) PlayerView {
	reason := p.EliminationReason()
	return PlayerView{
		Player:               p.Copy(),
		Eliminated:           reason != EliminationNone,
		Elimination:          reason.String(),
		CommanderDamageTaken: p.CommanderDamage.ToView(),
		CommanderDamageTotal: p.CommanderDamage.Total(),
	}
}
