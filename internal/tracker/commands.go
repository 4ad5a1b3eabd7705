package tracker

import (
	"fmt"

	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/tracker/counters"
)

// Command is a typed player update. Each variant owns one application rule.
// Commands mutate a working copy of the player; the match commits the copy and
// the returned log lines together, or nothing at all on error.
type Command interface {
	// Name identifies the command in logs and on the wire.
	Name() string
	apply(p *Player, m *Match) ([]string, error)
}

// AdjustLife adds Delta to life. There is no clamping.
type AdjustLife struct {
	Delta int
}

func (AdjustLife) Name() string { return "adjust_life" }

func (c AdjustLife) apply(p *Player, _ *Match) ([]string, error) {
	return setLife(p, p.Life+c.Delta), nil
}

// SetPoison sets poison to an absolute value, floored at zero.
type SetPoison struct {
	Value int
}

func (SetPoison) Name() string { return "set_poison" }

func (c SetPoison) apply(p *Player, _ *Match) ([]string, error) {
	return setCounter(p, counters.CounterTypePoison, counters.Floor(c.Value)), nil
}

// AdjustPoison is the up/down control: max(0, poison+Delta), then the set rule.
type AdjustPoison struct {
	Delta int
}

func (AdjustPoison) Name() string { return "adjust_poison" }

func (c AdjustPoison) apply(p *Player, _ *Match) ([]string, error) {
	return setCounter(p, counters.CounterTypePoison, counters.Adjust(p.Poison, c.Delta)), nil
}

// AdjustEnergy changes the informational energy counter. Not logged.
type AdjustEnergy struct {
	Delta int
}

func (AdjustEnergy) Name() string { return "adjust_energy" }

func (c AdjustEnergy) apply(p *Player, _ *Match) ([]string, error) {
	return setCounter(p, counters.CounterTypeEnergy, counters.Adjust(p.Energy, c.Delta)), nil
}

// AdjustExperience changes the informational experience counter. Not logged.
type AdjustExperience struct {
	Delta int
}

func (AdjustExperience) Name() string { return "adjust_experience" }

func (c AdjustExperience) apply(p *Player, _ *Match) ([]string, error) {
	return setCounter(p, counters.CounterTypeExperience, counters.Adjust(p.Experience, c.Delta)), nil
}

// AdjustCommanderDamage changes the damage taken from OpponentID.
//
// A positive Delta is compound: the counter rises by Delta and the player's
// own life drops by the same amount. A negative Delta only corrects the
// counter (floored at zero) and never restores life.
type AdjustCommanderDamage struct {
	OpponentID int
	Delta      int
}

func (AdjustCommanderDamage) Name() string { return "adjust_commander_damage" }

func (c AdjustCommanderDamage) apply(p *Player, m *Match) ([]string, error) {
	if !m.format.CommanderDamage {
		return nil, ErrCommanderDamageDisabled
	}
	if c.OpponentID == p.ID {
		return nil, ErrSelfCommanderDamage
	}
	if _, ok := m.findPlayer(c.OpponentID); !ok {
		return nil, fmt.Errorf("opponent %d: %w", c.OpponentID, ErrUnknownPlayer)
	}
	if p.CommanderDamage == nil {
		p.CommanderDamage = counters.Ledger{}
	}

	switch {
	case c.Delta > 0:
		p.CommanderDamage.Add(c.OpponentID, c.Delta)
		return setLife(p, p.Life-c.Delta), nil
	case c.Delta < 0:
		p.CommanderDamage.Remove(c.OpponentID, -c.Delta)
	}
	return nil, nil
}

// Rename replaces the player's display name.
type Rename struct {
	To string
}

func (Rename) Name() string { return "rename" }

func (c Rename) apply(p *Player, _ *Match) ([]string, error) {
	p.Name = c.To
	return nil, nil
}

// SetColor replaces the player's color identity.
type SetColor struct {
	Color catalog.Color
}

func (SetColor) Name() string { return "set_color" }

func (c SetColor) apply(p *Player, _ *Match) ([]string, error) {
	if !c.Color.Valid() {
		return nil, fmt.Errorf("%q: %w", c.Color, ErrInvalidColor)
	}
	p.Color = c.Color
	return nil, nil
}

func setLife(p *Player, life int) []string {
	if life == p.Life {
		return nil
	}
	line := fmt.Sprintf("%s: %d → %d life", p.Name, p.Life, life)
	p.Life = life
	return []string{line}
}

// setCounter stores value in the scalar counter ct. Only logged counter types
// produce a line.
func setCounter(p *Player, ct counters.CounterType, value int) []string {
	var field *int
	switch ct {
	case counters.CounterTypePoison:
		field = &p.Poison
	case counters.CounterTypeEnergy:
		field = &p.Energy
	case counters.CounterTypeExperience:
		field = &p.Experience
	default:
		return nil
	}
	if *field == value {
		return nil
	}
	*field = value
	if !ct.Logged() {
		return nil
	}
	return []string{fmt.Sprintf("%s: %d %s counters", p.Name, value, ct)}
}
