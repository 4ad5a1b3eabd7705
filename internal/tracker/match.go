// Package tracker implements the scoreboard state model: player records, the
// typed commands that mutate them, and the match-level transitions.
package tracker

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/events"
	"github.com/magefree/mage-tracker-go/internal/journal"
	"github.com/magefree/mage-tracker-go/internal/random"
)

// Match is the aggregate scoreboard state for one running session.
//
// Match is not safe for concurrent use; Controller serializes access. Every
// exported transition either applies completely or returns a rejection error
// and leaves the match unchanged.
type Match struct {
	format   catalog.Format
	theme    catalog.Theme
	roster   []Player
	turn     int
	storm    int
	eventLog *journal.Log[journal.LogEntry]
	history  *journal.Log[journal.MatchSummary]

	clock  func() time.Time
	roller *random.Roller
}

// Option configures a Match.
type Option func(*Match)

// WithClock overrides the wall clock used for log timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Match) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithRoller overrides the randomizer.
func WithRoller(roller *random.Roller) Option {
	return func(m *Match) {
		if roller != nil {
			m.roller = roller
		}
	}
}

// NewMatch creates the default initial state: first format, first theme, two
// players at the format's starting life, turn 1, empty logs.
func NewMatch(opts ...Option) *Match {
	format := catalog.DefaultFormat()
	m := &Match{
		format:   format,
		theme:    catalog.DefaultTheme(),
		roster:   []Player{NewPlayer(1, format.StartingLife), NewPlayer(2, format.StartingLife)},
		turn:     1,
		eventLog: journal.NewLog[journal.LogEntry](journal.EventLogCapacity),
		history:  journal.NewLog[journal.MatchSummary](journal.HistoryCapacity),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.roller == nil {
		m.roller = random.NewRoller(nil)
	}
	return m
}

// RestoreMatch rebuilds a match from a persisted snapshot. The snapshot is
// copied and normalized first: catalog ids are re-resolved with first-entry
// fallback and the roster must satisfy the roster invariants. A snapshot that
// cannot be normalized yields the default match along with the error.
func RestoreMatch(s Snapshot, opts ...Option) (*Match, error) {
	m := NewMatch(opts...)
	s = s.Copy()
	if err := s.Normalize(); err != nil {
		return m, err
	}

	m.format = catalog.FormatOrDefault(s.FormatID)
	m.theme = catalog.ThemeOrDefault(s.ThemeID)
	m.roster = s.Players
	m.turn = s.Turn
	m.storm = s.StormCount
	m.eventLog = journal.RestoreLog(journal.EventLogCapacity, s.EventLog)
	m.history = journal.RestoreLog(journal.HistoryCapacity, s.MatchHistory)
	return m, nil
}

// AddPlayer appends a player with id max(existing)+1 at the format's life.
func (m *Match) AddPlayer() (Player, events.Event, error) {
	if len(m.roster) >= m.format.MaxPlayers() {
		return Player{}, events.Event{}, ErrRosterFull
	}
	id := 1
	for _, p := range m.roster {
		if p.ID >= id {
			id = p.ID + 1
		}
	}
	p := NewPlayer(id, m.format.StartingLife)
	m.roster = append(m.roster, p)

	evt := events.NewEvent(events.EventPlayerAdded, id, p.Name)
	return p.Copy(), evt, nil
}

// RemovePlayer drops a player. Rejected while the roster is at the minimum.
// Other players' commander damage from the removed player is discarded so a
// later player reusing the id starts clean.
func (m *Match) RemovePlayer(id int) (events.Event, error) {
	if len(m.roster) <= catalog.MinPlayers {
		return events.Event{}, ErrRosterMinimum
	}
	idx, ok := m.findPlayer(id)
	if !ok {
		return events.Event{}, fmt.Errorf("player %d: %w", id, ErrUnknownPlayer)
	}
	removed := m.roster[idx]
	m.roster = append(m.roster[:idx], m.roster[idx+1:]...)
	for i := range m.roster {
		m.roster[i].CommanderDamage.Delete(id)
	}
	return events.NewEvent(events.EventPlayerRemoved, id, removed.Name), nil
}

// UpdatePlayer applies cmd to the player atomically: the counter change, any
// coupled life change and the log lines land together.
func (m *Match) UpdatePlayer(id int, cmd Command) (events.Event, error) {
	if cmd == nil {
		return events.Event{}, ErrUnknownCommand
	}
	idx, ok := m.findPlayer(id)
	if !ok {
		return events.Event{}, fmt.Errorf("player %d: %w", id, ErrUnknownPlayer)
	}

	working := m.roster[idx].Copy()
	lines, err := cmd.apply(&working, m)
	if err != nil {
		return events.Event{}, err
	}

	lifeChanged := working.Life != m.roster[idx].Life
	m.roster[idx] = working
	for _, line := range lines {
		m.log(line)
	}

	evtType := events.EventStateChanged
	if lifeChanged {
		evtType = events.EventLifeChanged
	}
	evt := events.NewEvent(evtType, id, firstLine(lines))
	evt.Amount = working.Life
	evt.Data = cmd.Name()
	return evt, nil
}

// AdvanceTurn increments the turn, resets storm and logs "Turn <n>".
func (m *Match) AdvanceTurn() events.Event {
	m.turn++
	m.storm = 0
	line := fmt.Sprintf("Turn %d", m.turn)
	m.log(line)

	evt := events.NewEvent(events.EventTurnAdvanced, 0, line)
	evt.Amount = m.turn
	return evt
}

// DecrementTurn lowers the turn with a floor of 1. Storm is untouched and
// nothing is logged.
func (m *Match) DecrementTurn() events.Event {
	m.turn = max(1, m.turn-1)
	evt := events.NewEvent(events.EventStateChanged, 0, "")
	evt.Amount = m.turn
	evt.Data = "decrement_turn"
	return evt
}

// AdjustStorm changes the storm count, floored at zero. Not logged.
func (m *Match) AdjustStorm(delta int) events.Event {
	m.storm = max(0, m.storm+delta)
	evt := events.NewEvent(events.EventStateChanged, 0, "")
	evt.Amount = m.storm
	evt.Data = "adjust_storm"
	return evt
}

// ChangeFormat switches formats and resets the match to its defaults. The
// live log is cleared; archived history is kept and nothing is archived.
func (m *Match) ChangeFormat(formatID string) (events.Event, error) {
	format, ok := catalog.LookupFormat(formatID)
	if !ok {
		return events.Event{}, fmt.Errorf("%q: %w", formatID, ErrUnknownFormat)
	}
	m.format = format
	m.resetTo(format)
	return events.NewEvent(events.EventFormatChanged, 0, format.Name), nil
}

// ChangeTheme swaps the cosmetic theme. The match is not reset.
func (m *Match) ChangeTheme(themeID string) (events.Event, error) {
	theme, ok := catalog.LookupTheme(themeID)
	if !ok {
		return events.Event{}, fmt.Errorf("%q: %w", themeID, ErrUnknownTheme)
	}
	m.theme = theme
	evt := events.NewEvent(events.EventStateChanged, 0, theme.Name)
	evt.Data = "change_theme"
	return evt, nil
}

// ResetMatch archives the match (when it logged anything), resets every
// counter to the current format's defaults and logs "Game reset".
func (m *Match) ResetMatch() events.Event {
	if m.eventLog.Len() > 0 {
		m.history.Push(m.summarize())
	}
	m.resetTo(m.format)
	m.log("Game reset")
	return events.NewEvent(events.EventMatchReset, 0, "Game reset")
}

// RollDie settles a die roll and logs "Rolled d<N>: <value>".
func (m *Match) RollDie(faces int) (int, events.Event, error) {
	value, err := m.roller.RollDie(faces)
	if err != nil {
		return 0, events.Event{}, fmt.Errorf("d%d: %w", faces, err)
	}
	line := fmt.Sprintf("Rolled d%d: %d", faces, value)
	m.log(line)

	evt := events.NewEvent(events.EventDieRolled, 0, line)
	evt.Amount = value
	evt.Data = "d" + strconv.Itoa(faces)
	return value, evt, nil
}

// FlipCoin settles a coin flip and logs "Coin flip: <result>".
func (m *Match) FlipCoin() (random.Coin, events.Event) {
	coin := m.roller.FlipCoin()
	line := fmt.Sprintf("Coin flip: %s", coin)
	m.log(line)

	evt := events.NewEvent(events.EventCoinFlipped, 0, line)
	evt.Data = coin.String()
	return coin, evt
}

// Player returns a copy of the player with the given id.
func (m *Match) Player(id int) (Player, bool) {
	idx, ok := m.findPlayer(id)
	if !ok {
		return Player{}, false
	}
	return m.roster[idx].Copy(), true
}

// Format returns the active format.
func (m *Match) Format() catalog.Format {
	return m.format
}

// Turn returns the current turn number.
func (m *Match) Turn() int {
	return m.turn
}

// StormCount returns the current storm count.
func (m *Match) StormCount() int {
	return m.storm
}

func (m *Match) resetTo(format catalog.Format) {
	if limit := format.MaxPlayers(); len(m.roster) > limit {
		m.roster = m.roster[:limit]
	}
	for i := range m.roster {
		m.roster[i].resetCounters(format.StartingLife)
	}
	m.turn = 1
	m.storm = 0
	m.eventLog.Clear()
}

func (m *Match) summarize() journal.MatchSummary {
	players := make([]journal.PlayerResult, len(m.roster))
	for i, p := range m.roster {
		players[i] = journal.PlayerResult{Name: p.Name, Life: p.Life, Poison: p.Poison}
	}
	return journal.MatchSummary{
		ID:          uuid.NewString(),
		CompletedAt: m.clock().Format(journal.DateLayout),
		FormatName:  m.format.Name,
		Players:     players,
		TurnsPlayed: m.turn,
		LogExcerpt:  m.eventLog.Head(journal.ExcerptSize),
	}
}

func (m *Match) log(description string) {
	m.eventLog.Push(journal.NewLogEntry(description, m.clock(), m.turn))
}

func (m *Match) findPlayer(id int) (int, bool) {
	for i, p := range m.roster {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func firstLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
