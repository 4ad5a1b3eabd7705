package tracker

import (
	"sync"

	"github.com/google/uuid"
	"github.com/magefree/mage-tracker-go/internal/events"
	"github.com/magefree/mage-tracker-go/internal/random"
	"go.uber.org/zap"
)

// Persister loads and saves snapshots. Save is best-effort and must not fail
// the transition that triggered it.
type Persister interface {
	Load() (Snapshot, bool)
	Save(Snapshot)
}

// Controller owns the single Match of a session. It serializes intents,
// saves after every accepted transition and publishes re-render events.
type Controller struct {
	logger    *zap.Logger
	persister Persister
	bus       *events.EventBus
	opts      []Option
	sessionID string

	mu      sync.Mutex
	match   *Match
	started bool
	closed  bool
}

// NewController creates a controller. persister and bus may be nil.
func NewController(persister Persister, bus *events.EventBus, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		logger:    logger,
		persister: persister,
		bus:       bus,
		opts:      opts,
		sessionID: uuid.NewString(),
	}
}

// SessionID identifies this controller instance in logs.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Start builds the match from the persisted snapshot, or the defaults when
// there is none. Calling Start again is a no-op.
func (c *Controller) Start() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return c.match.State()
	}

	restored := false
	if c.persister != nil {
		if snap, ok := c.persister.Load(); ok {
			m, err := RestoreMatch(snap, c.opts...)
			if err != nil {
				c.logger.Warn("discarding invalid snapshot",
					zap.String("session_id", c.sessionID),
					zap.Error(err),
				)
			} else {
				c.match = m
				restored = true
			}
		}
	}
	if c.match == nil {
		c.match = NewMatch(c.opts...)
	}
	c.started = true

	c.logger.Info("tracker session started",
		zap.String("session_id", c.sessionID),
		zap.Bool("restored", restored),
		zap.String("format", c.match.format.ID),
		zap.Int("players", len(c.match.roster)),
		zap.Int("turn", c.match.turn),
	)
	return c.match.State()
}

// Close performs the final save. Intents after Close are rejected.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.closed {
		return
	}
	c.closed = true
	if c.persister != nil {
		c.persister.Save(c.match.Snapshot())
	}
	c.logger.Info("tracker session closed", zap.String("session_id", c.sessionID))
}

// State returns the current match view.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.match == nil {
		return NewMatch(c.opts...).State()
	}
	return c.match.State()
}

// AddPlayer appends a player to the roster.
func (c *Controller) AddPlayer() (State, error) {
	return c.apply("add_player", func(m *Match) (events.Event, error) {
		_, evt, err := m.AddPlayer()
		return evt, err
	})
}

// RemovePlayer removes the player with the given id.
func (c *Controller) RemovePlayer(id int) (State, error) {
	return c.apply("remove_player", func(m *Match) (events.Event, error) {
		return m.RemovePlayer(id)
	})
}

// UpdatePlayer applies a typed command to one player.
func (c *Controller) UpdatePlayer(id int, cmd Command) (State, error) {
	return c.apply("update_player", func(m *Match) (events.Event, error) {
		return m.UpdatePlayer(id, cmd)
	})
}

// AdvanceTurn moves to the next turn.
func (c *Controller) AdvanceTurn() (State, error) {
	return c.apply("advance_turn", func(m *Match) (events.Event, error) {
		return m.AdvanceTurn(), nil
	})
}

// DecrementTurn moves the turn counter back by one, never below 1.
func (c *Controller) DecrementTurn() (State, error) {
	return c.apply("decrement_turn", func(m *Match) (events.Event, error) {
		return m.DecrementTurn(), nil
	})
}

// AdjustStorm changes the storm count.
func (c *Controller) AdjustStorm(delta int) (State, error) {
	return c.apply("adjust_storm", func(m *Match) (events.Event, error) {
		return m.AdjustStorm(delta), nil
	})
}

// ChangeFormat switches to the format with the given id.
func (c *Controller) ChangeFormat(formatID string) (State, error) {
	return c.apply("change_format", func(m *Match) (events.Event, error) {
		return m.ChangeFormat(formatID)
	})
}

// ChangeTheme switches to the theme with the given id.
func (c *Controller) ChangeTheme(themeID string) (State, error) {
	return c.apply("change_theme", func(m *Match) (events.Event, error) {
		return m.ChangeTheme(themeID)
	})
}

// ResetMatch archives and resets the match.
func (c *Controller) ResetMatch() (State, error) {
	return c.apply("reset_match", func(m *Match) (events.Event, error) {
		return m.ResetMatch(), nil
	})
}

// RollDie rolls a die and returns the settled value.
func (c *Controller) RollDie(faces int) (State, int, error) {
	var value int
	state, err := c.apply("roll_die", func(m *Match) (events.Event, error) {
		v, evt, err := m.RollDie(faces)
		value = v
		return evt, err
	})
	return state, value, err
}

// FlipCoin flips a coin and returns the settled face.
func (c *Controller) FlipCoin() (State, random.Coin, error) {
	var coin random.Coin
	state, err := c.apply("flip_coin", func(m *Match) (events.Event, error) {
		var evt events.Event
		coin, evt = m.FlipCoin()
		return evt, nil
	})
	return state, coin, err
}

// apply runs one transition to completion under the controller lock. On
// acceptance the snapshot is saved and observers are notified before the
// next intent can run; listeners must not call back into the controller.
func (c *Controller) apply(intent string, fn func(*Match) (events.Event, error)) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.closed {
		return State{}, ErrNotStarted
	}

	evt, err := fn(c.match)
	if err != nil {
		c.logger.Debug("intent rejected",
			zap.String("session_id", c.sessionID),
			zap.String("intent", intent),
			zap.String("reason", err.Error()),
		)
		return c.match.State(), err
	}

	state := c.match.State()
	if c.persister != nil {
		c.persister.Save(c.match.Snapshot())
	}

	c.logger.Debug("intent applied",
		zap.String("session_id", c.sessionID),
		zap.String("intent", intent),
		zap.Int("turn", state.Turn),
		zap.Int("log_entries", len(state.EventLog)),
	)

	if c.bus != nil {
		evt.State = c.match.State()
		if evt.Type != events.EventStateChanged {
			c.bus.Publish(evt)
		}
		changed := events.NewEvent(events.EventStateChanged, evt.PlayerID, evt.Description)
		changed.Data = intent
		changed.State = c.match.State()
		c.bus.Publish(changed)
	}
	return state, nil
}
