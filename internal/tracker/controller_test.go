package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/magefree/mage-tracker-go/internal/events"
	"github.com/magefree/mage-tracker-go/internal/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memoryPersister struct {
	mu    sync.Mutex
	snap  Snapshot
	has   bool
	saves int
}

func (p *memoryPersister) Load() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap, p.has
}

func (p *memoryPersister) Save(s Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = s
	p.has = true
	p.saves++
}

func (p *memoryPersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

func newTestController(t *testing.T, persister Persister, bus *events.EventBus) *Controller {
	t.Helper()
	return NewController(persister, bus, zaptest.NewLogger(t),
		WithClock(func() time.Time { return testNow }),
		WithRoller(random.NewRoller(&scriptedSource{values: []int{5}})),
	)
}

func TestControllerRejectsBeforeStart(t *testing.T) {
	c := newTestController(t, nil, nil)
	_, err := c.AdvanceTurn()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, 1, c.State().Turn)
}

func TestControllerStartsWithDefaults(t *testing.T) {
	p := &memoryPersister{}
	c := newTestController(t, p, nil)

	s := c.Start()
	assert.Equal(t, "commander", s.Format.ID)
	assert.Len(t, s.Players, 2)
	assert.Zero(t, p.saveCount(), "start does not save")
	assert.NotEmpty(t, c.SessionID())
}

func TestControllerDiscardsInvalidSnapshot(t *testing.T) {
	p := &memoryPersister{has: true, snap: Snapshot{
		FormatID: "standard",
		Players:  []Player{{ID: 1, Life: 3}, {ID: 1, Life: 9}, {ID: 3, Life: 1}},
		Turn:     8,
	}}
	c := newTestController(t, p, nil)

	s := c.Start()
	assert.Equal(t, "commander", s.Format.ID)
	require.Len(t, s.Players, 2)
	assert.Equal(t, []int{1, 2}, []int{s.Players[0].ID, s.Players[1].ID})
	assert.Equal(t, 40, s.Players[0].Life)
	assert.Equal(t, 1, s.Turn)
}

func TestControllerSavesAfterAcceptedTransitions(t *testing.T) {
	p := &memoryPersister{}
	c := newTestController(t, p, nil)
	c.Start()

	s, err := c.UpdatePlayer(1, AdjustLife{Delta: -5})
	require.NoError(t, err)
	assert.Equal(t, 35, s.Players[0].Life)
	assert.Equal(t, 1, p.saveCount())
	assert.Equal(t, 35, p.snap.Players[0].Life)

	_, err = c.RemovePlayer(1)
	assert.ErrorIs(t, err, ErrRosterMinimum)
	assert.Equal(t, 1, p.saveCount(), "rejections are not saved")

	_, err = c.AdvanceTurn()
	require.NoError(t, err)
	_, err = c.AdjustStorm(2)
	require.NoError(t, err)
	_, err = c.ChangeTheme("orzhov")
	require.NoError(t, err)
	assert.Equal(t, 4, p.saveCount())
	assert.Equal(t, "orzhov", p.snap.ThemeID)
}

func TestControllerRestoresPersistedMatch(t *testing.T) {
	p := &memoryPersister{}
	first := newTestController(t, p, nil)
	first.Start()
	_, err := first.AddPlayer()
	require.NoError(t, err)
	_, err = first.UpdatePlayer(3, AdjustCommanderDamage{OpponentID: 2, Delta: 4})
	require.NoError(t, err)
	_, err = first.AdvanceTurn()
	require.NoError(t, err)
	first.Close()

	second := newTestController(t, p, nil)
	s := second.Start()
	assert.Equal(t, first.State(), s)
	assert.Len(t, s.Players, 3)
	assert.Equal(t, 4, s.Players[2].CommanderDamage.Get(2))
	assert.Equal(t, 2, s.Turn)
}

func TestControllerCloseSavesAndStopsIntents(t *testing.T) {
	p := &memoryPersister{}
	c := newTestController(t, p, nil)
	c.Start()
	c.Close()
	assert.Equal(t, 1, p.saveCount())

	_, err := c.AdvanceTurn()
	assert.ErrorIs(t, err, ErrNotStarted)
	c.Close()
	assert.Equal(t, 1, p.saveCount())
}

func TestControllerPublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	var mu sync.Mutex
	var got []events.Event
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})

	c := newTestController(t, nil, bus)
	c.Start()

	_, err := c.UpdatePlayer(2, AdjustLife{Delta: -3})
	require.NoError(t, err)
	_, err = c.AdjustStorm(1)
	require.NoError(t, err)
	_, err = c.AddPlayer()
	require.NoError(t, err)
	_, err = c.RemovePlayer(2)
	require.NoError(t, err)
	_, err = c.ChangeFormat("nope")
	assert.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	types := make([]events.EventType, len(got))
	for i, e := range got {
		types[i] = e.Type
	}
	assert.Equal(t, []events.EventType{
		events.EventLifeChanged, events.EventStateChanged,
		events.EventStateChanged,
		events.EventPlayerAdded, events.EventStateChanged,
		events.EventPlayerRemoved, events.EventStateChanged,
	}, types)

	assert.Equal(t, 2, got[0].PlayerID)
	assert.Equal(t, 37, got[0].Amount)
	assert.Equal(t, "update_player", got[1].Data)

	last, ok := got[len(got)-1].State.(State)
	require.True(t, ok)
	assert.Len(t, last.Players, 2)
	assert.Equal(t, 3, last.Players[1].ID)
}

func TestControllerRollAndFlip(t *testing.T) {
	c := newTestController(t, nil, nil)
	c.Start()

	s, value, err := c.RollDie(6)
	require.NoError(t, err)
	assert.Equal(t, 6, value)
	assert.Equal(t, "Rolled d6: 6", s.EventLog[0].Description)

	_, _, err = c.RollDie(3)
	assert.ErrorIs(t, err, ErrInvalidDie)

	s, coin, err := c.FlipCoin()
	require.NoError(t, err)
	assert.Equal(t, random.Tails, coin)
	assert.Equal(t, "Coin flip: Tails", s.EventLog[0].Description)
}

func TestControllerSerializesConcurrentIntents(t *testing.T) {
	p := &memoryPersister{}
	c := newTestController(t, p, nil)
	c.Start()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.UpdatePlayer(1, AdjustLife{Delta: -1})
		}()
	}
	wg.Wait()

	s := c.State()
	assert.Equal(t, -10, s.Players[0].Life)
	assert.Len(t, s.EventLog, 50)
	assert.Equal(t, 50, p.saveCount())
}
