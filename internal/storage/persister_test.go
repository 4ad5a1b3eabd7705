package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/magefree/mage-tracker-go/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type failingStore struct {
	getErr error
	putErr error
	puts   int
}

func (s *failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.getErr }

func (s *failingStore) Put(context.Context, string, []byte) error {
	s.puts++
	return s.putErr
}

func (s *failingStore) Close() error { return nil }

func TestPersisterRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	p := NewPersister(store, "tracker", time.Second, zaptest.NewLogger(t))

	_, ok := p.Load()
	assert.False(t, ok)

	m := playedMatch(t)
	p.Save(m.Snapshot())

	snap, ok := p.Load()
	require.True(t, ok)
	restored, err := tracker.RestoreMatch(snap)
	require.NoError(t, err)
	assert.Equal(t, m.State(), restored.State())
}

func TestPersisterTreatsCorruptRecordAsAbsent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "tracker", []byte("garbage")))

	p := NewPersister(store, "tracker", time.Second, zap.New(core))
	_, ok := p.Load()
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("discarding unusable snapshot").Len())
}

func TestPersisterSwallowsStoreErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &failingStore{getErr: errors.New("disk gone"), putErr: errors.New("quota exceeded")}
	p := NewPersister(store, "tracker", time.Second, zap.New(core))

	_, ok := p.Load()
	assert.False(t, ok)

	assert.NotPanics(t, func() { p.Save(tracker.NewMatch().Snapshot()) })
	assert.Equal(t, 1, store.puts)
	assert.Equal(t, 1, logs.FilterMessage("failed to read snapshot").Len())
	assert.Equal(t, 1, logs.FilterMessage("failed to save snapshot").Len())
}

func TestPersisterNotFoundIsQuiet(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewPersister(NewMemoryStore(), "tracker", 0, zap.New(core))

	_, ok := p.Load()
	assert.False(t, ok)
	assert.Zero(t, logs.Len())
}

func TestControllerSessionSurvivesRestart(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	first := tracker.NewController(NewPersister(store, "tracker", time.Second, logger), nil, logger)
	first.Start()
	for i := 0; i < 2; i++ {
		_, err = first.AddPlayer()
		require.NoError(t, err)
	}
	_, err = first.ChangeFormat("two_headed")
	require.NoError(t, err)
	_, err = first.UpdatePlayer(4, tracker.AdjustLife{Delta: -6})
	require.NoError(t, err)
	_, err = first.ChangeTheme("blood")
	require.NoError(t, err)
	first.Close()

	second := tracker.NewController(NewPersister(store, "tracker", time.Second, logger), nil, logger)
	s := second.Start()
	assert.Equal(t, "two_headed", s.Format.ID)
	assert.Equal(t, "blood", s.ThemeID)
	require.Len(t, s.Players, 4)
	assert.Equal(t, 24, s.Players[3].Life)
	assert.Equal(t, "Player 4: 30 → 24 life", s.EventLog[0].Description)
}
