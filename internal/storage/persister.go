package storage

import (
	"context"
	"errors"
	"time"

	"github.com/magefree/mage-tracker-go/internal/tracker"
	"go.uber.org/zap"
)

const defaultTimeout = 2 * time.Second

var _ tracker.Persister = (*Persister)(nil)

// Persister adapts a Store to the controller's best-effort persistence
// contract: Load reports absence instead of failing and Save never fails.
type Persister struct {
	store   Store
	key     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPersister creates a persister writing the snapshot under key.
func NewPersister(store Store, key string, timeout time.Duration, logger *zap.Logger) *Persister {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Persister{store: store, key: key, timeout: timeout, logger: logger}
}

// Load returns the stored snapshot. Missing, unreadable, corrupt, or
// structurally invalid records all report false.
func (p *Persister) Load() (tracker.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	data, err := p.store.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("failed to read snapshot", zap.String("key", p.key), zap.Error(err))
		}
		return tracker.Snapshot{}, false
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		p.logger.Warn("discarding unusable snapshot",
			zap.String("key", p.key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return tracker.Snapshot{}, false
	}

	p.logger.Debug("snapshot loaded",
		zap.String("key", p.key),
		zap.String("format", snap.FormatID),
		zap.Int("players", len(snap.Players)),
	)
	return snap, true
}

// Save writes the snapshot. Failures are logged and dropped.
func (p *Persister) Save(snap tracker.Snapshot) {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		p.logger.Warn("failed to encode snapshot", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.store.Put(ctx, p.key, data); err != nil {
		p.logger.Warn("failed to save snapshot", zap.String("key", p.key), zap.Error(err))
	}
}
