package random

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Frame is one step of an animated randomizer sequence.
type Frame struct {
	Kind  string
	Value string
	Final bool
}

// Animation describes how a sequence is played.
type Animation struct {
	Kind     string
	Frames   int
	Interval time.Duration
	// Next produces a cosmetic intermediate value.
	Next func() string
}

// Sequencer plays at most one animation at a time. Starting a new animation
// cancels the live one; a cancelled animation emits nothing further.
type Sequencer struct {
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewSequencer creates an idle sequencer.
func NewSequencer(logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{logger: logger}
}

// Play starts anim, ending on final. emit is invoked from the sequence
// goroutine and must not call back into the sequencer. The returned channel
// closes when the sequence finishes or is cancelled.
func (s *Sequencer) Play(ctx context.Context, anim Animation, final string, emit func(Frame)) <-chan struct{} {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.logger.Debug("randomizer sequence replaced", zap.String("kind", anim.Kind))
	}
	s.generation++
	gen := s.generation
	seqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		s.run(seqCtx, gen, anim, final, emit)
	}()
	return done
}

func (s *Sequencer) run(ctx context.Context, gen uint64, anim Animation, final string, emit func(Frame)) {
	interval := anim.Interval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i <= anim.Frames; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame := Frame{Kind: anim.Kind, Value: final, Final: i == anim.Frames}
		if !frame.Final && anim.Next != nil {
			frame.Value = anim.Next()
		}
		if !s.emitIfCurrent(gen, frame, emit) {
			return
		}
	}

	s.mu.Lock()
	if s.generation == gen {
		s.cancel = nil
	}
	s.mu.Unlock()
}

// emitIfCurrent holds the lock while emitting so a replaced sequence can never
// deliver a frame after Play has returned for its successor.
func (s *Sequencer) emitIfCurrent(gen uint64, frame Frame, emit func(Frame)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	if emit != nil {
		emit(frame)
	}
	return true
}

// Stop cancels the live sequence, if any.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
}
