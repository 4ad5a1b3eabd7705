// Package journal implements the bounded match event log and the archive of
// completed match summaries.
//
// Both structures are newest-first: entries are pushed at the head and the
// tail is truncated beyond capacity. Entries are never mutated after push.
package journal

import (
	"encoding/json"
	"time"
)

// Capacities.
const (
	EventLogCapacity = 100
	HistoryCapacity  = 20
	ExcerptSize      = 20
)

// Wall-clock layouts used for log and summary timestamps.
const (
	TimeLayout = "3:04:05 PM"
	DateLayout = "1/2/2006, 3:04:05 PM"
)

// Log is a bounded newest-first sequence.
type Log[T any] struct {
	entries  []T
	capacity int
}

// NewLog creates an empty log holding at most capacity entries.
func NewLog[T any](capacity int) *Log[T] {
	return &Log[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// RestoreLog rebuilds a log from entries already in newest-first order,
// dropping anything beyond capacity.
func RestoreLog[T any](capacity int, entries []T) *Log[T] {
	l := NewLog[T](capacity)
	if len(entries) > capacity {
		entries = entries[:capacity]
	}
	l.entries = append(l.entries, entries...)
	return l
}

// Push prepends an entry, silently dropping the oldest past capacity.
func (l *Log[T]) Push(entry T) {
	l.entries = append(l.entries, entry)
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = entry
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
}

// Entries returns a copy of all entries, newest first.
func (l *Log[T]) Entries() []T {
	return l.Head(len(l.entries))
}

// Head returns a copy of the n newest entries.
func (l *Log[T]) Head(n int) []T {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n < 0 {
		n = 0
	}
	out := make([]T, n)
	copy(out, l.entries[:n])
	return out
}

// Len returns the number of entries.
func (l *Log[T]) Len() int {
	return len(l.entries)
}

// Clear drops every entry.
func (l *Log[T]) Clear() {
	l.entries = l.entries[:0]
}

// LogEntry is one line of the match event log.
type LogEntry struct {
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	Turn        int    `json:"turn"`
}

// NewLogEntry stamps description with the wall-clock time of now.
func NewLogEntry(description string, now time.Time, turn int) LogEntry {
	return LogEntry{
		Description: description,
		Timestamp:   now.Format(TimeLayout),
		Turn:        turn,
	}
}

// UnmarshalJSON also accepts the legacy {action, time, turn} shape.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description string `json:"description"`
		Timestamp   string `json:"timestamp"`
		Turn        int    `json:"turn"`
		Action      string `json:"action"`
		Time        string `json:"time"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Description = firstNonEmpty(raw.Description, raw.Action)
	e.Timestamp = firstNonEmpty(raw.Timestamp, raw.Time)
	e.Turn = raw.Turn
	return nil
}

// PlayerResult is the final standing of one player in an archived match.
type PlayerResult struct {
	Name   string `json:"name"`
	Life   int    `json:"life"`
	Poison int    `json:"poison"`
}

// MatchSummary is an independent snapshot of a match taken at reset time.
type MatchSummary struct {
	ID          string         `json:"id,omitempty"`
	CompletedAt string         `json:"completedAt"`
	FormatName  string         `json:"formatName"`
	Players     []PlayerResult `json:"players"`
	TurnsPlayed int            `json:"turnsPlayed"`
	LogExcerpt  []LogEntry     `json:"logExcerpt"`
}

// UnmarshalJSON also accepts the legacy {date, format, players, turns, log} shape.
func (s *MatchSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string         `json:"id"`
		CompletedAt string         `json:"completedAt"`
		FormatName  string         `json:"formatName"`
		Players     []PlayerResult `json:"players"`
		TurnsPlayed int            `json:"turnsPlayed"`
		LogExcerpt  []LogEntry     `json:"logExcerpt"`
		Date        string         `json:"date"`
		Format      string         `json:"format"`
		Turns       int            `json:"turns"`
		Log         []LogEntry     `json:"log"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.CompletedAt = firstNonEmpty(raw.CompletedAt, raw.Date)
	s.FormatName = firstNonEmpty(raw.FormatName, raw.Format)
	s.Players = raw.Players
	s.TurnsPlayed = raw.TurnsPlayed
	if s.TurnsPlayed == 0 {
		s.TurnsPlayed = raw.Turns
	}
	s.LogExcerpt = raw.LogExcerpt
	if s.LogExcerpt == nil {
		s.LogExcerpt = raw.Log
	}
	if len(s.LogExcerpt) > ExcerptSize {
		s.LogExcerpt = s.LogExcerpt[:ExcerptSize]
	}
	return nil
}

// Copy creates a deep copy of the summary.
func (s MatchSummary) Copy() MatchSummary {
	s.Players = append([]PlayerResult(nil), s.Players...)
	s.LogExcerpt = append([]LogEntry(nil), s.LogExcerpt...)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
