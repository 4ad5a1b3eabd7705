package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magefree/mage-tracker-go/internal/journal"
	"github.com/magefree/mage-tracker-go/internal/tracker"
)

// RecordVersion is the current record format.
const RecordVersion = 1

const (
	versionKey  = "version"
	checksumKey = "checksum"
)

var (
	// ErrChecksumMismatch marks a record whose fields do not hash to the
	// stored checksum.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	// ErrUnsupportedVersion marks a record written by a newer release.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// record is the persisted layout: the snapshot keys at the top level with
// the format version beside them. The checksum is added after encoding.
type record struct {
	Version int `json:"version"`
	tracker.Snapshot
}

// legacyRecord also accepts the top-level keys of snapshots written by the
// browser build.
type legacyRecord struct {
	tracker.Snapshot
	TurnCount   *int                   `json:"turnCount"`
	GameLog     []journal.LogEntry     `json:"gameLog"`
	GameHistory []journal.MatchSummary `json:"gameHistory"`
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fieldsChecksum hashes every top-level field except the checksum itself.
// encoding/json writes map keys sorted and compacts raw values, so the hash
// does not depend on key order or whitespace in the stored record.
func fieldsChecksum(fields map[string]json.RawMessage) (string, error) {
	rest := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if k != checksumKey {
			rest[k] = v
		}
	}
	canonical, err := json.Marshal(rest)
	if err != nil {
		return "", err
	}
	return Checksum(canonical), nil
}

// EncodeSnapshot serializes a snapshot as a flat, checksummed record.
func EncodeSnapshot(snap tracker.Snapshot) ([]byte, error) {
	body, err := json.Marshal(record{Version: RecordVersion, Snapshot: snap})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to split snapshot fields: %w", err)
	}
	sum, err := fieldsChecksum(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum snapshot: %w", err)
	}
	fields[checksumKey], err = json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checksum: %w", err)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a record written by EncodeSnapshot, or a bare
// snapshot without version and checksum, and normalizes it. Any error means
// the record must be treated as absent.
func DecodeSnapshot(data []byte) (tracker.Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return tracker.Snapshot{}, fmt.Errorf("%w: empty record", tracker.ErrMalformedSnapshot)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return tracker.Snapshot{}, fmt.Errorf("%w: %v", tracker.ErrMalformedSnapshot, err)
	}

	if raw, ok := fields[versionKey]; ok {
		var version int
		if err := json.Unmarshal(raw, &version); err != nil {
			return tracker.Snapshot{}, fmt.Errorf("%w: version: %v", tracker.ErrMalformedSnapshot, err)
		}
		if version > RecordVersion {
			return tracker.Snapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
	}
	if raw, ok := fields[checksumKey]; ok {
		var want string
		if err := json.Unmarshal(raw, &want); err != nil {
			return tracker.Snapshot{}, fmt.Errorf("%w: checksum: %v", tracker.ErrMalformedSnapshot, err)
		}
		got, err := fieldsChecksum(fields)
		if err != nil {
			return tracker.Snapshot{}, fmt.Errorf("%w: %v", tracker.ErrMalformedSnapshot, err)
		}
		if got != want {
			return tracker.Snapshot{}, ErrChecksumMismatch
		}
	}

	var rec legacyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return tracker.Snapshot{}, fmt.Errorf("%w: %v", tracker.ErrMalformedSnapshot, err)
	}
	snap := rec.Snapshot
	if snap.Turn == 0 && rec.TurnCount != nil {
		snap.Turn = *rec.TurnCount
	}
	if snap.EventLog == nil {
		snap.EventLog = rec.GameLog
	}
	if snap.MatchHistory == nil {
		snap.MatchHistory = rec.GameHistory
	}

	if err := snap.Normalize(); err != nil {
		return tracker.Snapshot{}, err
	}
	return snap, nil
}
