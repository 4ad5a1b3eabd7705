package storage

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playedMatch(t *testing.T) *tracker.Match {
	t.Helper()
	m := tracker.NewMatch(tracker.WithClock(func() time.Time {
		return time.Date(2024, 1, 2, 9, 5, 0, 0, time.UTC)
	}))
	_, _, err := m.AddPlayer()
	require.NoError(t, err)
	_, err = m.UpdatePlayer(1, tracker.AdjustCommanderDamage{OpponentID: 3, Delta: 2})
	require.NoError(t, err)
	_, err = m.UpdatePlayer(2, tracker.SetPoison{Value: 3})
	require.NoError(t, err)
	_, err = m.UpdatePlayer(3, tracker.Rename{To: "Meren"})
	require.NoError(t, err)
	m.AdvanceTurn()
	m.ResetMatch()
	_, err = m.UpdatePlayer(2, tracker.AdjustLife{Delta: -4})
	require.NoError(t, err)
	m.AdjustStorm(2)
	return m
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := playedMatch(t)

	data, err := EncodeSnapshot(m.Snapshot())
	require.NoError(t, err)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	restored, err := tracker.RestoreMatch(snap)
	require.NoError(t, err)
	assert.Equal(t, m.State(), restored.State())
}

func decodeFields(t *testing.T, data []byte) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	return fields
}

func TestEncodeSnapshotWritesSnapshotKeysAtTopLevel(t *testing.T) {
	m := playedMatch(t)
	data, err := EncodeSnapshot(m.Snapshot())
	require.NoError(t, err)

	fields := decodeFields(t, data)
	for _, key := range []string{
		"themeId", "formatId", "players", "turn", "stormCount", "eventLog", "matchHistory",
		"version", "checksum",
	} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "state")
	assert.JSONEq(t, "1", string(fields["version"]))

	// A reader that only knows the snapshot keys sees the match directly.
	var plain tracker.Snapshot
	require.NoError(t, json.Unmarshal(data, &plain))
	assert.Equal(t, m.Snapshot().Players, plain.Players)
	assert.Equal(t, m.Snapshot().Turn, plain.Turn)
}

func TestEncodeSnapshotIsDeterministic(t *testing.T) {
	snap := playedMatch(t).Snapshot()
	a, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	b, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	fields := decodeFields(t, a)
	var sum string
	require.NoError(t, json.Unmarshal(fields["checksum"], &sum))
	assert.Len(t, sum, 64)
	want, err := fieldsChecksum(fields)
	require.NoError(t, err)
	assert.Equal(t, want, sum)
}

func TestDecodeSnapshotIgnoresLayout(t *testing.T) {
	m := playedMatch(t)
	data, err := EncodeSnapshot(m.Snapshot())
	require.NoError(t, err)

	var pretty bytes.Buffer
	require.NoError(t, json.Indent(&pretty, data, "", "  "))
	snap, err := DecodeSnapshot(pretty.Bytes())
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot().Players, snap.Players)
}

func TestDecodeSnapshotDetectsTampering(t *testing.T) {
	data, err := EncodeSnapshot(playedMatch(t).Snapshot())
	require.NoError(t, err)

	fields := decodeFields(t, data)
	fields["players"] = json.RawMessage(`[{"id":1,"life":999},{"id":2,"life":40}]`)
	tampered, err := json.Marshal(fields)
	require.NoError(t, err)

	_, err = DecodeSnapshot(tampered)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDecodeSnapshotRejectsNewerVersion(t *testing.T) {
	fields := map[string]json.RawMessage{
		"version": json.RawMessage(`2`),
		"players": json.RawMessage(`[{"id":1},{"id":2}]`),
	}
	sum, err := fieldsChecksum(fields)
	require.NoError(t, err)
	fields["checksum"], err = json.Marshal(sum)
	require.NoError(t, err)
	data, err := json.Marshal(fields)
	require.NoError(t, err)

	_, err = DecodeSnapshot(data)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeSnapshotAcceptsUnchecksummedRecord(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"version":1,"formatId":"modern","players":[{"id":1,"life":17},{"id":2,"life":20}],"turn":3}`))
	require.NoError(t, err)
	assert.Equal(t, "modern", snap.FormatID)
	assert.Equal(t, 17, snap.Players[0].Life)
	assert.Equal(t, 3, snap.Turn)
}

func TestDecodeSnapshotMalformed(t *testing.T) {
	for name, data := range map[string]string{
		"empty":        "",
		"not json":     "{{{",
		"array":        "[1,2,3]",
		"one player":   `{"players":[{"id":1}]}`,
		"no players":   `{"themeId":"blood"}`,
		"duplicate id": `{"players":[{"id":2},{"id":2}]}`,
		"null":         "null",
		"bad version":  `{"version":"one","players":[{"id":1},{"id":2}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(data))
			assert.ErrorIs(t, err, tracker.ErrMalformedSnapshot)
		})
	}
}

func TestDecodeLegacyRecord(t *testing.T) {
	legacy := `{
		"themeId": "blood",
		"formatId": "brawl",
		"players": [
			{"id": 1, "name": "Alice", "life": 18, "poison": 2, "energy": 1, "experience": 0, "commanderDamage": {"2": 3}, "color": "R"},
			{"id": 2, "name": "Bob", "life": 25, "poison": 0, "energy": 0, "experience": 4, "commanderDamage": {}, "color": "G"}
		],
		"turnCount": 6,
		"stormCount": 1,
		"gameLog": [
			{"action": "Turn 6", "time": "8:01:02 PM", "turn": 6},
			{"action": "Alice: 20 → 18 life", "time": "8:00:40 PM", "turn": 5}
		],
		"gameHistory": [
			{"date": "1/2/2024, 7:30:00 PM", "format": "Brawl", "players": [{"name": "Alice", "life": 0, "poison": 0}], "turns": 9, "log": [{"action": "Game reset", "time": "7:00:00 PM", "turn": 1}]}
		]
	}`

	snap, err := DecodeSnapshot([]byte(legacy))
	require.NoError(t, err)

	assert.Equal(t, "blood", snap.ThemeID)
	assert.Equal(t, "brawl", snap.FormatID)
	assert.Equal(t, 6, snap.Turn)
	assert.Equal(t, 1, snap.StormCount)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, catalog.ColorRed, snap.Players[0].Color)
	assert.Equal(t, 3, snap.Players[0].CommanderDamage.Get(2))
	require.Len(t, snap.EventLog, 2)
	assert.Equal(t, "Turn 6", snap.EventLog[0].Description)
	assert.Equal(t, "8:01:02 PM", snap.EventLog[0].Timestamp)
	require.Len(t, snap.MatchHistory, 1)
	assert.Equal(t, "Brawl", snap.MatchHistory[0].FormatName)
	assert.Equal(t, 9, snap.MatchHistory[0].TurnsPlayed)
	assert.Equal(t, "Game reset", snap.MatchHistory[0].LogExcerpt[0].Description)
}

func TestDecodeLegacyRecordFallsBackOnUnknownCatalogIDs(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"themeId":"retired","formatId":"oathbreaker","players":[{"id":1,"life":20},{"id":2,"life":20}]}`))
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultTheme().ID, snap.ThemeID)
	assert.Equal(t, catalog.DefaultFormat().ID, snap.FormatID)
	assert.Equal(t, 1, snap.Turn)
}
