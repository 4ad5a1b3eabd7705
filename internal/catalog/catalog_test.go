package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMaxPlayers(t *testing.T) {
	commander, ok := LookupFormat("commander")
	require.True(t, ok)
	assert.Equal(t, 6, commander.MaxPlayers())

	standard, ok := LookupFormat("standard")
	require.True(t, ok)
	assert.Equal(t, 2, standard.MaxPlayers())

	assert.Equal(t, MinPlayers, Format{}.MaxPlayers(), "empty allowed list still admits the minimum roster")
}

func TestFormatCatalogHasTwoPlayerEntry(t *testing.T) {
	found := false
	for _, f := range Formats() {
		for _, n := range f.AllowedPlayerCounts {
			if n == 2 {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestLookupFallsBackToFirstEntry(t *testing.T) {
	assert.Equal(t, "commander", FormatOrDefault("vintage").ID)
	assert.Equal(t, "brawl", FormatOrDefault("brawl").ID)
	assert.Equal(t, "obsidian", ThemeOrDefault("").ID)
	assert.Equal(t, "golgari", ThemeOrDefault("golgari").ID)

	_, ok := LookupTheme("missing")
	assert.False(t, ok)
}

func TestFormatsReturnsCopy(t *testing.T) {
	list := Formats()
	list[0].AllowedPlayerCounts[0] = 99
	list[0].StartingLife = 1

	f := DefaultFormat()
	assert.Equal(t, 40, f.StartingLife)
	assert.Equal(t, 2, f.AllowedPlayerCounts[0])
}

func TestColorForPlayerCycles(t *testing.T) {
	cases := map[int]Color{
		1: ColorWhite,
		2: ColorBlue,
		3: ColorBlack,
		4: ColorRed,
		5: ColorGreen,
		6: ColorWhite,
		12: ColorBlue,
	}
	for id, want := range cases {
		assert.Equal(t, want, ColorForPlayer(id), "player %d", id)
	}
}

func TestColorValid(t *testing.T) {
	assert.True(t, ColorRed.Valid())
	assert.Equal(t, "Mountain", ColorRed.Name())
	assert.False(t, Color("C").Valid())
	assert.Equal(t, "UNKNOWN", Color("C").Name())
}
