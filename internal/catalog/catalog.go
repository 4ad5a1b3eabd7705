// Package catalog holds the static format, theme and mana color catalogs.
//
// Entries are referenced by id everywhere else. Lookups report whether the id
// was found; the *OrDefault helpers fall back to the first catalog entry so
// snapshots written against an older catalog still restore.
package catalog

// Format is a ruleset profile fixing starting life and the legal roster sizes.
type Format struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	StartingLife        int    `json:"startingLife"`
	AllowedPlayerCounts []int  `json:"allowedPlayerCounts"`
	// CommanderDamage reports whether the format tracks per-opponent commander damage.
	CommanderDamage bool `json:"commanderDamage"`
}

// MinPlayers is the smallest roster any format accepts.
const MinPlayers = 2

// MaxPlayers returns the largest allowed roster size for the format.
func (f Format) MaxPlayers() int {
	max := MinPlayers
	for _, n := range f.AllowedPlayerCounts {
		if n > max {
			max = n
		}
	}
	return max
}

// Theme is a cosmetic palette. The core only ever inspects its id.
type Theme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Color is one of the five mana color identities.
type Color string

const (
	ColorWhite Color = "W"
	ColorBlue  Color = "U"
	ColorBlack Color = "B"
	ColorRed   Color = "R"
	ColorGreen Color = "G"
)

var colorNames = map[Color]string{
	ColorWhite: "Plains",
	ColorBlue:  "Island",
	ColorBlack: "Swamp",
	ColorRed:   "Mountain",
	ColorGreen: "Forest",
}

// Name returns the basic land name associated with the color.
func (c Color) Name() string {
	if name, ok := colorNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether c belongs to the color enumeration.
func (c Color) Valid() bool {
	_, ok := colorNames[c]
	return ok
}

// Colors is the color enumeration in assignment order.
var Colors = []Color{ColorWhite, ColorBlue, ColorBlack, ColorRed, ColorGreen}

// ColorForPlayer cycles the enumeration by player id: (id-1) mod 5.
func ColorForPlayer(id int) Color {
	idx := (id - 1) % len(Colors)
	if idx < 0 {
		idx += len(Colors)
	}
	return Colors[idx]
}

var formats = []Format{
	{ID: "commander", Name: "Commander", StartingLife: 40, AllowedPlayerCounts: []int{2, 3, 4, 5, 6}, CommanderDamage: true},
	{ID: "standard", Name: "Standard", StartingLife: 20, AllowedPlayerCounts: []int{2}},
	{ID: "modern", Name: "Modern", StartingLife: 20, AllowedPlayerCounts: []int{2}},
	{ID: "draft", Name: "Draft", StartingLife: 20, AllowedPlayerCounts: []int{2}},
	{ID: "brawl", Name: "Brawl", StartingLife: 25, AllowedPlayerCounts: []int{2, 3, 4}},
	{ID: "two_headed", Name: "Two-Headed Giant", StartingLife: 30, AllowedPlayerCounts: []int{4}},
}

var themes = []Theme{
	{ID: "obsidian", Name: "Obsidian"},
	{ID: "blood", Name: "Blood Moon"},
	{ID: "azorius", Name: "Azorius"},
	{ID: "golgari", Name: "Golgari"},
	{ID: "orzhov", Name: "Orzhov"},
}

// Formats returns a copy of the format catalog in display order.
func Formats() []Format {
	out := make([]Format, len(formats))
	for i, f := range formats {
		f.AllowedPlayerCounts = append([]int(nil), f.AllowedPlayerCounts...)
		out[i] = f
	}
	return out
}

// Themes returns a copy of the theme catalog in display order.
func Themes() []Theme {
	return append([]Theme(nil), themes...)
}

// DefaultFormat returns the first catalog format.
func DefaultFormat() Format {
	return Formats()[0]
}

// DefaultTheme returns the first catalog theme.
func DefaultTheme() Theme {
	return themes[0]
}

// LookupFormat finds a format by id.
func LookupFormat(id string) (Format, bool) {
	for _, f := range Formats() {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}

// LookupTheme finds a theme by id.
func LookupTheme(id string) (Theme, bool) {
	for _, t := range themes {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}

// FormatOrDefault resolves id, falling back to the first catalog format.
func FormatOrDefault(id string) Format {
	if f, ok := LookupFormat(id); ok {
		return f
	}
	return DefaultFormat()
}

// ThemeOrDefault resolves id, falling back to the first catalog theme.
func ThemeOrDefault(id string) Theme {
	if t, ok := LookupTheme(id); ok {
		return t
	}
	return DefaultTheme()
}
