package styles

import "github.com/charmbracelet/lipgloss"

// Theme defines a complete color scheme for the application
type Theme struct {
	Name string
	// Dark selects the glamour style used for replies.
	Dark bool

	// Core colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Background colors
	BgSurface  lipgloss.Color
	BgElevated lipgloss.Color
	BgSelected lipgloss.Color

	// Text colors
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color
	TextInverse   lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Border lipgloss.Color

	// Per-model accents
	ModelOne lipgloss.Color
	ModelTwo lipgloss.Color
}

// ModernTheme is the default scheme
var ModernTheme = Theme{
	Name:      "modern",
	Dark:      true,
	Primary:   lipgloss.Color("#B39DDB"),
	Secondary: lipgloss.Color("#90CAF9"),
	Accent:    lipgloss.Color("#FFCC80"),

	BgSurface:  lipgloss.Color("#141419"),
	BgElevated: lipgloss.Color("#1E1E2A"),
	BgSelected: lipgloss.Color("#5C5C7A"),

	TextPrimary:   lipgloss.Color("#E0E0E0"),
	TextSecondary: lipgloss.Color("#888888"),
	TextMuted:     lipgloss.Color("#545454"),
	TextInverse:   lipgloss.Color("#FFFFFF"),

	Success: lipgloss.Color("#A5D6A7"),
	Warning: lipgloss.Color("#FFF59D"),
	Error:   lipgloss.Color("#EF9A9A"),

	Border: lipgloss.Color("#333333"),

	ModelOne: lipgloss.Color("#90CAF9"),
	ModelTwo: lipgloss.Color("#CE93D8"),
}

// DarkTheme is a higher contrast dark scheme
var DarkTheme = Theme{
	Name:      "dark",
	Dark:      true,
	Primary:   lipgloss.Color("#818CF8"), // Indigo 400
	Secondary: lipgloss.Color("#22D3EE"), // Cyan 400
	Accent:    lipgloss.Color("#F472B6"), // Pink 400

	BgSurface:  lipgloss.Color("#0B0B0F"),
	BgElevated: lipgloss.Color("#1E1E2A"),
	BgSelected: lipgloss.Color("#312E81"),

	TextPrimary:   lipgloss.Color("#F1F5F9"), // Slate 100
	TextSecondary: lipgloss.Color("#94A3B8"), // Slate 400
	TextMuted:     lipgloss.Color("#64748B"), // Slate 500
	TextInverse:   lipgloss.Color("#FFFFFF"),

	Success: lipgloss.Color("#34D399"), // Emerald 400
	Warning: lipgloss.Color("#FBBF24"), // Amber 400
	Error:   lipgloss.Color("#FB7185"), // Rose 400

	Border: lipgloss.Color("#27272A"), // Zinc 800

	ModelOne: lipgloss.Color("#22D3EE"),
	ModelTwo: lipgloss.Color("#A78BFA"),
}

// LightTheme is the light mode color scheme
var LightTheme = Theme{
	Name:      "light",
	Dark:      false,
	Primary:   lipgloss.Color("#4F46E5"), // Indigo 600
	Secondary: lipgloss.Color("#0891B2"), // Cyan 600
	Accent:    lipgloss.Color("#DB2777"), // Pink 600

	BgSurface:  lipgloss.Color("#FFFFFF"),
	BgElevated: lipgloss.Color("#F4F4F5"), // Zinc 100
	BgSelected: lipgloss.Color("#C7D2FE"),

	TextPrimary:   lipgloss.Color("#18181B"), // Zinc 900
	TextSecondary: lipgloss.Color("#52525B"), // Zinc 600
	TextMuted:     lipgloss.Color("#A1A1AA"), // Zinc 400
	TextInverse:   lipgloss.Color("#FFFFFF"),

	Success: lipgloss.Color("#10B981"),
	Warning: lipgloss.Color("#F59E0B"),
	Error:   lipgloss.Color("#EF4444"),

	Border: lipgloss.Color("#E4E4E7"), // Zinc 200

	ModelOne: lipgloss.Color("#0891B2"),
	ModelTwo: lipgloss.Color("#7C3AED"),
}

// Themes lists the selectable schemes in cycling order.
var Themes = []Theme{ModernTheme, DarkTheme, LightTheme}

// CurrentTheme holds the active theme
var CurrentTheme = ModernTheme

// Lookup returns the theme called name.
func Lookup(name string) (Theme, bool) {
	for _, t := range Themes {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}

// Next returns the name of the theme after name, wrapping around.
func Next(name string) string {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)].Name
		}
	}
	return Themes[0].Name
}

// Apply makes name the current theme and rebuilds every style. Unknown names
// fall back to the default theme.
func Apply(name string) Theme {
	t, ok := Lookup(name)
	if !ok {
		t = ModernTheme
	}
	CurrentTheme = t
	build(t)
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t Theme) GlamourStyle() string {
	if t.Dark {
		return "dark"
	}
	return "light"
}

// ModelColor returns the accent of the model slot with the given index (0 or 1).
func ModelColor(slot int) lipgloss.Color {
	if slot == 0 {
		return CurrentTheme.ModelOne
	}
	return CurrentTheme.ModelTwo
}
