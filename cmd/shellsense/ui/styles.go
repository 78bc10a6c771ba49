// Package ui provides the visual styling for the shellsense terminal UI.
// Light and dark palettes are selected from config or detected from the terminal.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f5f3ef") // Warm paper
	LightForeground = lipgloss.Color("#1f1b16") // Near black
	LightPrimary    = lipgloss.Color("#5b3a29") // Walnut
	LightAccent     = lipgloss.Color("#b8860b") // Brass
	LightSecondary  = lipgloss.Color("#e8e2d8")
	LightMuted      = lipgloss.Color("#8c8377")
	LightBorder     = lipgloss.Color("#d8d0c4")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#141210")
	DarkForeground = lipgloss.Color("#ece6dc")
	DarkPrimary    = lipgloss.Color("#e0b050") // Brass (flipped)
	DarkAccent     = lipgloss.Color("#c9a25a")
	DarkSecondary  = lipgloss.Color("#26221d")
	DarkMuted      = lipgloss.Color("#6f675c")
	DarkBorder     = lipgloss.Color("#3a342c")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#43a047") // Green
	Warning     = lipgloss.Color("#fb8c00") // Orange
	Info        = lipgloss.Color("#1e88e5") // Blue
)

// Probability thresholds for the live-shell colour.
const (
	LowRisk  = 0.4
	HighRisk = 0.7
)

// Theme holds the current color scheme
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// ThemeByName returns the named theme. Anything other than light or dark
// falls back to DetectTheme.
func ThemeByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	}
	return DetectTheme()
}

// DetectTheme guesses from COLORFGBG and SHELLSENSE_DARK_MODE, defaulting to light.
func DetectTheme() Theme {
	// Format is usually "foreground;background"
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil {
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return DarkTheme()
			}
		}
	}
	if os.Getenv("SHELLSENSE_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Panel   lipgloss.Style
	Content lipgloss.Style

	// Text
	Title lipgloss.Style
	Body  lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style

	// Interactive
	Prompt  lipgloss.Style
	Command lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Shells
	Live    lipgloss.Style
	Blank   lipgloss.Style
	Unknown lipgloss.Style
	Current lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Content: lipgloss.NewStyle().
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Command: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Live: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Blank: lipgloss.NewStyle().
			Foreground(Info),

		Unknown: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Current: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	return s.Divider.Render(strings.Repeat("─", max(width, 0)))
}

// RiskColor maps a live probability to green, orange or red.
func RiskColor(p float64) lipgloss.Color {
	switch {
	case p < LowRisk:
		return Success
	case p < HighRisk:
		return Warning
	default:
		return Destructive
	}
}
