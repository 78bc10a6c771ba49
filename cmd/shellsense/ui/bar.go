package ui

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProbabilityBar draws p as a filled bar of the given width followed by the
// percentage, coloured by RiskColor.
func ProbabilityBar(p float64, width int) string {
	p = math.Max(0, math.Min(1, p))
	width = max(width, 1)
	filled := int(math.Round(p * float64(width)))

	style := lipgloss.NewStyle().Foreground(RiskColor(p))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return style.Render(bar) + " " + style.Bold(true).Render(Percent(p))
}

// Percent formats p with one decimal, e.g. 66.7%.
func Percent(p float64) string {
	return strconv.FormatFloat(p*100, 'f', 1, 64) + "%"
}
