package ui

import "strings"

// BarWidth is the fixed width of utilization bars.
const BarWidth = 20

// Utilization thresholds controlling the bar color.
const (
	WarningThreshold  = 60.0
	CriticalThreshold = 85.0
)

// RenderBar draws a fixed-width utilization bar: floor(percent/100 × W)
// filled cells, colored green/yellow/red by the thresholds.
func (s Styles) RenderBar(percent float64) string {
	return s.RenderBarWidth(percent, BarWidth)
}

// RenderBarWidth draws a utilization bar of a specific width.
func (s Styles) RenderBarWidth(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}

	style := s.BarOK
	switch {
	case percent >= CriticalThreshold:
		style = s.BarCrit
	case percent >= WarningThreshold:
		style = s.BarWarn
	}

	return style.Render(strings.Repeat("█", filled)) +
		s.BarEmpty.Render(strings.Repeat("░", width-filled))
}

// FilledCells reports how many cells of a width-w bar are filled for a
// percentage. Split out so the rule is testable without styling.
func FilledCells(percent float64, width int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	return int(percent / 100 * float64(width))
}
