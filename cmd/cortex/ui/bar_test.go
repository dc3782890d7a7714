package ui

import (
	"strings"
	"testing"
)

func TestFilledCells(t *testing.T) {
	cases := []struct {
		percent float64
		width   int
		want    int
	}{
		{0, 20, 0},
		{100, 20, 20},
		{50, 20, 10},
		{49, 20, 9},    // floor, not round
		{99.9, 20, 19}, // floor below full
		{-5, 20, 0},
		{150, 20, 20},
	}
	for _, tc := range cases {
		if got := FilledCells(tc.percent, tc.width); got != tc.want {
			t.Errorf("FilledCells(%v, %d) = %d, want %d", tc.percent, tc.width, got, tc.want)
		}
	}
}

func TestRenderBarWidthIsFixed(t *testing.T) {
	s := NewStyles(LightTheme())
	for _, percent := range []float64{0, 33.3, 50, 100} {
		bar := s.RenderBarWidth(percent, BarWidth)
		plain := stripANSI(bar)
		if len([]rune(plain)) != BarWidth {
			t.Errorf("bar at %v%% has width %d, want %d", percent, len([]rune(plain)), BarWidth)
		}
	}
}

func TestRenderBarFillMatchesRule(t *testing.T) {
	s := NewStyles(LightTheme())
	bar := stripANSI(s.RenderBarWidth(50, 20))
	filled := strings.Count(bar, "█")
	if filled != 10 {
		t.Errorf("50%% bar has %d filled cells, want 10", filled)
	}
}

func TestThresholdOrdering(t *testing.T) {
	if WarningThreshold >= CriticalThreshold {
		t.Error("warning threshold must be below critical")
	}
}

// stripANSI removes terminal escape sequences for width assertions.
func stripANSI(s string) string {
	var sb strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
