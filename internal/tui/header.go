package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Config struct {
	App     string
	Version string
	Extras  []string // e.g. {"Press 'q' to quit", "Press 'esc' to exit"}
}

// Pastel ramp – tweak/extend to taste.
var gradient = []string{
	"#89DCEB", "#99C9F5", "#B0B0FF", "#C49FFF", "#DB8AFF",
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func Header(cfg Config, width int) string {
	return RenderFloating(cfg, width)
}

func RenderFloating(cfg Config, width int) string {
	// 1. Build the plain text (with separators)
	parts := append([]string{
		cfg.App,
		"v" + cfg.Version,
	}, cfg.Extras...)

	plain := " " + strings.Join(parts, " | ")
	runes := []rune(plain)

	// 2. Prepare column-by-column output
	var out strings.Builder
	for col := 0; col < width; col++ {
		// Pick the colour for this column
		bgCol := gradient[col*len(gradient)/max(1, width)]

		// Decide the glyph (rune or space)
		glyph := " "
		if col < len(runes) {
			glyph = string(runes[col])
		}

		// Auto-select a readable foreground (black for light bg, white for dark)
		fgCol := "#FFFFFF"
		if isLight(bgCol) {
			fgCol = "#000000"
		}

		out.WriteString(
			lipgloss.NewStyle().
				Background(lipgloss.Color(bgCol)).
				Foreground(lipgloss.Color(fgCol)).
				Bold(true).
				Render(glyph),
		)
	}
	return out.String()
}

// very cheap luminance check: good enough for pastel vs dark
func isLight(hex string) bool {
	r, g, b := hexToRGB(hex)
	// relative luminance (Rec. 709)
	l := 0.2126*r + 0.7152*g + 0.0722*b
	return l > 0.5
}
func hexToRGB(h string) (r, g, b float64) {
	x := func(s string) float64 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return float64(v) / 255
	}
	if strings.HasPrefix(h, "#") {
		h = h[1:]
	}
	switch len(h) {
	case 6:
		r, g, b = x(h[0:2]), x(h[2:4]), x(h[4:6])
	case 3: // short form #abc
		r, g, b = x(strings.Repeat(string(h[0]), 2)),
			x(strings.Repeat(string(h[1]), 2)),
			x(strings.Repeat(string(h[2]), 2))
	}
	return
}
