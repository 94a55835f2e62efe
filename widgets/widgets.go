package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkline levels, lowest first
var sparks = []rune("▁▂▃▄▅▆▇█")

// RenderLED renders a single indicator, lit or dim
func RenderLED(color [3]uint8, on bool) string {
	if !on {
		color = [3]uint8{color[0] / 5, color[1] / 5, color[2] / 5}
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color)))
	return style.Render("■")
}

// RenderLEDRow renders a row of indicators with spacing
func RenderLEDRow(color [3]uint8, on []bool) string {
	var out strings.Builder
	for i, o := range on {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(RenderLED(color, o))
	}
	return out.String()
}

// RenderBar renders n filled cells of a width cell bar
func RenderBar(n, width int) string {
	n = min(max(n, 0), width)
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}

// RenderSparkline renders values scaled against maxValue, one cell each
func RenderSparkline(values []uint16, maxValue uint16) string {
	if maxValue == 0 {
		maxValue = 1
	}
	var out strings.Builder
	for _, v := range values {
		i := int(v) * (len(sparks) - 1) / int(maxValue)
		out.WriteRune(sparks[min(i, len(sparks)-1)])
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
