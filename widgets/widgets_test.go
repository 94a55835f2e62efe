package widgets

import (
	"strings"
	"testing"
)

func TestRenderBar(t *testing.T) {
	tests := []struct {
		n, width int
		want     string
	}{
		{0, 4, "····"},
		{2, 4, "██··"},
		{4, 4, "████"},
		{9, 4, "████"},
		{-3, 4, "····"},
	}
	for _, tt := range tests {
		if got := RenderBar(tt.n, tt.width); got != tt.want {
			t.Errorf("RenderBar(%d, %d) = %q, want %q", tt.n, tt.width, got, tt.want)
		}
	}
}

func TestRenderSparkline(t *testing.T) {
	got := RenderSparkline([]uint16{0, 65535, 32767}, 65535)
	if got != "▁█▄" {
		t.Fatalf("got %q", got)
	}
	if RenderSparkline([]uint16{5}, 0) != "█" {
		t.Fatal("zero max not handled")
	}
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{
		{Title: "Clock", Keys: []KeyBinding{{Key: "p", Desc: "start/stop"}}},
	})
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || lines[0] != "Clock" {
		t.Fatalf("got %q", out)
	}
	if !strings.HasPrefix(lines[1], "  p ") || !strings.HasSuffix(lines[1], "start/stop") {
		t.Fatalf("binding line %q", lines[1])
	}
}

func TestRgbToHex(t *testing.T) {
	if got := rgbToHex([3]uint8{255, 16, 0}); got != "#ff1000" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderLEDRow(t *testing.T) {
	row := RenderLEDRow([3]uint8{255, 0, 0}, []bool{true, false, true})
	if n := strings.Count(row, "■"); n != 3 {
		t.Fatalf("got %d LEDs in %q", n, row)
	}
	if RenderLEDRow([3]uint8{}, nil) != "" {
		t.Fatal("empty row not empty")
	}
}
