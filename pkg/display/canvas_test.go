package display

import (
	"image"
	"image/color"
	"testing"
)

var (
	black = color.RGBA{A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func litPixels(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if cr, _, _, _ := img.At(x, y).RGBA(); cr > 0x8000 {
				n++
			}
		}
	}
	return n
}

func TestCanvasComposeClearsAndDraws(t *testing.T) {
	c := NewCanvas(128, 32, black, white)
	if c.Bounds() != image.Rect(0, 0, 128, 32) {
		t.Fatalf("bounds: %v", c.Bounds())
	}
	if n := litPixels(c.Image(), c.Bounds()); n != 0 {
		t.Fatalf("new canvas should be blank, %d pixels lit", n)
	}

	c.Compose("T:25.00 C", image.Point{})
	if n := litPixels(c.Image(), c.Bounds()); n == 0 {
		t.Fatalf("text not drawn")
	}
	if c.Text() != "T:25.00 C" {
		t.Fatalf("text: %q", c.Text())
	}

	c.Compose("", image.Point{})
	if n := litPixels(c.Image(), c.Bounds()); n != 0 {
		t.Fatalf("compose should clear the previous frame, %d pixels lit", n)
	}
}

func TestCanvasMultilineAndOffset(t *testing.T) {
	c := NewCanvas(128, 32, black, white)
	c.Compose("A\nB", image.Point{})
	top := litPixels(c.Image(), image.Rect(0, 0, 128, 13))
	bottom := litPixels(c.Image(), image.Rect(0, 13, 128, 26))
	if top == 0 || bottom == 0 {
		t.Fatalf("each line should be drawn on its own row: top=%d bottom=%d", top, bottom)
	}

	c.Compose("X", image.Pt(64, 0))
	if n := litPixels(c.Image(), image.Rect(0, 0, 64, 32)); n != 0 {
		t.Fatalf("offset text leaked left of x=64: %d pixels", n)
	}
	if n := litPixels(c.Image(), image.Rect(64, 0, 128, 32)); n == 0 {
		t.Fatalf("offset text missing")
	}
}

func TestCanvasComposeIdempotent(t *testing.T) {
	c := NewCanvas(64, 16, black, white)
	c.Compose("hello", image.Point{})
	first := append([]byte(nil), c.img.Pix...)
	c.Compose("hello", image.Point{})
	if string(first) != string(c.img.Pix) {
		t.Fatalf("rendering the same text twice changed the frame")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#ffffff", white, true},
		{"000000", black, true},
		{"#f00", color.RGBA{R: 0xff, A: 0xff}, true},
		{"#12345", color.RGBA{}, false},
		{"#gggggg", color.RGBA{}, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseColor(%q) ok=%v err=%v", tt.in, tt.ok, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseColor(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
	if got := hexColor(color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}); got != "#123456" {
		t.Fatalf("hexColor: %q", got)
	}
}
