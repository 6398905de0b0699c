package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is a fixed-size image holding the current frame.
type Canvas struct {
	img  *image.RGBA
	bg   *image.Uniform
	fg   *image.Uniform
	face font.Face
	text string
}

func NewCanvas(width, height int, bg, fg color.Color) *Canvas {
	c := &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		bg:   image.NewUniform(bg),
		fg:   image.NewUniform(fg),
		face: basicfont.Face7x13,
	}
	c.Compose("", image.Point{})
	return c
}

// Compose clears the canvas to the background and draws text at the
// offset, one line per newline. Text past the edges is clipped.
func (c *Canvas) Compose(text string, at image.Point) {
	draw.Draw(c.img, c.img.Bounds(), c.bg, image.Point{}, draw.Src)

	m := c.face.Metrics()
	ascent := m.Ascent.Ceil()
	lineHeight := m.Height.Ceil()
	d := &font.Drawer{Dst: c.img, Src: c.fg, Face: c.face}
	for i, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(at.X, at.Y+ascent+i*lineHeight)
		d.DrawString(line)
	}
	c.text = text
}

func (c *Canvas) Image() image.Image     { return c.img }
func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }
func (c *Canvas) Text() string            { return c.text }

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
