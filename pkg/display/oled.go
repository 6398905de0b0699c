package display

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
)

type panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
	Halt() error
}

// OLED is the hardware display: an SSD1306 panel on the I2C bus.
type OLED struct {
	dev    panel
	canvas *Canvas
}

func NewOLED(bus i2c.Bus, width, height int, bg, fg color.Color) (*OLED, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: width, H: height, Sequential: height <= 32})
	if err != nil {
		return nil, fmt.Errorf("ssd1306: %w", err)
	}
	return newOLED(dev, bg, fg), nil
}

func newOLED(dev panel, bg, fg color.Color) *OLED {
	b := dev.Bounds()
	return &OLED{dev: dev, canvas: NewCanvas(b.Dx(), b.Dy(), bg, fg)}
}

func (o *OLED) Render(text string, at image.Point) error {
	o.canvas.Compose(text, at)
	if err := o.dev.Draw(o.dev.Bounds(), o.canvas.Image(), image.Point{}); err != nil {
		return fmt.Errorf("oled draw: %w", err)
	}
	return nil
}

// WaitKey returns at once; the panel has no input.
func (o *OLED) WaitKey(time.Duration) Key { return NoKey }

func (o *OLED) Bounds() image.Rectangle { return o.canvas.Bounds() }
func (o *OLED) Content() string         { return o.canvas.Text() }
func (o *OLED) Close() error            { return o.dev.Halt() }
