package display

import (
	"errors"
	"image"
	"testing"
	"time"
)

type fakePanel struct {
	frames int
	last   image.Image
	err    error
	halted bool
}

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if p.err != nil {
		return p.err
	}
	p.frames++
	p.last = src
	return nil
}

func (p *fakePanel) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 32) }
func (p *fakePanel) Halt() error             { p.halted = true; return nil }

func TestOLEDRender(t *testing.T) {
	p := &fakePanel{}
	o := newOLED(p, black, white)
	if err := o.Render("H:54.00 %", image.Point{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if p.frames != 1 || p.last == nil {
		t.Fatalf("frame not pushed to panel")
	}
	if litPixels(p.last, p.last.Bounds()) == 0 {
		t.Fatalf("pushed frame is blank")
	}
	if o.Content() != "H:54.00 %" {
		t.Fatalf("content: %q", o.Content())
	}
	if o.Bounds() != image.Rect(0, 0, 128, 32) {
		t.Fatalf("bounds: %v", o.Bounds())
	}
	start := time.Now()
	if k := o.WaitKey(time.Second); k != NoKey {
		t.Fatalf("WaitKey: got %d", k)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("hardware WaitKey should not block")
	}
	if err := o.Close(); err != nil || !p.halted {
		t.Fatalf("Close: err=%v halted=%v", err, p.halted)
	}
}

func TestOLEDRenderError(t *testing.T) {
	p := &fakePanel{err: errors.New("i2c nack")}
	o := newOLED(p, black, white)
	if err := o.Render("x", image.Point{}); err == nil {
		t.Fatalf("expected draw error")
	}
}
