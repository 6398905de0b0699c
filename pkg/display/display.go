// Package display renders the status text on a fixed-size canvas and shows
// it either on an SSD1306 panel or in a terminal window.
package display

import (
	"image"
	"sync"
	"time"
)

// Key is a key code from the substitute window, or NoKey.
type Key int

const (
	NoKey        Key = -1
	KeyUnknown   Key = 0
	KeyInterrupt Key = 3
	KeyEnter     Key = 13
	KeyEscape    Key = 27
)

// IsQuit reports whether k asks the loop to stop.
func IsQuit(k Key) bool {
	return k == 'q' || k == KeyEscape || k == KeyInterrupt
}

// Surface is a display that owns a single canvas. Render clears the whole
// canvas, draws text at the offset and presents it. Implementations are not
// safe for concurrent Render calls; wrap them in Shared.
type Surface interface {
	Render(text string, at image.Point) error
	// WaitKey blocks up to timeout for a key press. Surfaces without
	// input return NoKey immediately.
	WaitKey(timeout time.Duration) Key
	Bounds() image.Rectangle
	Content() string
	Close() error
}

// Shared serializes renders from the control loop and the command handler
// onto one Surface, so a frame is never torn between two writers.
type Shared struct {
	mu sync.Mutex
	s  Surface
}

func NewShared(s Surface) *Shared { return &Shared{s: s} }

func (d *Shared) Render(text string, at image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.s.Render(text, at)
}

// WaitKey does not hold the render lock, so a command can be drawn while
// the loop is waiting.
func (d *Shared) WaitKey(timeout time.Duration) Key { return d.s.WaitKey(timeout) }

func (d *Shared) Bounds() image.Rectangle { return d.s.Bounds() }

func (d *Shared) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.s.Content()
}

func (d *Shared) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.s.Close()
}
