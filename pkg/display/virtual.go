package display

import (
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type frameMsg string

// Virtual is the substitute display: the canvas shown in a terminal window,
// two pixel rows per text row.
type Virtual struct {
	mu      sync.Mutex
	canvas  *Canvas
	program *tea.Program
	keys    chan Key
	done    chan struct{}
	err     error
}

func NewVirtual(width, height int, title string, bg, fg color.Color, opts ...tea.ProgramOption) *Virtual {
	v := &Virtual{
		canvas: NewCanvas(width, height, bg, fg),
		keys:   make(chan Key, 16),
		done:   make(chan struct{}),
	}
	m := windowModel{title: title, frame: halfBlocks(v.canvas.Image()), keys: v.keys}
	v.program = tea.NewProgram(m, opts...)
	go func() {
		defer close(v.done)
		if _, err := v.program.Run(); err != nil {
			v.err = err
		}
	}()
	return v
}

func (v *Virtual) Render(text string, at image.Point) error {
	v.mu.Lock()
	v.canvas.Compose(text, at)
	frame := halfBlocks(v.canvas.Image())
	v.mu.Unlock()

	select {
	case <-v.done:
		return v.err
	default:
	}
	v.program.Send(frameMsg(frame))
	return nil
}

func (v *Virtual) WaitKey(timeout time.Duration) Key {
	if timeout <= 0 {
		select {
		case k := <-v.keys:
			return k
		default:
			return NoKey
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case k := <-v.keys:
		return k
	case <-t.C:
		return NoKey
	}
}

func (v *Virtual) Bounds() image.Rectangle { return v.canvas.Bounds() }

func (v *Virtual) Content() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.canvas.Text()
}

func (v *Virtual) Close() error {
	v.program.Quit()
	<-v.done
	return v.err
}

type windowModel struct {
	title string
	frame string
	keys  chan<- Key
}

func (m windowModel) Init() tea.Cmd { return nil }

func (m windowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = string(msg)
	case tea.KeyMsg:
		select {
		case m.keys <- keyCode(msg):
		default:
			// nobody is waiting; drop
		}
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (m windowModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(m.title),
		frameStyle.Render(m.frame),
		hintStyle.Render("q/esc: quit"),
	) + "\n"
}

func keyCode(msg tea.KeyMsg) Key {
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			return Key(msg.Runes[0])
		}
	case tea.KeySpace:
		return ' '
	case tea.KeyEnter:
		return KeyEnter
	case tea.KeyEsc:
		return KeyEscape
	case tea.KeyCtrlC:
		return KeyInterrupt
	}
	return KeyUnknown
}

// halfBlocks draws img with upper half blocks: foreground is the even pixel
// row, background the odd one. Runs of equal colors share one style.
func halfBlocks(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		var runTop, runBottom string
		n := 0
		flush := func() {
			if n == 0 {
				return
			}
			st := lipgloss.NewStyle().Foreground(lipgloss.Color(runTop)).Background(lipgloss.Color(runBottom))
			sb.WriteString(st.Render(strings.Repeat("▀", n)))
			n = 0
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			if n > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			n++
		}
		flush()
	}
	return sb.String()
}
