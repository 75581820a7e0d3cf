// Package tui is an interactive operator front-end for the keypad test.
//
// Terminals only report key presses, never releases, so every button is a
// toggle: press "a" once to hold A, press it again to let go.
package tui

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sema/keyirq/pkg/emulator"
	"github.com/sema/keyirq/pkg/keyirq"
	"github.com/sema/keyirq/pkg/keypad"
)

// Toggles is an operator whose held buttons are switched from the keyboard.
// It is safe for concurrent use.
type Toggles struct {
	mu   sync.Mutex
	held keypad.Key
}

func NewToggles() *Toggles {
	return &Toggles{}
}

// Toggle presses a released button or releases a held one
func (t *Toggles) Toggle(k keypad.Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held ^= k
}

// Held returns the buttons currently held
func (t *Toggles) Held() keypad.Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.held
}

func (t *Toggles) Input(frame uint64, console []string) keypad.KeyMask {
	return keypad.Held(t.Held())
}

var bindings = map[string]keypad.Key{
	"a":     keypad.KeyA,
	"b":     keypad.KeyB,
	"s":     keypad.KeySelect,
	"enter": keypad.KeyStart,
	"right": keypad.KeyRight,
	"left":  keypad.KeyLeft,
	"up":    keypad.KeyUp,
	"down":  keypad.KeyDown,
	"r":     keypad.KeyR,
	"l":     keypad.KeyL,
}

type frameMsg emulator.Frame

type resultMsg keyirq.Result

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
	heldStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd75f"))
	passStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5fd75f"))
	failStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
)

// Model is the bubbletea model of the front-end
type Model struct {
	frames  <-chan emulator.Frame
	results <-chan keyirq.Result
	keys    *Toggles

	frame  emulator.Frame
	result *keyirq.Result
}

// New shows frames as they are published and the verdict once the test
// completes. Key presses toggle buttons on keys.
func New(frames <-chan emulator.Frame, results <-chan keyirq.Result, keys *Toggles) Model {
	return Model{
		frames:  frames,
		results: results,
		keys:    keys,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForFrame(m.frames), waitForResult(m.results))
}

func waitForFrame(frames <-chan emulator.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

func waitForResult(results <-chan keyirq.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-results
		if !ok {
			return nil
		}
		return resultMsg(r)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		if k, ok := bindings[msg.String()]; ok {
			m.keys.Toggle(k)
		}
		return m, nil

	case frameMsg:
		m.frame = emulator.Frame(msg)
		return m, waitForFrame(m.frames)

	case resultMsg:
		r := keyirq.Result(msg)
		m.result = &r
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("keypad interrupt test"))
	b.WriteString("\n\n")
	b.WriteString(m.screen())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "frame %d   held: %s\n", m.frame.Number, heldStyle.Render(m.keys.Held().String()))

	if m.result != nil {
		verdict := passStyle.Render(fmt.Sprintf("PASSED %d/%d", m.result.Steps, m.result.Steps))
		if !m.result.Passed() {
			verdict = failStyle.Render(fmt.Sprintf("FAILED %d/%d", m.result.Failures, m.result.Steps))
		}
		b.WriteString(verdict + "\n")
	}

	b.WriteString(helpStyle.Render("a/b/s/enter/arrows/l/r toggle buttons • q quit"))
	return b.String()
}

// screen renders the console tail on the backdrop colour
func (m Model) screen() string {
	lines := m.frame.Console
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Width(32).
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(backdropHex(m.frame.Backdrop))).
		Render(strings.Join(lines, "\n"))
}

func backdropHex(c uint16) string {
	rgba := emulator.PaletteColor(c)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}
