package emulator

import "strings"

const (
	consoleColumns = 30
	consoleRows    = 20
)

// console is an append-only text console that wraps at consoleColumns. The
// whole scrollback is kept; the screen shows the tail.
type console struct {
	lines []string
	cur   strings.Builder
}

func newConsole() *console {
	return &console{}
}

func (c *console) Write(p []byte) (int, error) {
	for _, r := range string(p) {
		switch r {
		case '\n':
			c.newline()
		case '\r':
			// ignored
		default:
			if c.cur.Len() >= consoleColumns {
				c.newline()
			}
			c.cur.WriteRune(r)
		}
	}
	return len(p), nil
}

func (c *console) newline() {
	c.lines = append(c.lines, c.cur.String())
	c.cur.Reset()
}

// Lines returns every completed line followed by the line being written
func (c *console) Lines() []string {
	out := make([]string, 0, len(c.lines)+1)
	out = append(out, c.lines...)
	return append(out, c.cur.String())
}

// Tail returns at most n of the most recent lines
func (c *console) Tail(n int) []string {
	lines := c.Lines()
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func (c *console) String() string {
	return strings.Join(c.Lines(), "\n")
}
