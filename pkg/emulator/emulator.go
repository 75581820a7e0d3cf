package emulator

import (
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
	"github.com/sema/keyirq/pkg/keypad"
)

// framePeriod is 280896 cycles at 16.78MHz
const framePeriod = 16743 * time.Microsecond

// Operator decides which buttons are physically held during a frame. It is
// polled once per frame with the console contents as shown on screen.
type Operator interface {
	Input(frame uint64, console []string) keypad.KeyMask
}

// OperatorFunc adapts a function to the Operator interface
type OperatorFunc func(frame uint64, console []string) keypad.KeyMask

func (f OperatorFunc) Input(frame uint64, console []string) keypad.KeyMask {
	return f(frame, console)
}

// Frame is published on FrameChan after every emulated frame
type Frame struct {
	Number   uint64
	Input    keypad.KeyMask
	Backdrop uint16
	Console  []string
}

type options struct {
	speedUncapped bool
	operator      Operator
	logger        log.Logger
}

type Option func(o *options)

// WithSpeedUncapped runs frames as fast as the program waits for them
func WithSpeedUncapped() Option {
	return func(o *options) {
		o.speedUncapped = true
	}
}

func WithOperator(op Operator) Option {
	return func(o *options) {
		o.operator = op
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Machine simulates the keypad, interrupt controller, frame clock, palette
// and text console of the handheld. The test program runs on its own
// goroutine and talks to the machine through the register accessors; Run
// advances frames whenever the program halts in WaitNext.
type Machine struct {
	mu sync.Mutex

	memory    *memory
	interrupt *interruptController
	keypad    *keypadController
	video     *videoController
	console   *console

	vblankServiced bool

	halted chan struct{}
	wake   chan struct{}

	// FrameChan receives the latest frame. Stale frames are dropped if the
	// reader falls behind.
	FrameChan chan Frame

	options options
}

func New(opts ...Option) *Machine {
	o := options{
		logger: log.Base(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	interrupt := newInterruptController()
	kp := newKeypadController()
	video := newVideoController()

	m := &Machine{
		memory:    newMemory(o.logger, interrupt, kp, video),
		interrupt: interrupt,
		keypad:    kp,
		video:     video,
		console:   newConsole(),
		halted:    make(chan struct{}),
		wake:      make(chan struct{}),
		FrameChan: make(chan Frame, 1),
		options:   o,
	}

	interrupt.registerSource(irqVBlank, video.Interrupt)
	interrupt.registerSource(irqKeypad, kp.Interrupt)
	interrupt.registerHandler(irqVBlank, func(i *interruptController) {
		i.interruptFlag = writeBitN(i.interruptFlag, irqVBlank, false)
		m.vblankServiced = true
	})

	// Interrupt bring-up: V-Blank only, master enable on
	m.memory.Write16(registerIE, 1<<irqVBlank)
	m.memory.Write16(registerIME, 1)

	return m
}

// Run advances frames until ctx ends, and returns the context's error. A
// frame is only emulated while the program is halted in WaitNext, and the
// program is woken once the V-Blank interrupt has been serviced.
func (m *Machine) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if !m.options.speedUncapped {
		ticker := time.NewTicker(framePeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-m.halted:
		case <-ctx.Done():
			return ctx.Err()
		}

		for serviced := false; !serviced; {
			if tick != nil {
				select {
				case <-tick:
				case <-ctx.Done():
					return ctx.Err()
				}
			} else if ctx.Err() != nil {
				return ctx.Err()
			}
			serviced = m.frame()
		}

		select {
		case m.wake <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Machine) frame() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	number := m.video.frame + 1
	if m.options.operator != nil {
		m.keypad.SetInput(m.options.operator.Input(number, m.console.Lines()))
	}

	m.video.Cycle()
	m.interrupt.CheckSourcesForInterrupts()

	m.vblankServiced = false
	m.interrupt.Dispatch()

	m.publish(Frame{
		Number:   m.video.frame,
		Input:    m.keypad.input,
		Backdrop: m.video.backdrop,
		Console:  m.console.Lines(),
	})

	return m.vblankServiced
}

func (m *Machine) publish(f Frame) {
	select {
	case m.FrameChan <- f:
		return
	default:
	}

	select {
	case <-m.FrameChan:
	default:
	}
	select {
	case m.FrameChan <- f:
	default:
	}
}

// WaitNext halts the program until the next V-Blank interrupt has been
// serviced
func (m *Machine) WaitNext(ctx context.Context) error {
	select {
	case m.halted <- struct{}{}:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "halt")
	}

	select {
	case <-m.wake:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "wait for vblank")
	}
}

// Read16 reads an I/O register
func (m *Machine) Read16(address uint32) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.memory.Read16(address)
}

// Write16 writes an I/O register. Interrupt sources are latched right away.
func (m *Machine) Write16(address uint32, v uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memory.Write16(address, v)
	m.interrupt.CheckSourcesForInterrupts()
}

func (m *Machine) ReadRaw() keypad.KeyMask {
	return keypad.KeyMask(m.Read16(registerKEYINPUT))
}

func (m *Machine) Configure(c keypad.Condition) {
	m.options.logger.Debugf("KEYCNT <- %s", c)
	m.Write16(registerKEYCNT, c.Register())
}

func (m *Machine) MasterEnable() bool {
	return readBitN(m.Read16(registerIME), 0)
}

func (m *Machine) SetMasterEnable(enabled bool) {
	m.Write16(registerIME, writeBitN(0, 0, enabled))
}

func (m *Machine) PendingFlags() uint16 {
	return m.Read16(registerIF)
}

func (m *Machine) AcknowledgeFlags(flags uint16) {
	m.Write16(registerIF, flags)
}

func (m *Machine) SetColor(code uint16) {
	m.Write16(registerPalette0, code)
}

// Console returns the text output of the machine
func (m *Machine) Console() io.Writer {
	return consoleWriter{m}
}

type consoleWriter struct {
	m *Machine
}

func (w consoleWriter) Write(p []byte) (int, error) {
	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	return w.m.console.Write(p)
}

// ConsoleText returns the whole console scrollback
func (m *Machine) ConsoleText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.console.String()
}

// Frames returns the number of emulated frames
func (m *Machine) Frames() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.video.frame
}

// Screen renders the current screen contents
func (m *Machine) Screen() *image.RGBA {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.video.Render(m.console)
}

// WriteSnapshot stores the current screen as a PNG image
func (m *Machine) WriteSnapshot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create snapshot")
	}

	if err := png.Encode(f, m.Screen()); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode snapshot %s", path)
	}
	return errors.Wrapf(f.Close(), "close snapshot %s", path)
}
