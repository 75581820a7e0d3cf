package keyirq

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
	"github.com/sema/keyirq/pkg/keypad"
)

const (
	// IRQKeypad is the keypad bit in the interrupt request flags
	IRQKeypad uint16 = 1 << 12

	// Backdrop colours (BGR555) shown once the test is complete
	ColorPass uint16 = 0x0340
	ColorFail uint16 = 0x001A
)

const banner = "MAKE SURE TO KEEP HOLDING KEYS" +
	"UNLESS THE TEST SAYS NOT TO,\n" +
	"OTHERWISE THE TEST MAY FAIL\n"

// FrameSync suspends the caller until the next frame boundary
type FrameSync interface {
	WaitNext(ctx context.Context) error
}

// InputPort returns the instantaneous, active-low button state
type InputPort interface {
	ReadRaw() keypad.KeyMask
}

// InterruptController exposes the master enable and the pending request
// flags. Writing a 1 to a pending flag acknowledges it; other bits are left
// alone.
type InterruptController interface {
	MasterEnable() bool
	SetMasterEnable(enabled bool)
	PendingFlags() uint16
	AcknowledgeFlags(flags uint16)
}

// Indicator signals the overall verdict
type Indicator interface {
	SetColor(code uint16)
}

// Hardware bundles everything the sequencer drives
type Hardware interface {
	FrameSync
	InputPort
	InterruptController
	keypad.Configurer
	Indicator
}

// State is the position of the sequencer in its table
type State struct {
	Index    int
	Failures int
}

// Outcome describes one evaluated step
type Outcome struct {
	Index    int
	Step     Step
	Observed bool
}

// Passed is true if the observed interrupt matched the expectation
func (o Outcome) Passed() bool {
	return o.Observed == o.Step.IRQ
}

// OutcomeCallback is called (if set) for every evaluated step
type OutcomeCallback func(o Outcome)

// Result is the verdict of a completed run
type Result struct {
	Steps    int
	Failures int
}

// Passed is true if no step failed
func (r Result) Passed() bool {
	return r.Failures == 0
}

type options struct {
	steps     []Step
	logger    log.Logger
	onOutcome OutcomeCallback
}

type Option func(o *options)

// WithSteps replaces the built-in table
func WithSteps(steps []Step) Option {
	return func(o *options) {
		o.steps = append([]Step(nil), steps...)
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithOutcomeCallback(cb OutcomeCallback) Option {
	return func(o *options) {
		o.onOutcome = cb
	}
}

// Sequencer walks the step table one qualifying frame at a time
type Sequencer struct {
	hw         Hardware
	out        io.Writer
	programmer *keypad.Programmer
	steps      []Step
	logger     log.Logger
	onOutcome  OutcomeCallback

	state State
}

func New(hw Hardware, out io.Writer, opts ...Option) *Sequencer {
	o := options{
		steps:  Steps(),
		logger: log.Base(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Sequencer{
		hw:         hw,
		out:        out,
		programmer: keypad.NewProgrammer(hw),
		steps:      o.steps,
		logger:     o.logger,
		onOutcome:  o.onOutcome,
	}
}

// Run drives the table to completion and shows the verdict. It only returns
// an error if ctx ends while waiting for a frame.
func (s *Sequencer) Run(ctx context.Context) (Result, error) {
	fmt.Fprint(s.out, banner)
	if len(s.steps) > 0 {
		s.enter(0)
	}

	for s.state.Index < len(s.steps) {
		if err := s.hw.WaitNext(ctx); err != nil {
			return s.result(), errors.Wrapf(err, "waiting for frame at step %d", s.state.Index)
		}

		step := s.steps[s.state.Index]
		if s.hw.ReadRaw() != step.Keys {
			continue
		}

		irq := s.acknowledge()
		s.record(Outcome{Index: s.state.Index, Step: step, Observed: irq})

		s.state.Index++
		if s.state.Index < len(s.steps) {
			s.enter(s.state.Index)
		}
	}

	fmt.Fprintln(s.out, "\nTest complete")

	result := s.result()
	if result.Passed() {
		s.hw.SetColor(ColorPass)
	} else {
		s.hw.SetColor(ColorFail)
	}
	s.logger.Infof("test complete: %d/%d steps passed", result.Steps-result.Failures, result.Steps)

	return result, nil
}

// Halt idles on frame boundaries until ctx ends
func (s *Sequencer) Halt(ctx context.Context) error {
	for {
		if err := s.hw.WaitNext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "halted")
		}
	}
}

// State returns the current position. Not safe to call while Run is active
// on another goroutine; use WithOutcomeCallback to observe a running test.
func (s *Sequencer) State() State {
	return s.state
}

func (s *Sequencer) enter(index int) {
	step := s.steps[index]
	if step.Prompt != "" {
		if index > 0 {
			fmt.Fprintln(s.out)
		}
		fmt.Fprintln(s.out, step.Prompt)
	}

	s.logger.With("step", index).Debugf("setup %s, waiting for %s", step.Setup, step.Keys)
	step.Setup.Apply(s.programmer)
}

// acknowledge reads and clears the keypad request with interrupts masked, so
// a request raised in between is either observed here or left pending
func (s *Sequencer) acknowledge() bool {
	ime := s.hw.MasterEnable()
	s.hw.SetMasterEnable(false)

	irq := s.hw.PendingFlags()&IRQKeypad != 0
	if irq {
		s.hw.AcknowledgeFlags(IRQKeypad)
	}

	s.hw.SetMasterEnable(ime)
	return irq
}

func (s *Sequencer) record(o Outcome) {
	logger := s.logger.With("step", o.Index)
	if o.Passed() {
		fmt.Fprint(s.out, "PASS ")
		logger.Debugf("pass: irq=%t", o.Observed)
	} else {
		fmt.Fprint(s.out, "FAIL ")
		s.state.Failures++
		logger.Warnf("fail: expected irq=%t, observed irq=%t", o.Step.IRQ, o.Observed)
	}

	if s.onOutcome != nil {
		s.onOutcome(o)
	}
}

func (s *Sequencer) result() Result {
	return Result{Steps: s.state.Index, Failures: s.state.Failures}
}
