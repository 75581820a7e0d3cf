package keyirq

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
	"github.com/sema/keyirq/pkg/keypad"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	input keypad.KeyMask
	irq   bool
}

// fakeHardware replays one scripted frame per WaitNext call
type fakeHardware struct {
	frames []fakeFrame
	frame  int

	input keypad.KeyMask
	ime   bool
	flags uint16
	color uint16

	writes []uint16
	events []string

	// afterRead is called (if set) right after the request flags are read
	afterRead func(h *fakeHardware)
}

func newFakeHardware(frames ...fakeFrame) *fakeHardware {
	return &fakeHardware{
		frames: frames,
		input:  keypad.Released,
		ime:    true,
	}
}

func (h *fakeHardware) WaitNext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.frame >= len(h.frames) {
		return errors.New("out of frames")
	}

	f := h.frames[h.frame]
	h.frame++
	h.input = f.input
	if f.irq {
		h.flags |= IRQKeypad
	}
	return nil
}

func (h *fakeHardware) ReadRaw() keypad.KeyMask { return h.input }

func (h *fakeHardware) MasterEnable() bool { return h.ime }

func (h *fakeHardware) SetMasterEnable(enabled bool) {
	h.ime = enabled
	if enabled {
		h.events = append(h.events, "ime on")
	} else {
		h.events = append(h.events, "ime off")
	}
}

func (h *fakeHardware) PendingFlags() uint16 {
	h.events = append(h.events, "read")
	flags := h.flags
	if h.afterRead != nil {
		h.afterRead(h)
	}
	return flags
}

func (h *fakeHardware) AcknowledgeFlags(flags uint16) {
	h.events = append(h.events, "ack")
	h.flags &^= flags
}

func (h *fakeHardware) Configure(c keypad.Condition) { h.writes = append(h.writes, c.Register()) }

func (h *fakeHardware) SetColor(code uint16) { h.color = code }

var holdA = []Step{
	{"Hold A...", keypad.SetupAndA, keypad.HeldA, true},
	{"", keypad.SetupNoop, keypad.HeldA, false},
}

func newTestSequencer(hw Hardware, out *bytes.Buffer, opts ...Option) *Sequencer {
	opts = append([]Option{WithLogger(log.NewNopLogger())}, opts...)
	return New(hw, out, opts...)
}

func TestSequencerPassesWhenObservationsMatch(t *testing.T) {
	hw := newFakeHardware(
		fakeFrame{input: keypad.Released},
		fakeFrame{input: keypad.HeldA, irq: true},
		fakeFrame{input: keypad.HeldA},
	)
	out := &bytes.Buffer{}

	result, err := newTestSequencer(hw, out, WithSteps(holdA)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, Result{Steps: 2, Failures: 0}, result)
	require.True(t, result.Passed())
	require.Equal(t, ColorPass, hw.color)
	require.Equal(t, []uint16{0xC001}, hw.writes)
	require.Equal(t, banner+"Hold A...\nPASS PASS \nTest complete\n", out.String())
}

func TestSequencerCountsFailuresAndContinues(t *testing.T) {
	hw := newFakeHardware(
		fakeFrame{input: keypad.HeldA},            // no request: fail
		fakeFrame{input: keypad.HeldA, irq: true}, // unexpected request: fail
	)
	out := &bytes.Buffer{}

	result, err := newTestSequencer(hw, out, WithSteps(holdA)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, Result{Steps: 2, Failures: 2}, result)
	require.False(t, result.Passed())
	require.Equal(t, ColorFail, hw.color)
	require.Contains(t, out.String(), "FAIL FAIL ")
}

func TestSequencerOnlyAdvancesOnMatchingFrames(t *testing.T) {
	hw := newFakeHardware(
		fakeFrame{input: keypad.Released},
		fakeFrame{input: keypad.HeldB, irq: true},
		fakeFrame{input: keypad.HeldAB},
		fakeFrame{input: keypad.HeldA},
		fakeFrame{input: keypad.Released},
		fakeFrame{input: keypad.HeldA},
	)

	var frames []int
	var indices []int
	cb := func(o Outcome) {
		frames = append(frames, hw.frame)
		indices = append(indices, o.Index)
	}

	result, err := newTestSequencer(hw, &bytes.Buffer{}, WithSteps(holdA), WithOutcomeCallback(cb)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []int{4, 6}, frames)
	require.Equal(t, []int{0, 1}, indices)
	require.Equal(t, 0, result.Failures, "expected the request from frame 2 to be observed at frame 4")
}

func TestSequencerAcknowledgesInsideCriticalSection(t *testing.T) {
	hw := newFakeHardware(fakeFrame{input: keypad.HeldA, irq: true})
	steps := holdA[:1]

	_, err := newTestSequencer(hw, &bytes.Buffer{}, WithSteps(steps)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"ime off", "read", "ack", "ime on"}, hw.events)
	require.True(t, hw.ime)
	require.Zero(t, hw.flags&IRQKeypad)
}

func TestSequencerRestoresMasterEnableState(t *testing.T) {
	hw := newFakeHardware(fakeFrame{input: keypad.HeldA})
	hw.ime = false

	_, err := newTestSequencer(hw, &bytes.Buffer{}, WithSteps(holdA[:1])).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"ime off", "read", "ime off"}, hw.events)
	require.False(t, hw.ime)
}

func TestSequencerLeavesUnobservedRequestPending(t *testing.T) {
	hw := newFakeHardware(
		fakeFrame{input: keypad.HeldA},
		fakeFrame{input: keypad.HeldA},
	)
	raised := false
	hw.afterRead = func(h *fakeHardware) {
		if !raised {
			raised = true
			h.flags |= IRQKeypad
		}
	}
	steps := []Step{
		{"Hold A...", keypad.SetupNoop, keypad.HeldA, false},
		{"", keypad.SetupNoop, keypad.HeldA, true},
	}

	result, err := newTestSequencer(hw, &bytes.Buffer{}, WithSteps(steps)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Failures, "expected the late request to be attributed to the next step")
}

func TestSequencerSharesPrompts(t *testing.T) {
	hw := newFakeHardware(
		fakeFrame{input: keypad.HeldA},
		fakeFrame{input: keypad.HeldA},
		fakeFrame{input: keypad.Released},
	)
	steps := []Step{
		{"Hold A...", keypad.SetupNone, keypad.HeldA, false},
		{"", keypad.SetupNone, keypad.HeldA, false},
		{"Release everything...", keypad.SetupDisable, keypad.Released, false},
	}
	out := &bytes.Buffer{}

	_, err := newTestSequencer(hw, out, WithSteps(steps)).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, banner+"Hold A...\nPASS PASS \nRelease everything...\nPASS \nTest complete\n", out.String())
	require.Equal(t, []uint16{0xC3FF}, hw.writes)
}

func TestSequencerReturnsContextErrors(t *testing.T) {
	hw := newFakeHardware(fakeFrame{input: keypad.HeldA, irq: true})

	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSequencer(hw, &bytes.Buffer{}, WithOutcomeCallback(func(o Outcome) { cancel() }))

	result, err := s.Run(ctx)
	require.Error(t, err)
	require.Equal(t, context.Canceled, errors.Cause(err))
	require.Equal(t, Result{Steps: 1}, result)
	require.Equal(t, State{Index: 1}, s.State())
	require.Zero(t, hw.color, "expected no verdict for an interrupted run")
}

func TestSequencerHaltReturnsOnCancel(t *testing.T) {
	hw := newFakeHardware()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, newTestSequencer(hw, &bytes.Buffer{}).Halt(ctx))
}

func TestSequencerHaltReportsHardwareErrors(t *testing.T) {
	hw := newFakeHardware()
	require.Error(t, newTestSequencer(hw, &bytes.Buffer{}).Halt(context.Background()))
}
