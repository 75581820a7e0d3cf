package keyirq_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/log"
	"github.com/sema/keyirq/pkg/emulator"
	"github.com/sema/keyirq/pkg/keyirq"
	"github.com/sema/keyirq/pkg/operator"
	"github.com/stretchr/testify/require"
)

const registerPalette0 = 0x05000000

func runOnMachine(t *testing.T, steps []keyirq.Step) (keyirq.Result, *emulator.Machine) {
	t.Helper()

	logger := log.NewNopLogger()
	m := emulator.New(
		emulator.WithSpeedUncapped(),
		emulator.WithLogger(logger),
		emulator.WithOperator(operator.NewFollower(steps, 3)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go m.Run(ctx)

	s := keyirq.New(m, m.Console(), keyirq.WithSteps(steps), keyirq.WithLogger(logger))
	result, err := s.Run(ctx)
	require.NoError(t, err)

	return result, m
}

func TestFullSequenceWithObedientOperator(t *testing.T) {
	var outcomes []keyirq.Outcome
	steps := keyirq.Steps()

	logger := log.NewNopLogger()
	m := emulator.New(
		emulator.WithSpeedUncapped(),
		emulator.WithLogger(logger),
		emulator.WithOperator(operator.NewFollower(steps, 5)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go m.Run(ctx)

	s := keyirq.New(m, m.Console(),
		keyirq.WithLogger(logger),
		keyirq.WithOutcomeCallback(func(o keyirq.Outcome) { outcomes = append(outcomes, o) }))
	result, err := s.Run(ctx)
	require.NoError(t, err)

	require.Equal(t, keyirq.Result{Steps: 14, Failures: 0}, result)
	require.Len(t, outcomes, 14)
	for i, o := range outcomes {
		require.Equal(t, i, o.Index)
		require.True(t, o.Passed(), "step %d: expected irq=%t", i, o.Step.IRQ)
	}

	require.Equal(t, keyirq.ColorPass, m.Read16(registerPalette0))

	text := m.ConsoleText()
	require.Equal(t, 14, strings.Count(text, "PASS "))
	require.Zero(t, strings.Count(text, "FAIL "))
	require.Contains(t, text, "Test complete")
}

// Each scenario runs a prefix of the built-in table and checks that its last
// step holds on the simulated peripheral
func TestScenarios(t *testing.T) {
	tests := []struct {
		name   string
		length int
		irq    bool
	}{
		{name: "AND{A} with A held asserts", length: 1, irq: true},
		{name: "no-op with A still held does not assert", length: 2, irq: false},
		{name: "requiring an already held key asserts", length: 4, irq: true},
		{name: "dropping A from AND{A,B} does not assert", length: 5, irq: false},
		{name: "reconfiguring to the held keys asserts", length: 7, irq: true},
		{name: "configuring after the keys are held asserts", length: 10, irq: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := keyirq.Steps()[:tt.length]
			require.Equal(t, tt.irq, steps[tt.length-1].IRQ)

			result, _ := runOnMachine(t, steps)
			require.Equal(t, keyirq.Result{Steps: tt.length}, result)
		})
	}
}

func TestWrongExpectationFails(t *testing.T) {
	steps := keyirq.Steps()[:2]
	steps[1].IRQ = true

	result, m := runOnMachine(t, steps)

	require.Equal(t, keyirq.Result{Steps: 2, Failures: 1}, result)
	require.Equal(t, keyirq.ColorFail, m.Read16(registerPalette0))
	require.Contains(t, m.ConsoleText(), "PASS FAIL ")
}

// Frame numbers are deterministic because the machine only advances while
// the sequencer waits
const scriptedOperator = `segments:
  - hold: []
    frames: 4
  - hold: [A]
    frames: 6
  - hold: [A, B]
    frames: 10
  - hold: []
    frames: 5
  - hold: [A]
    frames: 10
  - hold: [A, B]
    frames: 5
  - hold: [A]
`

func TestFullSequenceWithScriptedOperator(t *testing.T) {
	script, err := operator.ParseScript([]byte(scriptedOperator))
	require.NoError(t, err)

	logger := log.NewNopLogger()
	m := emulator.New(
		emulator.WithSpeedUncapped(),
		emulator.WithLogger(logger),
		emulator.WithOperator(script))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go m.Run(ctx)

	result, err := keyirq.New(m, m.Console(), keyirq.WithLogger(logger)).Run(ctx)
	require.NoError(t, err)

	require.Equal(t, keyirq.Result{Steps: 14}, result)
	require.Equal(t, uint64(41), m.Frames())
}
