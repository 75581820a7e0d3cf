package keyirq

import "github.com/sema/keyirq/pkg/keypad"

// Step is one check of the test. The sequencer waits until the raw input
// equals Keys and then expects the keypad interrupt to be pending iff IRQ is
// set.
type Step struct {
	// Prompt is printed when the step becomes current. Empty keeps the
	// previous instruction on screen.
	Prompt string

	// Setup is applied as soon as the step becomes current
	Setup keypad.Setup

	Keys keypad.KeyMask
	IRQ  bool
}

const (
	promptHoldA      = "Hold A..."
	promptHoldAB     = "Hold A+B..."
	promptReleaseAll = "Release everything..."
	promptReleaseB   = "Release B, keep holding A.."
)

var steps = []Step{
	// Basic IRQ check
	{promptHoldA, keypad.SetupAndA, keypad.HeldA, true},
	// Edge triggered: holding on does not assert again
	{"", keypad.SetupNoop, keypad.HeldA, false},

	// Pressing additional keys asserts again
	{promptHoldAB, keypad.SetupNoop, keypad.HeldAB, true},
	// Requiring a key that is already held asserts again
	{"", keypad.SetupAndAB, keypad.HeldAB, true},
	// Dropping a key from the required set does not
	{"", keypad.SetupAndB, keypad.HeldAB, false},
	// Lower the line with an unreachable condition
	{"", keypad.SetupDisable, keypad.HeldAB, false},
	// Requiring exactly what is already held asserts again
	{"", keypad.SetupAndAB, keypad.HeldAB, true},

	{promptReleaseAll, keypad.SetupDisable, keypad.Released, false},
	// Keys are held before the condition is configured
	{promptHoldA, keypad.SetupNoop, keypad.HeldA, false},
	{"", keypad.SetupAndA, keypad.HeldA, true},
	// Requiring an extra key lowers the line
	{"", keypad.SetupAndAB, keypad.HeldA, false},
	// Going back to the old combination asserts again
	{"", keypad.SetupAndA, keypad.HeldA, true},

	{promptHoldAB, keypad.SetupNoop, keypad.HeldAB, true},

	// Releasing a key that is not required asserts again
	{promptReleaseB, keypad.SetupNoop, keypad.HeldA, true},
}

// Steps returns a copy of the built-in test table
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Instructions maps every prompt of the table to the input state it asks the
// operator for
func Instructions(table []Step) map[string]keypad.KeyMask {
	out := make(map[string]keypad.KeyMask)
	for _, s := range table {
		if s.Prompt != "" {
			out[s.Prompt] = s.Keys
		}
	}
	return out
}
