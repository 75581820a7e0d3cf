package emulator

import "github.com/sema/keyirq/pkg/keypad"

const (
	// Key status (read only)
	//
	// Bit 0-9 - A, B, Select, Start, Right, Left, Up, Down, R, L (0=Pressed)
	registerKEYINPUT uint32 = 0x04000130

	// Key interrupt control (read/write)
	//
	// Bit 0-9 - Keys to check (1=Select)
	// Bit 14  - IRQ Enable    (1=Enable)
	// Bit 15  - IRQ Condition (0=Logical OR, 1=Logical AND)
	registerKEYCNT uint32 = 0x04000132
)

// keypadController handles button state and the keypad interrupt.
//
// The interrupt is edge triggered. Every change of input and every write of
// the control register re-evaluates the condition; a new request is raised
// when the condition holds afterwards and
// a) the input changed, or
// b) a write added a required key that is currently held, or
// c) the condition did not hold before.
// Nothing here ever clears a request that was already raised.
type keypadController struct {
	input   keypad.KeyMask
	control uint16

	lastSelected keypad.Key
	lastMatch    bool

	// Interrupt is true if the keypad wants to trigger the keypad interrupt
	Interrupt *interruptSource
}

func newKeypadController() *keypadController {
	return &keypadController{
		input:     keypad.Released,
		Interrupt: newInterruptSource(),
	}
}

// Read16 is exposed in the address space, and may be read by the program
func (k *keypadController) Read16(address uint32) (uint16, bool) {
	switch address {
	case registerKEYINPUT:
		return uint16(k.input), true
	case registerKEYCNT:
		return k.control, true
	}
	return 0, false
}

// Write16 is exposed in the address space, and may be written to by the program
func (k *keypadController) Write16(address uint32, v uint16) bool {
	switch address {
	case registerKEYINPUT:
		return true // read-only
	case registerKEYCNT:
		k.control = v & 0xC3FF
		k.evaluate(false)
		return true
	}
	return false
}

// SetInput latches the physical button state
func (k *keypadController) SetInput(m keypad.KeyMask) {
	m &= keypad.Released
	if m == k.input {
		return
	}
	k.input = m
	k.evaluate(true)
}

func (k *keypadController) evaluate(inputChanged bool) {
	cond := keypad.DecodeCondition(k.control)
	selected := k.input.Pressed() & cond.Keys
	match := cond.Enabled && cond.Satisfied(k.input)

	gained := selected&^k.lastSelected != 0
	if match && (inputChanged || gained || !k.lastMatch) {
		k.Interrupt.Set()
	}

	k.lastSelected = selected
	k.lastMatch = match
}

func (k *keypadController) String() string {
	return "KEYPAD"
}
