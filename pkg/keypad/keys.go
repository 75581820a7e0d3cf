package keypad

import (
	"strings"

	"github.com/pkg/errors"
)

// Key is an active-high set of buttons, one bit per button. Several keys may
// be combined with |.
//
// Bit 0 - Button A
// Bit 1 - Button B
// Bit 2 - Select
// Bit 3 - Start
// Bit 4 - Right
// Bit 5 - Left
// Bit 6 - Up
// Bit 7 - Down
// Bit 8 - Button R
// Bit 9 - Button L
type Key uint16

const (
	KeyA Key = 1 << iota
	KeyB
	KeySelect
	KeyStart
	KeyRight
	KeyLeft
	KeyUp
	KeyDown
	KeyR
	KeyL

	// AllKeys covers every physical button
	AllKeys Key = 0x03FF
)

var keyNames = []struct {
	key  Key
	name string
}{
	{KeyA, "A"},
	{KeyB, "B"},
	{KeySelect, "SELECT"},
	{KeyStart, "START"},
	{KeyRight, "RIGHT"},
	{KeyLeft, "LEFT"},
	{KeyUp, "UP"},
	{KeyDown, "DOWN"},
	{KeyR, "R"},
	{KeyL, "L"},
}

func (k Key) String() string {
	if k&AllKeys == 0 {
		return "none"
	}

	var names []string
	for _, kn := range keyNames {
		if k&kn.key != 0 {
			names = append(names, kn.name)
		}
	}
	return strings.Join(names, "+")
}

// ParseKey resolves a single button name (case-insensitive), e.g. "a" or "Start"
func ParseKey(name string) (Key, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for _, kn := range keyNames {
		if kn.name == normalized {
			return kn.key, nil
		}
	}
	return 0, errors.Errorf("unknown key %q", name)
}

// ParseKeys combines several button names into one key set
func ParseKeys(names []string) (Key, error) {
	var keys Key
	for _, name := range names {
		k, err := ParseKey(name)
		if err != nil {
			return 0, err
		}
		keys |= k
	}
	return keys, nil
}

// KeyMask is the raw, active-low button state as read from the input port:
// a 0 bit means pressed, a 1 bit means released. Masks are values; deriving a
// new mask never changes the one it came from.
type KeyMask uint16

const (
	// Released is the state with no button held
	Released KeyMask = KeyMask(AllKeys)

	// AllHeld is the state with every button held at once
	AllHeld KeyMask = 0

	HeldA  KeyMask = Released ^ KeyMask(KeyA)
	HeldB  KeyMask = Released ^ KeyMask(KeyB)
	HeldAB KeyMask = HeldA & HeldB
)

// Held returns the mask in which exactly the given keys are pressed
func Held(keys ...Key) KeyMask {
	m := Released
	for _, k := range keys {
		m &^= KeyMask(k & AllKeys)
	}
	return m
}

// And combines two masks so that every key held in either is held in the result
func (m KeyMask) And(other KeyMask) KeyMask {
	return (m & other) & KeyMask(AllKeys)
}

// Or combines two masks so that only keys held in both are held in the result
func (m KeyMask) Or(other KeyMask) KeyMask {
	return (m | other) & KeyMask(AllKeys)
}

// Complement swaps held and released keys
func (m KeyMask) Complement() KeyMask {
	return ^m & KeyMask(AllKeys)
}

// Pressed returns the held keys in active-high form
func (m KeyMask) Pressed() Key {
	return Key(^m) & AllKeys
}

func (m KeyMask) String() string {
	return m.Pressed().String()
}
