package keypad

import "fmt"

// Mode selects how the keys of a Condition are combined
type Mode uint8

const (
	// ModeOR is satisfied when any of the keys is held
	ModeOR Mode = iota
	// ModeAND is satisfied when all of the keys are held
	ModeAND
)

func (m Mode) String() string {
	if m == ModeAND {
		return "AND"
	}
	return "OR"
}

const (
	// Key interrupt control layout
	//
	// Bit 0-9 - Keys to check (1=Select)
	// Bit 14  - IRQ Enable    (1=Enable)
	// Bit 15  - IRQ Condition (0=Logical OR, 1=Logical AND)
	controlKeys   uint16 = 0x03FF
	controlEnable uint16 = 1 << 14
	controlAND    uint16 = 1 << 15
)

// Condition is the interrupt-generation rule of the keypad peripheral
type Condition struct {
	Enabled bool
	Mode    Mode
	Keys    Key
}

// DecodeCondition parses a key interrupt control register value
func DecodeCondition(v uint16) Condition {
	c := Condition{
		Enabled: v&controlEnable != 0,
		Mode:    ModeOR,
		Keys:    Key(v & controlKeys),
	}
	if v&controlAND != 0 {
		c.Mode = ModeAND
	}
	return c
}

// Register encodes the condition as a key interrupt control register value
func (c Condition) Register() uint16 {
	v := uint16(c.Keys) & controlKeys
	if c.Enabled {
		v |= controlEnable
	}
	if c.Mode == ModeAND {
		v |= controlAND
	}
	return v
}

// Satisfied reports whether the input state meets the condition. The enable
// bit is ignored; an empty key set never matches.
func (c Condition) Satisfied(input KeyMask) bool {
	if c.Keys&AllKeys == 0 {
		return false
	}

	selected := input.Pressed() & c.Keys
	if c.Mode == ModeAND {
		return selected == c.Keys&AllKeys
	}
	return selected != 0
}

func (c Condition) String() string {
	state := "disabled"
	if c.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("%s %s{%s} (%#04x)", state, c.Mode, c.Keys, c.Register())
}
