package keypad

// Configurer is the register write surface of the keypad interrupt. Writing
// replaces the live condition; it never clears an interrupt that is already
// pending.
type Configurer interface {
	Configure(c Condition)
}

// Programmer translates trigger specifications into conditions and writes
// them to the peripheral
type Programmer struct {
	dev Configurer
}

func NewProgrammer(dev Configurer) *Programmer {
	return &Programmer{dev: dev}
}

// ProgramAnd triggers when every key held in mask is held at once
func (p *Programmer) ProgramAnd(mask KeyMask) {
	p.dev.Configure(Condition{Enabled: true, Mode: ModeAND, Keys: mask.Pressed()})
}

// ProgramOr triggers when any key held in mask is held
func (p *Programmer) ProgramOr(mask KeyMask) {
	p.dev.Configure(Condition{Enabled: true, Mode: ModeOR, Keys: mask.Pressed()})
}

// Disable idles interrupt generation by requiring all keys at once. The
// enable bit stays set.
func (p *Programmer) Disable() {
	p.ProgramAnd(AllHeld)
}

// Noop leaves the live condition untouched
func (p *Programmer) Noop() {}

// Setup is the hardware effect a test step applies before it is evaluated
type Setup uint8

const (
	SetupNone Setup = iota
	SetupNoop
	SetupAndA
	SetupAndB
	SetupAndAB
	SetupDisable
)

var setupNames = map[Setup]string{
	SetupNone:    "-",
	SetupNoop:    "noop",
	SetupAndA:    "AND{A}",
	SetupAndB:    "AND{B}",
	SetupAndAB:   "AND{A+B}",
	SetupDisable: "disable",
}

// Apply invokes at most one programmer operation
func (s Setup) Apply(p *Programmer) {
	switch s {
	case SetupNoop:
		p.Noop()
	case SetupAndA:
		p.ProgramAnd(HeldA)
	case SetupAndB:
		p.ProgramAnd(HeldB)
	case SetupAndAB:
		p.ProgramAnd(HeldAB)
	case SetupDisable:
		p.Disable()
	}
}

func (s Setup) String() string {
	if name, ok := setupNames[s]; ok {
		return name
	}
	return "unknown"
}
