package emulator

type interruptSource struct {
	pending bool
}

func newInterruptSource() *interruptSource {
	return &interruptSource{}
}

func (i *interruptSource) ReadAndClear() bool {
	result := i.pending
	i.pending = false
	return result
}

func (i *interruptSource) Set() {
	i.pending = true
}

const (
	// Interrupt Enable (read/write)
	//
	// Bit 0  - V-Blank (1=Enable)
	// Bit 12 - Keypad  (1=Enable)
	registerIE uint32 = 0x04000200

	// Interrupt Request Flags (read/acknowledge)
	//
	// Same layout as IE. Hardware sets bits; writing a 1 to a bit clears it.
	registerIF uint32 = 0x04000202

	// Interrupt Master Enable (read/write)
	//
	// Bit 0 - Disable all interrupts (0=Disable, 1=See IE)
	registerIME uint32 = 0x04000208
)

const (
	irqVBlank uint8 = 0
	irqKeypad uint8 = 12

	irqCount = 14
)

// interruptHandler services a dispatched interrupt. It is responsible for
// acknowledging the request flag.
type interruptHandler func(i *interruptController)

// interruptController encapsulates the interrupt logic
type interruptController struct {
	interruptFlag    uint16
	interruptEnabled uint16
	masterEnabled    bool

	interruptSources  []*interruptSource
	interruptHandlers []interruptHandler
}

func newInterruptController() *interruptController {
	return &interruptController{
		interruptSources:  make([]*interruptSource, irqCount),
		interruptHandlers: make([]interruptHandler, irqCount),
	}
}

// Read16 is exposed in the address space, and may be read by the program
func (i *interruptController) Read16(address uint32) (uint16, bool) {
	switch address {
	case registerIE:
		return i.interruptEnabled, true
	case registerIF:
		return i.interruptFlag, true
	case registerIME:
		return writeBitN(0, 0, i.masterEnabled), true
	}
	return 0, false
}

// Write16 is exposed in the address space, and may be written to by the program
func (i *interruptController) Write16(address uint32, v uint16) bool {
	switch address {
	case registerIE:
		i.interruptEnabled = v & (1<<irqCount - 1)
	case registerIF:
		i.interruptFlag &^= v // write-1-to-clear
	case registerIME:
		i.masterEnabled = readBitN(v, 0)
	default:
		return false
	}
	return true
}

func (i *interruptController) registerSource(offset uint8, source *interruptSource) {
	i.interruptSources[offset] = source
}

func (i *interruptController) registerHandler(offset uint8, handler interruptHandler) {
	i.interruptHandlers[offset] = handler
}

// CheckSourcesForInterrupts checks all registered sources of interrupts and sets the interrupt flag
// if any source has a pending interrupt
func (i *interruptController) CheckSourcesForInterrupts() {
	for offset, source := range i.interruptSources {
		if source == nil {
			continue
		}

		if source.ReadAndClear() {
			i.interruptFlag = writeBitN(i.interruptFlag, uint8(offset), true)
		}
	}
}

// Dispatch runs the handler of every requested and enabled interrupt while
// the master enable is set. It returns the requests that were serviced.
func (i *interruptController) Dispatch() uint16 {
	if !i.masterEnabled {
		return 0
	}

	active := i.interruptFlag & i.interruptEnabled
	for offset := uint8(0); offset < irqCount; offset++ {
		if !readBitN(active, offset) {
			continue
		}
		if handler := i.interruptHandlers[offset]; handler != nil {
			handler(i)
		}
	}
	return active
}

func (i *interruptController) String() string {
	return "INTERRUPT"
}
