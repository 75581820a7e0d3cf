package emulator

import "github.com/prometheus/common/log"

// device is a peripheral mapped into the I/O address space. Read16 and
// Write16 report false for addresses the device does not own.
type device interface {
	Read16(address uint32) (uint16, bool)
	Write16(address uint32, v uint16) bool
	String() string
}

// memory routes 16 bit I/O accesses to the mapped devices
type memory struct {
	devices []device
	logger  log.Logger
}

func newMemory(logger log.Logger, devices ...device) *memory {
	return &memory{
		devices: devices,
		logger:  logger,
	}
}

func (m *memory) Read16(address uint32) uint16 {
	for _, d := range m.devices {
		if v, ok := d.Read16(address); ok {
			return v
		}
	}

	m.logger.Warnf("read of unmapped I/O register at %#08x", address)
	return 0
}

func (m *memory) Write16(address uint32, v uint16) {
	for _, d := range m.devices {
		if d.Write16(address, v) {
			return
		}
	}

	m.logger.Warnf("write of %#04x to unmapped I/O register at %#08x", v, address)
}
