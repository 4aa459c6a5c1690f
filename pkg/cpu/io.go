package cpu

import "fmt"

// BIOSHandler services software interrupts raised by INT. Only INT 0x10
// is meaningful to this instruction set; handlers for other vectors are
// free to ignore the call. Implementations must not modify EFLAGS.
type BIOSHandler interface {
	HandleInterrupt(m *Machine, vector uint8) error
}

// PortIO services IN/OUT on the 16-bit port space. Only COM1 (0x03F8) is
// wired by the default implementation in pkg/ioport, which treats any
// other port as a silent no-op; exec.go forwards every port unchanged.
type PortIO interface {
	In8(port uint16) (uint8, error)
	Out8(port uint16, v uint8) error
}

// SetBIOS installs the interrupt handler used by INT. A nil handler
// (the default) makes every INT a reported, non-fatal no-op.
func (m *Machine) SetBIOS(h BIOSHandler) { m.bios = h }

// SetIO installs the port I/O handler used by IN/OUT. A nil handler
// (the default) makes every port access a silent no-op.
func (m *Machine) SetIO(io PortIO) { m.io = io }

func (m *Machine) dispatchInterrupt(vector uint8) error {
	if m.bios == nil {
		fmt.Fprintf(m.diag(), "cpu: no BIOS handler installed, ignoring INT 0x%02X\n", vector)
		return nil
	}
	return m.bios.HandleInterrupt(m, vector)
}

func (m *Machine) portIn8(port uint16) (uint8, error) {
	if m.io == nil {
		return 0, nil
	}
	return m.io.In8(port)
}

func (m *Machine) portOut8(port uint16, v uint8) error {
	if m.io == nil {
		return nil
	}
	return m.io.Out8(port, v)
}
