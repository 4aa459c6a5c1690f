package cpu

import "fmt"

// memory access and byte-fetch helpers. All addresses are linear (the
// flat memory model has no segmentation), and every access is
// bounds-checked: an out-of-range address is always a returned error,
// never a panic, since it is directly reachable from malformed input.

func (m *Machine) checkRange(addr uint32, n int) error {
	if n < 0 || int(addr)+n > len(m.memory) || int(addr) < 0 {
		return fmt.Errorf("cpu: memory access out of bounds: addr=0x%08X len=%d (size=0x%X)", addr, n, len(m.memory))
	}
	return nil
}

// ReadByte reads one byte at the given linear address.
func (m *Machine) ReadByte(addr uint32) (uint8, error) {
	if err := m.checkRange(addr, 1); err != nil {
		return 0, err
	}
	return m.memory[addr], nil
}

// WriteByte writes one byte at the given linear address.
func (m *Machine) WriteByte(addr uint32, v uint8) error {
	if err := m.checkRange(addr, 1); err != nil {
		return err
	}
	m.memory[addr] = v
	return nil
}

// ReadDword reads four little-endian bytes at the given linear address as
// an unsigned 32-bit value.
func (m *Machine) ReadDword(addr uint32) (uint32, error) {
	if err := m.checkRange(addr, 4); err != nil {
		return 0, err
	}
	b := m.memory[addr : addr+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// WriteDword writes v as four little-endian bytes at the given linear
// address.
func (m *Machine) WriteDword(addr uint32, v uint32) error {
	if err := m.checkRange(addr, 4); err != nil {
		return err
	}
	b := m.memory[addr : addr+4]
	b[0] = uint8(v)
	b[1] = uint8(v >> 8)
	b[2] = uint8(v >> 16)
	b[3] = uint8(v >> 24)
	return nil
}

// LoadBytes copies src into memory starting at addr. Used by the loader
// and by tests/fuzzer that construct images in memory.
func (m *Machine) LoadBytes(addr uint32, src []byte) error {
	if err := m.checkRange(addr, len(src)); err != nil {
		return err
	}
	copy(m.memory[addr:], src)
	return nil
}

// code8 reads the unsigned byte at EIP+i.
func (m *Machine) code8(i uint32) (uint8, error) { return m.ReadByte(m.eip + i) }

// scode8 reads the byte at EIP+i as a signed 8-bit value.
func (m *Machine) scode8(i uint32) (int8, error) {
	v, err := m.ReadByte(m.eip + i)
	return int8(v), err
}

// code32 reads the little-endian 32-bit unsigned value at EIP+i.
func (m *Machine) code32(i uint32) (uint32, error) { return m.ReadDword(m.eip + i) }

// scode32 reads the little-endian 32-bit value at EIP+i as signed.
func (m *Machine) scode32(i uint32) (int32, error) {
	v, err := m.ReadDword(m.eip + i)
	return int32(v), err
}

// push32 decrements ESP by 4 and stores v at the new ESP.
func (m *Machine) push32(v uint32) error {
	sp := m.Reg32(ESP) - 4
	if err := m.WriteDword(sp, v); err != nil {
		return err
	}
	m.SetReg32(ESP, sp)
	return nil
}

// pop32 reads the dword at ESP, advances ESP by 4, and returns the value.
func (m *Machine) pop32() (uint32, error) {
	sp := m.Reg32(ESP)
	v, err := m.ReadDword(sp)
	if err != nil {
		return 0, err
	}
	m.SetReg32(ESP, sp+4)
	return v, nil
}
