package cpu

import "fmt"

// ModRM is the decoded form of a ModR/M byte: the addressing-mode field,
// the reg field (either a register operand or an opcode-group
// sub-selector), the rm field, and whatever displacement the mod/rm
// combination implies. It is created fresh by decodeModRM for each
// instruction that needs it and consumed within that instruction's
// handler; it owns no state beyond its own fields.
type ModRM struct {
	Mod int
	Reg int
	RM  int

	hasSIB bool
	sib    uint8

	hasDisp bool
	disp    int32
}

// decodeModRM reads the ModR/M byte (and any SIB byte/displacement that
// follow it) starting at the machine's current EIP, advancing EIP past
// everything it consumes. The opcode byte itself must already have been
// consumed by the caller.
func (m *Machine) decodeModRM() (ModRM, error) {
	b, err := m.code8(0)
	if err != nil {
		return ModRM{}, err
	}
	m.eip++

	rm := ModRM{
		Mod: int(b >> 6),
		Reg: int((b >> 3) & 0x7),
		RM:  int(b & 0x7),
	}

	if rm.Mod != 3 && rm.RM == 4 {
		sib, err := m.code8(0)
		if err != nil {
			return ModRM{}, err
		}
		m.eip++
		rm.hasSIB = true
		rm.sib = sib
		return ModRM{}, fmt.Errorf("cpu: SIB addressing not implemented (ModR/M mod=%d rm=4, sib=0x%02X)", rm.Mod, sib)
	}

	switch {
	case rm.Mod == 0 && rm.RM == 5:
		d, err := m.scode32(0)
		if err != nil {
			return ModRM{}, err
		}
		m.eip += 4
		rm.hasDisp = true
		rm.disp = d
	case rm.Mod == 1:
		d, err := m.scode8(0)
		if err != nil {
			return ModRM{}, err
		}
		m.eip++
		rm.hasDisp = true
		rm.disp = int32(d)
	case rm.Mod == 2:
		d, err := m.scode32(0)
		if err != nil {
			return ModRM{}, err
		}
		m.eip += 4
		rm.hasDisp = true
		rm.disp = d
	}

	return rm, nil
}

// effectiveAddress computes the linear address a non-register ModR/M
// operand refers to. Must not be called when Mod == 3.
func (rm ModRM) effectiveAddress(m *Machine) (uint32, error) {
	if rm.Mod == 3 {
		return 0, fmt.Errorf("cpu: effectiveAddress called on a register operand")
	}
	if rm.Mod == 0 && rm.RM == 5 {
		return uint32(rm.disp), nil
	}
	base := m.Reg32(Register(rm.RM))
	if rm.hasDisp {
		return base + uint32(rm.disp), nil
	}
	return base, nil
}

// ReadRM32 reads the r/m operand as a 32-bit value: a register when
// Mod == 3, otherwise a little-endian dword from the effective address.
func (rm ModRM) ReadRM32(m *Machine) (uint32, error) {
	if rm.Mod == 3 {
		return m.Reg32(Register(rm.RM)), nil
	}
	addr, err := rm.effectiveAddress(m)
	if err != nil {
		return 0, err
	}
	return m.ReadDword(addr)
}

// WriteRM32 writes a 32-bit value to the r/m operand.
func (rm ModRM) WriteRM32(m *Machine, v uint32) error {
	if rm.Mod == 3 {
		m.SetReg32(Register(rm.RM), v)
		return nil
	}
	addr, err := rm.effectiveAddress(m)
	if err != nil {
		return err
	}
	return m.WriteDword(addr, v)
}

// ReadRM8 reads the r/m operand as an 8-bit value.
func (rm ModRM) ReadRM8(m *Machine) (uint8, error) {
	if rm.Mod == 3 {
		return m.Reg8(rm.RM)
	}
	addr, err := rm.effectiveAddress(m)
	if err != nil {
		return 0, err
	}
	return m.ReadByte(addr)
}

// WriteRM8 writes an 8-bit value to the r/m operand.
func (rm ModRM) WriteRM8(m *Machine, v uint8) error {
	if rm.Mod == 3 {
		return m.SetReg8(rm.RM, v)
	}
	addr, err := rm.effectiveAddress(m)
	if err != nil {
		return err
	}
	return m.WriteByte(addr, v)
}

// ReadReg32 reads the reg-field operand as a 32-bit register.
func (rm ModRM) ReadReg32(m *Machine) uint32 { return m.Reg32(Register(rm.Reg)) }

// WriteReg32 writes the reg-field operand as a 32-bit register.
func (rm ModRM) WriteReg32(m *Machine, v uint32) { m.SetReg32(Register(rm.Reg), v) }

// ReadReg8 reads the reg-field operand as an 8-bit register.
func (rm ModRM) ReadReg8(m *Machine) (uint8, error) { return m.Reg8(rm.Reg) }

// WriteReg8 writes the reg-field operand as an 8-bit register.
func (rm ModRM) WriteReg8(m *Machine, v uint8) error { return m.SetReg8(rm.Reg, v) }
