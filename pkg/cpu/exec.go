package cpu

import "fmt"

// Step fetches, decodes, and executes exactly one instruction at the
// current EIP. It reports halted=true when the program has reached its
// documented termination convention (EIP == 0 after a RET, or EIP has
// left the bounds of memory). A non-nil err is always a fatal condition
// per the error-handling design: an unknown opcode, an unimplemented
// group sub-opcode, an out-of-bounds memory access, or SIB addressing.
func (m *Machine) Step() (halted bool, err error) {
	if m.eip == 0 {
		return true, nil
	}
	if int(m.eip) >= len(m.memory) {
		return true, fmt.Errorf("cpu: EIP 0x%08X out of bounds (memory size 0x%X)", m.eip, len(m.memory))
	}

	op, err := m.code8(0)
	if err != nil {
		return true, err
	}

	h := dispatch[op]
	if h != nil {
		if err := h(m); err != nil {
			return true, err
		}
		if m.eip == 0 {
			return true, nil
		}
		return false, nil
	}

	switch op {
	case 0x83:
		if err := execGroup83(m); err != nil {
			return true, err
		}
		return m.eip == 0, nil
	case 0xFF:
		if err := execGroupFF(m); err != nil {
			return true, err
		}
		return m.eip == 0, nil
	}

	return true, fmt.Errorf("cpu: unimplemented opcode 0x%02X at EIP=0x%08X", op, m.eip)
}

type handler func(m *Machine) error

// dispatch is the dense opcode table: each populated slot is a handler
// for the opcode that is its index. Built once at init time and shared
// read-only by every Machine and every goroutine.
var dispatch [256]handler

func init() {
	dispatch[0x01] = execAdd32
	dispatch[0x3B] = execCmp32
	dispatch[0x3C] = execCmpAlImm8
	dispatch[0x3D] = execCmpEaxImm32
	dispatch[0x88] = execMovRM8R8
	dispatch[0x89] = execMovRM32R32
	dispatch[0x8A] = execMovR8RM8
	dispatch[0x8B] = execMovR32RM32
	dispatch[0x68] = execPushImm32
	dispatch[0x6A] = execPushImm8
	dispatch[0xC3] = execRet
	dispatch[0xC7] = execMovRM32Imm32
	dispatch[0xC9] = execLeave
	dispatch[0xCD] = execInt
	dispatch[0xE8] = execCall
	dispatch[0xE9] = execJmpRel32
	dispatch[0xEB] = execJmpRel8
	dispatch[0xEC] = execInAlDx
	dispatch[0xEE] = execOutDxAl

	for i := 0; i < 8; i++ {
		dispatch[0x40+i] = incRegHandler(Register(i))
		dispatch[0x50+i] = pushRegHandler(Register(i))
		dispatch[0x58+i] = popRegHandler(Register(i))
		dispatch[0xB0+i] = movR8Imm8Handler(i)
		dispatch[0xB8+i] = movR32Imm32Handler(Register(i))
	}
	for op := 0x70; op <= 0x7F; op++ {
		if cond, ok := jccConditions[uint8(op)]; ok {
			dispatch[op] = jccHandler(cond)
		}
	}
}

// --- MOV family ---

func execMovRM8R8(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	v, err := rm.ReadReg8(m)
	if err != nil {
		return err
	}
	return rm.WriteRM8(m, v)
}

func execMovRM32R32(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	return rm.WriteRM32(m, rm.ReadReg32(m))
}

func execMovR8RM8(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	v, err := rm.ReadRM8(m)
	if err != nil {
		return err
	}
	return rm.WriteReg8(m, v)
}

func execMovR32RM32(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	v, err := rm.ReadRM32(m)
	if err != nil {
		return err
	}
	rm.WriteReg32(m, v)
	return nil
}

func execMovRM32Imm32(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	imm, err := m.code32(0)
	if err != nil {
		return err
	}
	m.eip += 4
	return rm.WriteRM32(m, imm)
}

func movR8Imm8Handler(idx int) handler {
	return func(m *Machine) error {
		imm, err := m.code8(1)
		if err != nil {
			return err
		}
		if err := m.SetReg8(idx, imm); err != nil {
			return err
		}
		m.eip += 2
		return nil
	}
}

func movR32Imm32Handler(r Register) handler {
	return func(m *Machine) error {
		imm, err := m.code32(1)
		if err != nil {
			return err
		}
		m.SetReg32(r, imm)
		m.eip += 5
		return nil
	}
}

// --- ADD / INC ---
//
// This subset does not update EFLAGS on ADD or INC; only CMP and the
// 0x83 /5 SUB touch the flags word. Arithmetic wraps modulo 2^32.

func execAdd32(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	v, err := rm.ReadRM32(m)
	if err != nil {
		return err
	}
	return rm.WriteRM32(m, v+rm.ReadReg32(m))
}

func incRegHandler(r Register) handler {
	return func(m *Machine) error {
		m.SetReg32(r, m.Reg32(r)+1)
		m.eip++
		return nil
	}
}

// --- CMP / flags ---

func execCmp32(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	rmVal, err := rm.ReadRM32(m)
	if err != nil {
		return err
	}
	m.applySubFlags(rm.ReadReg32(m), rmVal)
	return nil
}

func execCmpAlImm8(m *Machine) error {
	al, err := m.Reg8(int(AL))
	if err != nil {
		return err
	}
	imm, err := m.code8(1)
	if err != nil {
		return err
	}
	m.applySubFlags(uint32(al), uint32(imm))
	m.eip += 2
	return nil
}

func execCmpEaxImm32(m *Machine) error {
	imm, err := m.code32(1)
	if err != nil {
		return err
	}
	m.applySubFlags(m.Reg32(EAX), imm)
	m.eip += 5
	return nil
}

// --- PUSH / POP ---

func pushRegHandler(r Register) handler {
	return func(m *Machine) error {
		if err := m.push32(m.Reg32(r)); err != nil {
			return err
		}
		m.eip++
		return nil
	}
}

func popRegHandler(r Register) handler {
	return func(m *Machine) error {
		v, err := m.pop32()
		if err != nil {
			return err
		}
		m.SetReg32(r, v)
		m.eip++
		return nil
	}
}

func execPushImm32(m *Machine) error {
	imm, err := m.code32(1)
	if err != nil {
		return err
	}
	if err := m.push32(imm); err != nil {
		return err
	}
	m.eip += 5
	return nil
}

func execPushImm8(m *Machine) error {
	imm, err := m.code8(1)
	if err != nil {
		return err
	}
	if err := m.push32(uint32(imm)); err != nil {
		return err
	}
	m.eip += 2
	return nil
}

// --- call / return / leave ---

func execCall(m *Machine) error {
	d, err := m.scode32(1)
	if err != nil {
		return err
	}
	ret := m.eip + 5
	if err := m.push32(ret); err != nil {
		return err
	}
	m.eip = uint32(int64(ret) + int64(d))
	return nil
}

func execRet(m *Machine) error {
	v, err := m.pop32()
	if err != nil {
		return err
	}
	m.eip = v
	return nil
}

func execLeave(m *Machine) error {
	m.SetReg32(ESP, m.Reg32(EBP))
	v, err := m.pop32()
	if err != nil {
		return err
	}
	m.SetReg32(EBP, v)
	m.eip++
	return nil
}

// --- jumps ---

func execJmpRel32(m *Machine) error {
	d, err := m.scode32(1)
	if err != nil {
		return err
	}
	m.eip = uint32(int64(m.eip) + 5 + int64(d))
	return nil
}

func execJmpRel8(m *Machine) error {
	d, err := m.scode8(1)
	if err != nil {
		return err
	}
	m.eip = uint32(int64(m.eip) + 2 + int64(d))
	return nil
}

// jccConditions maps each Jcc opcode to the EFLAGS predicate that decides
// whether the branch is taken. 0x76/0x77/0x7D/0x7F are the supplemental
// conditions documented as additive in SPEC_FULL.md §4.4.
var jccConditions = map[uint8]func(m *Machine) bool{
	0x70: func(m *Machine) bool { return m.OF() },
	0x71: func(m *Machine) bool { return !m.OF() },
	0x72: func(m *Machine) bool { return m.CF() },
	0x73: func(m *Machine) bool { return !m.CF() },
	0x74: func(m *Machine) bool { return m.ZF() },
	0x75: func(m *Machine) bool { return !m.ZF() },
	0x76: func(m *Machine) bool { return m.CF() || m.ZF() },
	0x77: func(m *Machine) bool { return !m.CF() && !m.ZF() },
	0x78: func(m *Machine) bool { return m.SF() },
	0x79: func(m *Machine) bool { return !m.SF() },
	0x7C: func(m *Machine) bool { return m.SF() != m.OF() },
	0x7D: func(m *Machine) bool { return m.SF() == m.OF() },
	0x7E: func(m *Machine) bool { return m.ZF() || m.SF() != m.OF() },
	0x7F: func(m *Machine) bool { return !m.ZF() && m.SF() == m.OF() },
}

func jccHandler(cond func(m *Machine) bool) handler {
	return func(m *Machine) error {
		d, err := m.scode8(1)
		if err != nil {
			return err
		}
		if cond(m) {
			m.eip = uint32(int64(m.eip) + 2 + int64(d))
		} else {
			m.eip += 2
		}
		return nil
	}
}

// --- group opcodes ---

func execGroup83(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	imm, err := m.scode8(0)
	if err != nil {
		return err
	}
	m.eip++

	switch rm.Reg {
	case 0: // ADD r/m32, imm8 (sign-extended); flags not updated
		v, err := rm.ReadRM32(m)
		if err != nil {
			return err
		}
		return rm.WriteRM32(m, v+uint32(imm))
	case 5: // SUB r/m32, imm8
		v, err := rm.ReadRM32(m)
		if err != nil {
			return err
		}
		res := m.applySubFlags(v, uint32(imm))
		return rm.WriteRM32(m, res)
	case 7: // CMP r/m32, imm8
		v, err := rm.ReadRM32(m)
		if err != nil {
			return err
		}
		m.applySubFlags(v, uint32(imm))
		return nil
	default:
		return fmt.Errorf("cpu: unimplemented group opcode 0x83 /%d", rm.Reg)
	}
}

func execGroupFF(m *Machine) error {
	m.eip++
	rm, err := m.decodeModRM()
	if err != nil {
		return err
	}
	switch rm.Reg {
	case 0: // INC r/m32; flags not updated
		v, err := rm.ReadRM32(m)
		if err != nil {
			return err
		}
		return rm.WriteRM32(m, v+1)
	default:
		return fmt.Errorf("cpu: unimplemented group opcode 0xFF /%d", rm.Reg)
	}
}

// --- interrupt / port I/O ---

func execInt(m *Machine) error {
	vector, err := m.code8(1)
	if err != nil {
		return err
	}
	m.eip += 2
	return m.dispatchInterrupt(vector)
}

func execInAlDx(m *Machine) error {
	dx := uint16(m.Reg32(EDX))
	v, err := m.portIn8(dx)
	if err != nil {
		return err
	}
	if err := m.SetReg8(int(AL), v); err != nil {
		return err
	}
	m.eip++
	return nil
}

func execOutDxAl(m *Machine) error {
	dx := uint16(m.Reg32(EDX))
	al, err := m.Reg8(int(AL))
	if err != nil {
		return err
	}
	if err := m.portOut8(dx, al); err != nil {
		return err
	}
	m.eip++
	return nil
}
