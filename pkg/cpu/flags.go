package cpu

// EFLAGS bit positions. Only these four are modeled; every other IA-32
// flag bit is left permanently zero.
const (
	FlagCF uint32 = 1 << 0 // Carry
	FlagZF uint32 = 1 << 6 // Zero
	FlagSF uint32 = 1 << 7 // Sign
	FlagOF uint32 = 1 << 11 // Overflow
)

func (m *Machine) setFlag(bit uint32, v bool) {
	if v {
		m.eflags |= bit
	} else {
		m.eflags &^= bit
	}
}

// CF reports the carry flag.
func (m *Machine) CF() bool { return m.eflags&FlagCF != 0 }

// ZF reports the zero flag.
func (m *Machine) ZF() bool { return m.eflags&FlagZF != 0 }

// SF reports the sign flag.
func (m *Machine) SF() bool { return m.eflags&FlagSF != 0 }

// OF reports the overflow flag.
func (m *Machine) OF() bool { return m.eflags&FlagOF != 0 }

// applySubFlags computes v1 - v2 and sets CF/ZF/SF/OF from the result,
// per the standard x86 subtraction-flags definition. It returns the
// wrapped 32-bit result so callers can both update flags and (for CMP)
// discard the result, or (for SUB) write it back.
func (m *Machine) applySubFlags(v1, v2 uint32) uint32 {
	r := uint64(v1) - uint64(v2)
	res32 := uint32(r)

	s1 := v1>>31 != 0
	s2 := v2>>31 != 0
	sr := res32>>31 != 0

	m.setFlag(FlagCF, r>>32 != 0)
	m.setFlag(FlagZF, res32 == 0)
	m.setFlag(FlagSF, sr)
	m.setFlag(FlagOF, s1 != s2 && s1 != sr)

	return res32
}
