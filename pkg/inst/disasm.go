package inst

import (
	"fmt"
	"strings"
)

var reg32Names = [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
var reg8Names = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}

// modrmOperand renders the r/m operand's textual form without touching
// any machine state; purely for display.
func modrmOperand(names8or32 [8]string, mod, rm int, disp int32, hasDisp bool) string {
	if mod == 3 {
		return names8or32[rm]
	}
	if mod == 0 && rm == 5 {
		return fmt.Sprintf("[0x%08x]", uint32(disp))
	}
	base := reg32Names[rm]
	if hasDisp {
		if disp < 0 {
			return fmt.Sprintf("[%s - 0x%x]", base, -disp)
		}
		return fmt.Sprintf("[%s + 0x%x]", base, disp)
	}
	return fmt.Sprintf("[%s]", base)
}

// decodedModRM is the disassembler's own lightweight ModR/M reader; it
// mirrors pkg/cpu's decoding rules but operates on a plain byte slice so
// this package never needs a *cpu.Machine to describe code.
type decodedModRM struct {
	mod, reg, rm int
	disp         int32
	hasDisp      bool
	length       int // bytes consumed by the ModR/M + displacement (not counting SIB support)
	sib          bool
}

func readModRM(code []byte, at int) (decodedModRM, error) {
	if at >= len(code) {
		return decodedModRM{}, fmt.Errorf("inst: truncated instruction at offset %d", at)
	}
	b := code[at]
	d := decodedModRM{
		mod: int(b >> 6),
		reg: int((b >> 3) & 7),
		rm:  int(b & 7),
	}
	n := 1
	if d.mod != 3 && d.rm == 4 {
		d.sib = true
		return d, nil
	}
	switch {
	case d.mod == 0 && d.rm == 5:
		if at+n+4 > len(code) {
			return decodedModRM{}, fmt.Errorf("inst: truncated disp32 at offset %d", at)
		}
		d.disp = int32(le32(code[at+n:]))
		d.hasDisp = true
		n += 4
	case d.mod == 1:
		if at+n+1 > len(code) {
			return decodedModRM{}, fmt.Errorf("inst: truncated disp8 at offset %d", at)
		}
		d.disp = int32(int8(code[at+n]))
		d.hasDisp = true
		n++
	case d.mod == 2:
		if at+n+4 > len(code) {
			return decodedModRM{}, fmt.Errorf("inst: truncated disp32 at offset %d", at)
		}
		d.disp = int32(le32(code[at+n:]))
		d.hasDisp = true
		n += 4
	}
	d.length = n
	return d, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Disassemble renders one instruction's text form starting at offset 0 of
// code, and returns how many bytes it occupies. It never executes
// anything and never mutates code; on an opcode it doesn't recognize it
// renders a raw-byte placeholder one byte long rather than failing, since
// it is used for best-effort trace/coverage output, not correctness
// checking.
func Disassemble(code []byte) (text string, length int) {
	if len(code) == 0 {
		return "", 0
	}
	op := code[0]
	info := Catalog[op]

	switch info.Group {
	case "83":
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib || 1+rm.length+1 > len(code) {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		imm := int8(code[1+rm.length])
		entry := Group83[rm.reg]
		operand := modrmOperand(reg32Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		if entry.Mnemonic == "" {
			return fmt.Sprintf("db 0x%02x /%d", op, rm.reg), 2 + rm.length
		}
		return fmt.Sprintf(entry.Mnemonic, operand, uint8(imm)), 2 + rm.length
	case "ff":
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		entry := GroupFF[rm.reg]
		operand := modrmOperand(reg32Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		if entry.Mnemonic == "" {
			return fmt.Sprintf("db 0x%02x /%d", op, rm.reg), 1 + rm.length
		}
		return fmt.Sprintf(entry.Mnemonic, operand), 1 + rm.length
	}

	switch op {
	case 0x01, 0x89:
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		dst := modrmOperand(reg32Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		return fmt.Sprintf(info.Mnemonic, dst, reg32Names[rm.reg]), 1 + rm.length
	case 0x3B, 0x8B:
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		src := modrmOperand(reg32Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		return fmt.Sprintf(info.Mnemonic, reg32Names[rm.reg], src), 1 + rm.length
	case 0x88:
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		dst := modrmOperand(reg8Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		return fmt.Sprintf(info.Mnemonic, dst, reg8Names[rm.reg]), 1 + rm.length
	case 0x8A:
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		src := modrmOperand(reg8Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		return fmt.Sprintf(info.Mnemonic, reg8Names[rm.reg], src), 1 + rm.length
	case 0xC7:
		rm, err := readModRM(code, 1)
		if err != nil || rm.sib || 1+rm.length+4 > len(code) {
			return fmt.Sprintf("db 0x%02x", op), 1
		}
		dst := modrmOperand(reg32Names, rm.mod, rm.rm, rm.disp, rm.hasDisp)
		imm := le32(code[1+rm.length:])
		return fmt.Sprintf(info.Mnemonic, dst, imm), 1 + rm.length + 4
	}

	if info.Length == 0 {
		return fmt.Sprintf("db 0x%02x", op), 1
	}
	if info.Length > len(code) {
		return fmt.Sprintf("db 0x%02x", op), 1
	}
	isRelJump := strings.Contains(info.Mnemonic, "%+d")

	switch info.Length {
	case 1:
		return info.Mnemonic, 1
	case 2:
		if isRelJump {
			return fmt.Sprintf(info.Mnemonic, int(int8(code[1]))), 2
		}
		return fmt.Sprintf(info.Mnemonic, code[1]), 2
	case 5:
		if isRelJump {
			return fmt.Sprintf(info.Mnemonic, int32(le32(code[1:]))), 5
		}
		return fmt.Sprintf(info.Mnemonic, le32(code[1:])), 5
	default:
		return info.Mnemonic, info.Length
	}
}
