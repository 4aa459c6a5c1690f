// Package inst holds static per-opcode metadata used for disassembly (the
// CLI's disasm subcommand). Nothing in this package is consulted by the
// execute path in pkg/cpu, the trace lines, the batch runner, or the
// fuzzer; it only describes code, it never runs it.
package inst

import "fmt"

// Info describes one opcode: its mnemonic template, its fixed encoded
// length when that length does not depend on a sub-opcode, and whether
// it belongs to one of the two ModR/M-reg-selected opcode groups.
type Info struct {
	Mnemonic string
	Length   int    // 0 when length depends on decoding (ModR/M, group)
	Group    string // "" unless this is a group opcode (0x83, 0xFF)
}

// Catalog is indexed directly by the opcode byte.
var Catalog [256]Info

// GroupEntry describes one sub-opcode of a ModR/M-reg-selected group.
type GroupEntry struct {
	Mnemonic string
}

// Group83 and GroupFF are indexed by the ModR/M reg sub-field (0..7).
var Group83 [8]GroupEntry
var GroupFF [8]GroupEntry

func init() {
	set := func(op byte, mnemonic string, length int) {
		Catalog[op] = Info{Mnemonic: mnemonic, Length: length}
	}

	set(0x01, "add %s, %s", 0)
	set(0x3B, "cmp %s, %s", 0)
	set(0x3C, "cmp al, 0x%02x", 2)
	set(0x3D, "cmp eax, 0x%08x", 5)
	set(0x68, "push 0x%08x", 5)
	set(0x6A, "push 0x%02x", 2)
	set(0x88, "mov %s, %s", 0)
	set(0x89, "mov %s, %s", 0)
	set(0x8A, "mov %s, %s", 0)
	set(0x8B, "mov %s, %s", 0)
	set(0xC3, "ret", 1)
	set(0xC7, "mov %s, 0x%08x", 0)
	set(0xC9, "leave", 1)
	set(0xCD, "int 0x%02x", 2)
	set(0xE8, "call %+d", 5)
	set(0xE9, "jmp %+d", 5)
	set(0xEB, "jmp %+d", 2)
	set(0xEC, "in al, dx", 1)
	set(0xEE, "out dx, al", 1)
	set(0x83, "", 0)
	Catalog[0x83] = Info{Mnemonic: "", Length: 0, Group: "83"}
	Catalog[0xFF] = Info{Mnemonic: "", Length: 0, Group: "ff"}

	regNames32 := [8]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
	for i := 0; i < 8; i++ {
		set(byte(0x40+i), "inc "+regNames32[i], 1)
		set(byte(0x50+i), "push "+regNames32[i], 1)
		set(byte(0x58+i), "pop "+regNames32[i], 1)
		set(byte(0xB8+i), "mov "+regNames32[i]+", 0x%08x", 5)
	}
	reg8Names := [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
	for i := 0; i < 8; i++ {
		set(byte(0xB0+i), "mov "+reg8Names[i]+", 0x%02x", 2)
	}

	jcc := map[byte]string{
		0x70: "jo", 0x71: "jno", 0x72: "jc", 0x73: "jnc",
		0x74: "jz", 0x75: "jnz", 0x76: "jbe", 0x77: "ja",
		0x78: "js", 0x79: "jns", 0x7C: "jl", 0x7D: "jge",
		0x7E: "jle", 0x7F: "jg",
	}
	for op, mnem := range jcc {
		set(op, mnem+" %+d", 2)
	}

	Group83[0] = GroupEntry{"add %s, 0x%02x"}
	Group83[5] = GroupEntry{"sub %s, 0x%02x"}
	Group83[7] = GroupEntry{"cmp %s, 0x%02x"}
	GroupFF[0] = GroupEntry{"inc %s"}
}

// Known reports whether op has a catalog entry (a fixed-length
// instruction or one of the two groups).
func Known(op byte) bool {
	return Catalog[op].Mnemonic != "" || Catalog[op].Group != ""
}

// Mnemonic returns a short human-readable name for a known opcode byte,
// or a placeholder for one this catalog does not describe.
func Mnemonic(op byte) string {
	info := Catalog[op]
	if info.Group != "" {
		return fmt.Sprintf("group-0x%s", info.Group)
	}
	if info.Mnemonic == "" {
		return fmt.Sprintf("db 0x%02x", op)
	}
	return info.Mnemonic
}
