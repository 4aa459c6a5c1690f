package inst

import "testing"

func TestCatalogCompleteness(t *testing.T) {
	defined := []byte{
		0x01, 0x3B, 0x3C, 0x3D, 0x68, 0x6A, 0x88, 0x89, 0x8A, 0x8B,
		0xC3, 0xC7, 0xC9, 0xCD, 0xE8, 0xE9, 0xEB, 0xEC, 0xEE, 0x83, 0xFF,
	}
	for i := 0; i < 8; i++ {
		defined = append(defined, byte(0x40+i), byte(0x50+i), byte(0x58+i), byte(0xB0+i), byte(0xB8+i))
	}
	for _, op := range defined {
		if !Known(op) {
			t.Errorf("opcode 0x%02X missing from catalog", op)
		}
	}
}

func TestGroupTablesCoverDocumentedSubOpcodes(t *testing.T) {
	if Group83[0].Mnemonic == "" || Group83[5].Mnemonic == "" || Group83[7].Mnemonic == "" {
		t.Fatal("group 0x83 must define /0 (ADD), /5 (SUB), /7 (CMP)")
	}
	if GroupFF[0].Mnemonic == "" {
		t.Fatal("group 0xFF must define /0 (INC)")
	}
}

func TestDisassembleBasic(t *testing.T) {
	cases := []struct {
		name   string
		code   []byte
		want   string
		length int
	}{
		{"mov eax imm32", []byte{0xB8, 0x2A, 0x00, 0x00, 0x00}, "mov eax, 0x0000002a", 5},
		{"inc ebx", []byte{0x43}, "inc ebx", 1},
		{"ret", []byte{0xC3}, "ret", 1},
		{"push imm8", []byte{0x6A, 0x00}, "push 0x00", 2},
		{"mov r/m32 imm32 reg-direct", []byte{0xC7, 0xC0, 0x01, 0x00, 0x00, 0x00}, "mov eax, 0x00000001", 6},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, n := Disassemble(c.code)
			if got != c.want || n != c.length {
				t.Errorf("Disassemble(%v) = %q, %d; want %q, %d", c.code, got, n, c.want, c.length)
			}
		})
	}
}

func TestDisassembleUnknownOpcodeIsBestEffort(t *testing.T) {
	got, n := Disassemble([]byte{0x0F})
	if n != 1 {
		t.Fatalf("unknown opcode should consume exactly 1 byte for display purposes, got %d", n)
	}
	if got == "" {
		t.Fatal("expected a non-empty placeholder for an unknown opcode")
	}
}
