// Package bios implements the one BIOS video service this instruction
// set exposes: INT 0x10, AH=0x0E (teletype output). It satisfies
// cpu.BIOSHandler.
package bios

import (
	"fmt"
	"io"
	"os"

	"github.com/oisee/x86emu/pkg/cpu"
)

// teletypeColors maps the low 3 bits of BL (the BIOS foreground color
// index) to the corresponding ANSI SGR color code.
var teletypeColors = [8]int{30, 34, 32, 36, 31, 35, 33, 37}

// Video services INT 0x10. Function AH=0x0E writes one colored character
// to Out; any other function is reported to Diag and otherwise ignored.
type Video struct {
	Out  io.Writer
	Diag io.Writer
}

// NewVideo returns a Video writing characters to stdout and diagnostics
// to stderr.
func NewVideo() *Video {
	return &Video{Out: os.Stdout, Diag: os.Stderr}
}

// HandleInterrupt implements cpu.BIOSHandler. Only vector 0x10 is
// meaningful; any other vector is reported and ignored, matching the
// interrupt dispatch's documented non-fatal treatment of unknown
// vectors.
func (v *Video) HandleInterrupt(m *cpu.Machine, vector uint8) error {
	if vector != 0x10 {
		fmt.Fprintf(v.diag(), "bios: not implemented interrupt vector 0x%02x\n", vector)
		return nil
	}

	ah, err := m.Reg8(cpu.AHIndex)
	if err != nil {
		return err
	}
	if ah != 0x0E {
		fmt.Fprintf(v.diag(), "bios: not implemented BIOS video function: 0x%02x\n", ah)
		return nil
	}

	al, err := m.Reg8(cpu.ALIndex)
	if err != nil {
		return err
	}
	bl, err := m.Reg8(cpu.BLIndex)
	if err != nil {
		return err
	}

	color := teletypeColors[bl&0x07]
	bright := 0
	if bl&0x08 != 0 {
		bright = 1
	}
	fmt.Fprintf(v.out(), "\x1b[%d;%dm%c\x1b[0m", bright, color, al)
	return nil
}

func (v *Video) out() io.Writer {
	if v.Out == nil {
		return os.Stdout
	}
	return v.Out
}

func (v *Video) diag() io.Writer {
	if v.Diag == nil {
		return os.Stderr
	}
	return v.Diag
}
