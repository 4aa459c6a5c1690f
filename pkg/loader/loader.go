// Package loader reads a flat boot-sector-style binary image into a
// cpu.Machine at the fixed load address.
package loader

import (
	"fmt"
	"os"

	"github.com/oisee/x86emu/pkg/cpu"
)

// MaxImageSize is the largest image this loader accepts, matching the
// conventional 512-byte boot sector.
const MaxImageSize = 512

// Load reads at most MaxImageSize bytes from path and copies them into m
// at cpu.LoadAddress. EIP and ESP are left untouched; construct m with
// cpu.NewBootMachine to get the documented entry-point convention.
func Load(path string, m *cpu.Machine) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	return LoadBytes(data, m)
}

// LoadBytes loads an in-memory image, truncating to MaxImageSize. Used
// directly by tests, the batch runner, and the fuzzer so they don't need
// a file on disk for every image.
func LoadBytes(data []byte, m *cpu.Machine) error {
	if len(data) > MaxImageSize {
		data = data[:MaxImageSize]
	}
	if err := m.LoadBytes(cpu.LoadAddress, data); err != nil {
		return fmt.Errorf("loader: %w", err)
	}
	return nil
}
