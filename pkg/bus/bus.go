// Package bus provides the byte-addressed memory bus the CPU fetches through.
package bus

import "github.com/oisee/sm83core/pkg/interrupt"

// Bus is a 16-bit address space of bytes. Reads and writes never fail;
// mapping out-of-range or read-only addresses is the implementation's job.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, v uint8)
}

// Memory is a flat 64 KiB RAM with no mapping. Tests use it directly.
type Memory [0x10000]uint8

// Read implements Bus.
func (m *Memory) Read(addr uint16) uint8 {
	return m[addr]
}

// Write implements Bus.
func (m *Memory) Write(addr uint16, v uint8) {
	m[addr] = v
}

// Load copies data into memory starting at addr, wrapping at 0xFFFF.
func (m *Memory) Load(addr uint16, data []byte) {
	for i, b := range data {
		m[addr+uint16(i)] = b
	}
}

// Fixed addresses decoded by Mapped.
const (
	BootSize    = 0x0100
	ROMEnd      = 0x8000
	RegIF       = 0xFF0F
	RegBootOff  = 0xFF50
	RegIE       = 0xFFFF
	unusedIFBit = 0xE0
)

// Mapped is the machine bus: a boot overlay over the bottom of the cartridge
// ROM, the interrupt controller registers, and RAM for everything else.
type Mapped struct {
	ram  Memory
	boot []byte
	rom  []byte
	ic   *interrupt.Controller

	bootEnabled bool
}

// NewMapped creates a bus. boot may be nil, in which case no overlay is
// mapped; a boot image shorter than BootSize reads 0xFF past its end. rom may
// be nil, in which case 0x0000-0x7FFF is plain RAM.
func NewMapped(ic *interrupt.Controller, boot, rom []byte) *Mapped {
	return &Mapped{
		boot:        boot,
		rom:         rom,
		ic:          ic,
		bootEnabled: len(boot) > 0,
	}
}

// BootEnabled reports whether the boot overlay is still mapped.
func (b *Mapped) BootEnabled() bool {
	return b.bootEnabled
}

// Read implements Bus.
func (b *Mapped) Read(addr uint16) uint8 {
	switch {
	case b.bootEnabled && addr < BootSize:
		if int(addr) < len(b.boot) {
			return b.boot[addr]
		}
		return 0xFF
	case b.rom != nil && addr < ROMEnd:
		if int(addr) < len(b.rom) {
			return b.rom[addr]
		}
		return 0xFF
	case addr == RegIF:
		return b.ic.Requested | unusedIFBit
	case addr == RegIE:
		return b.ic.Enabled
	}
	return b.ram[addr]
}

// Write implements Bus.
func (b *Mapped) Write(addr uint16, v uint8) {
	switch {
	case b.rom != nil && addr < ROMEnd:
		// cartridge ROM is read-only; mapper registers are not emulated
		return
	case addr == RegIF:
		b.ic.Requested = v & interrupt.Mask
		return
	case addr == RegIE:
		b.ic.Enabled = v
		return
	case addr == RegBootOff && v != 0:
		b.bootEnabled = false
	}
	b.ram[addr] = v
}

// RAM returns a copy of the RAM image.
func (b *Mapped) RAM() []byte {
	out := make([]byte, len(b.ram))
	copy(out, b.ram[:])
	return out
}

// Restore loads a RAM image and the boot overlay flag, as saved by RAM and
// BootEnabled. The overlay cannot be re-enabled without boot data.
func (b *Mapped) Restore(ram []byte, bootEnabled bool) {
	copy(b.ram[:], ram)
	b.bootEnabled = bootEnabled && len(b.boot) > 0
}
