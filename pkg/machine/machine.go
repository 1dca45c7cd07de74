// Package machine binds a CPU, its bus and its interrupt controller into a
// runnable system and drives them one clock tick at a time.
package machine

import (
	"errors"
	"fmt"
	"os"

	"github.com/oisee/sm83core/pkg/bus"
	"github.com/oisee/sm83core/pkg/cpu"
	"github.com/oisee/sm83core/pkg/interrupt"
)

var (
	// ErrBootROMSize is returned when a boot image is not exactly 256 bytes.
	ErrBootROMSize = errors.New("machine: boot rom must be 256 bytes")
	// ErrCPULocked is returned by Run when the CPU executed an illegal opcode.
	ErrCPULocked = errors.New("machine: cpu locked by illegal opcode")
)

// Config configures a machine. Zero values mean: no boot overlay, no
// cartridge, AckServiced, no tracing.
type Config struct {
	Boot     []byte // 256-byte boot image mapped at 0x0000 until FF50 is written
	ROM      []byte // cartridge image mapped read-only at 0x0000-0x7FFF
	SkipBoot bool   // start at 0x0100 with post-boot registers
	Ack      interrupt.AckPolicy
	Tracer   cpu.Tracer
}

// Machine is one emulated system. It is driven by a single goroutine.
type Machine struct {
	CPU   *cpu.CPU
	Bus   *bus.Mapped
	IC    *interrupt.Controller
	Clock uint64 // ticks since power on
}

// New builds a machine from cfg.
func New(cfg Config) (*Machine, error) {
	if len(cfg.Boot) != 0 && len(cfg.Boot) != bus.BootSize {
		return nil, fmt.Errorf("%w: got %d", ErrBootROMSize, len(cfg.Boot))
	}
	boot := cfg.Boot
	if cfg.SkipBoot {
		boot = nil
	}

	ic := &interrupt.Controller{}
	b := bus.NewMapped(ic, boot, cfg.ROM)
	m := &Machine{
		CPU: cpu.New(b, ic, cpu.WithAckPolicy(cfg.Ack), cpu.WithTracer(cfg.Tracer)),
		Bus: b,
		IC:  ic,
	}
	if cfg.SkipBoot {
		m.CPU.ResetPostBoot()
	}
	return m, nil
}

// LoadBootROM reads a boot image from path and checks its size.
func LoadBootROM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("machine: load boot rom: %w", err)
	}
	if len(data) != bus.BootSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrBootROMSize, path, len(data))
	}
	return data, nil
}

// LoadROM reads a cartridge image from path.
func LoadROM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("machine: load rom: %w", err)
	}
	return data, nil
}

// Tick advances the machine by one clock tick: the CPU cycles, then pending
// interrupts are checked.
func (m *Machine) Tick() {
	m.CPU.Cycle()
	m.CPU.HandleInterrupts()
	m.Clock++
}

// Run ticks the machine until ticks have elapsed, stop returns true, or the
// CPU locks. stop is checked once per tick and may be nil. A zero tick count
// runs until stopped or locked. Run returns the ticks executed.
func (m *Machine) Run(ticks uint64, stop func() bool) (uint64, error) {
	var n uint64
	for ticks == 0 || n < ticks {
		if m.CPU.Locked() {
			return n, fmt.Errorf("%w at %04X", ErrCPULocked, m.CPU.PC)
		}
		if stop != nil && stop() {
			return n, nil
		}
		m.Tick()
		n++
	}
	if m.CPU.Locked() {
		return n, fmt.Errorf("%w at %04X", ErrCPULocked, m.CPU.PC)
	}
	return n, nil
}

// Request latches an interrupt request, as a peripheral would.
func (m *Machine) Request(src interrupt.Source) {
	m.IC.Request(src)
}

// Peek reads the bus without side effects beyond the bus's own decoding.
func (m *Machine) Peek(addr uint16) uint8 {
	return m.Bus.Read(addr)
}
