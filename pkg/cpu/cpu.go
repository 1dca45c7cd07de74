// Package cpu implements the SM83 fetch/execute timing loop and interrupt
// dispatch. Both Cycle and HandleInterrupts are called once per clock tick
// by a single driver; neither blocks and neither is safe for concurrent use.
package cpu

import (
	"github.com/oisee/sm83core/pkg/bus"
	"github.com/oisee/sm83core/pkg/interrupt"
)

// Event describes one executed instruction. PC is the address of its opcode.
type Event struct {
	PC      uint16
	Opcode  uint8
	Operand uint16
}

// Tracer observes executed instructions. It must not touch CPU state.
type Tracer interface {
	Trace(e Event)
}

// CPU is one SM83 core. All mutable state is owned by the instance; several
// CPUs may run side by side sharing only the read-only instruction table.
type CPU struct {
	Registers
	PC     uint16
	SP     uint16
	IME    bool
	Halted bool

	// ticks accumulated toward the instruction at PC
	elapsed int
	// set by an illegal opcode, cleared by Reset
	locked bool

	bus    bus.Bus
	ic     *interrupt.Controller
	table  *Table
	tracer Tracer
	ack    interrupt.AckPolicy
}

// Option configures a CPU at construction.
type Option func(*CPU)

// WithTable replaces the default instruction table.
func WithTable(t *Table) Option {
	return func(c *CPU) { c.table = t }
}

// WithTracer installs an instruction observer.
func WithTracer(t Tracer) Option {
	return func(c *CPU) { c.tracer = t }
}

// WithAckPolicy selects how IF bits are cleared on dispatch.
func WithAckPolicy(p interrupt.AckPolicy) Option {
	return func(c *CPU) { c.ack = p }
}

// New creates a zeroed CPU bound to a bus and an interrupt controller.
func New(b bus.Bus, ic *interrupt.Controller, opts ...Option) *CPU {
	c := &CPU{
		bus:   b,
		ic:    ic,
		table: DefaultTable(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTracer replaces the instruction observer; nil disables tracing.
func (c *CPU) SetTracer(t Tracer) {
	c.tracer = t
}

// Reset zeroes all CPU state. Bindings are kept.
func (c *CPU) Reset() {
	c.Restore(State{})
}

// ResetPostBoot loads the DMG register values the boot ROM leaves behind,
// with PC at the cartridge entry point.
func (c *CPU) ResetPostBoot() {
	c.Restore(State{
		Registers: Registers{A: 0x01, F: 0xB0, B: 0x00, C: 0x13, D: 0x00, E: 0xD8, H: 0x01, L: 0x4D},
		PC:        0x0100,
		SP:        0xFFFE,
	})
}

// Locked reports whether the CPU has executed an illegal opcode.
func (c *CPU) Locked() bool {
	return c.locked
}

// Elapsed returns the ticks accumulated toward the in-flight instruction.
func (c *CPU) Elapsed() int {
	return c.elapsed
}

// State returns a copy of the CPU state.
func (c *CPU) State() State {
	return State{
		Registers: c.Registers,
		PC:        c.PC,
		SP:        c.SP,
		IME:       c.IME,
		Halted:    c.Halted,
		Locked:    c.locked,
		Elapsed:   c.elapsed,
	}
}

// Restore loads a state previously returned by State.
func (c *CPU) Restore(s State) {
	c.Registers = s.Registers
	c.F &= flagMask
	c.PC = s.PC
	c.SP = s.SP
	c.IME = s.IME
	c.Halted = s.Halted
	c.locked = s.Locked
	c.elapsed = s.Elapsed
}

// Cycle advances the instruction at PC by one clock tick. The instruction's
// effect fires on the tick that reaches its duration; earlier ticks only
// count. While halted or locked a tick does nothing.
func (c *CPU) Cycle() {
	if c.Halted || c.locked {
		return
	}

	op := c.bus.Read(c.PC)
	d := &c.table[op]

	c.elapsed++
	if c.elapsed < d.Duration {
		return
	}

	var operand uint16
	switch d.Length {
	case 2:
		operand = uint16(c.bus.Read(c.PC + 1))
	case 3:
		operand = uint16(c.bus.Read(c.PC+2))<<8 | uint16(c.bus.Read(c.PC+1))
	}

	pc := c.PC
	d.Effect(c, operand)

	if c.tracer != nil {
		c.tracer.Trace(Event{PC: pc, Opcode: op, Operand: operand})
	}

	if d.AdvancesPC {
		c.PC += uint16(d.Length)
	}
	c.elapsed = 0
}

// HandleInterrupts dispatches at most one pending, enabled interrupt.
//
// With IME clear nothing is dispatched, but a pending interrupt still wakes a
// halted CPU. A dispatch pushes PC, clears IME and Halted, jumps to the
// highest priority vector, drops any in-flight instruction progress and
// acknowledges IF according to the CPU's AckPolicy.
func (c *CPU) HandleInterrupts() {
	pending := c.ic.Pending()

	if !c.IME {
		if c.Halted && pending != 0 {
			c.Halted = false
		}
		return
	}
	if pending == 0 {
		return
	}

	v, _ := interrupt.Select(pending)

	c.push16(c.PC)
	c.IME = false
	c.Halted = false
	c.PC = v.Address
	c.elapsed = 0

	c.ic.Acknowledge(v, c.ack)
}

func (c *CPU) read(addr uint16) uint8 {
	return c.bus.Read(addr)
}

func (c *CPU) write(addr uint16, v uint8) {
	c.bus.Write(addr, v)
}

// push16 writes the high byte at SP-1 and the low byte at SP-2.
func (c *CPU) push16(v uint16) {
	c.bus.Write(c.SP-1, uint8(v>>8))
	c.bus.Write(c.SP-2, uint8(v))
	c.SP -= 2
}

func (c *CPU) pop16() uint16 {
	lo := c.bus.Read(c.SP)
	hi := c.bus.Read(c.SP + 1)
	c.SP += 2
	return uint16(hi)<<8 | uint16(lo)
}
