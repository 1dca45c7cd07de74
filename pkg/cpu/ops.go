package cpu

import "github.com/oisee/sm83core/pkg/inst"

// Effect performs one instruction. It runs with PC still pointing at the
// opcode; effects of instructions whose descriptor does not advance PC must
// position PC themselves, including on the not-taken path.
type Effect func(c *CPU, operand uint16)

// Descriptor binds an opcode's static metadata to its effect.
type Descriptor struct {
	inst.Info
	Effect Effect
}

// Table is the dense opcode-indexed instruction table. Once built it is never
// written, so one table can serve any number of CPUs.
type Table [256]Descriptor

var defaultTable = buildTable()

// DefaultTable returns the shared SM83 instruction table. Callers must not
// modify it; use Clone for a private copy.
func DefaultTable() *Table {
	return &defaultTable
}

// Clone returns a private copy of the table.
func (t *Table) Clone() *Table {
	n := *t
	return &n
}

func buildTable() Table {
	var t Table
	for op := 0; op < len(t); op++ {
		t[op] = Descriptor{Info: inst.Catalog[op], Effect: effectFor(uint8(op))}
	}
	return t
}

// effectFor decodes an opcode into its effect, following the SM83's regular
// x/y/z opcode layout where it applies.
func effectFor(op uint8) Effect {
	if inst.Catalog[op].Illegal {
		return opIllegal
	}

	y, z := (op>>3)&7, op&7

	switch {
	// === 8-bit loads, register to register ===
	case op >= 0x40 && op < 0x80 && op != 0x76:
		return func(c *CPU, _ uint16) { c.setReg8(y, c.reg8(z)) }

	// === 8-bit ALU on registers ===
	case op >= 0x80 && op < 0xC0:
		return func(c *CPU, _ uint16) { c.alu(y, c.reg8(z)) }

	// === 8-bit ALU on immediates (C6, CE, ... FE) ===
	case op >= 0xC0 && z == 6:
		return func(c *CPU, n uint16) { c.alu(y, uint8(n)) }

	// === INC r / DEC r / LD r, n ===
	case op < 0x40 && z == 4:
		return func(c *CPU, _ uint16) { c.setReg8(y, c.inc8(c.reg8(y))) }
	case op < 0x40 && z == 5:
		return func(c *CPU, _ uint16) { c.setReg8(y, c.dec8(c.reg8(y))) }
	case op < 0x40 && z == 6:
		return func(c *CPU, n uint16) { c.setReg8(y, uint8(n)) }

	// === RST: push return address, jump to op & 0x38 ===
	case op >= 0xC0 && z == 7:
		vector := uint16(op & 0x38)
		return func(c *CPU, _ uint16) {
			c.push16(c.PC + 1)
			c.PC = vector
		}
	}

	p, q := y>>1, y&1

	switch {
	// === 16-bit loads and arithmetic (x=0) ===
	case op < 0x40 && z == 1 && q == 0:
		return func(c *CPU, nn uint16) { c.setRP(p, nn) }
	case op < 0x40 && z == 1 && q == 1:
		return func(c *CPU, _ uint16) { c.addHL(c.rp(p)) }
	case op < 0x40 && z == 3 && q == 0:
		return func(c *CPU, _ uint16) { c.setRP(p, c.rp(p)+1) }
	case op < 0x40 && z == 3 && q == 1:
		return func(c *CPU, _ uint16) { c.setRP(p, c.rp(p)-1) }

	// === PUSH / POP ===
	case op >= 0xC0 && z == 1 && q == 0:
		return func(c *CPU, _ uint16) { c.setRP2(p, c.pop16()) }
	case op >= 0xC0 && z == 5 && q == 0:
		return func(c *CPU, _ uint16) { c.push16(c.rp2(p)) }

	// === Conditional control flow ===
	case op >= 0x20 && op < 0x40 && z == 0:
		cc := y - 4
		return func(c *CPU, e uint16) { c.jr(c.cond(cc), e) }
	case op >= 0xC0 && op < 0xE0 && z == 0:
		return func(c *CPU, _ uint16) { c.ret(c.cond(y)) }
	case op >= 0xC0 && op < 0xE0 && z == 2:
		return func(c *CPU, nn uint16) { c.jp(c.cond(y), nn) }
	case op >= 0xC0 && op < 0xE0 && z == 4:
		return func(c *CPU, nn uint16) { c.call(c.cond(y), nn) }
	}

	if e, ok := fixedEffects[op]; ok {
		return e
	}
	panic("cpu: no effect for opcode") // unreachable while the catalog is total
}

// fixedEffects covers the opcodes that do not follow a register pattern.
var fixedEffects = map[uint8]Effect{
	0x00: func(c *CPU, _ uint16) {},
	0x02: func(c *CPU, _ uint16) { c.write(c.BC(), c.A) },
	0x0A: func(c *CPU, _ uint16) { c.A = c.read(c.BC()) },
	0x12: func(c *CPU, _ uint16) { c.write(c.DE(), c.A) },
	0x1A: func(c *CPU, _ uint16) { c.A = c.read(c.DE()) },
	0x22: func(c *CPU, _ uint16) { c.write(c.HL(), c.A); c.SetHL(c.HL() + 1) },
	0x2A: func(c *CPU, _ uint16) { c.A = c.read(c.HL()); c.SetHL(c.HL() + 1) },
	0x32: func(c *CPU, _ uint16) { c.write(c.HL(), c.A); c.SetHL(c.HL() - 1) },
	0x3A: func(c *CPU, _ uint16) { c.A = c.read(c.HL()); c.SetHL(c.HL() - 1) },

	0x07: func(c *CPU, _ uint16) { c.A = c.rlc(c.A); c.SetFlag(FlagZ, false) },
	0x0F: func(c *CPU, _ uint16) { c.A = c.rrc(c.A); c.SetFlag(FlagZ, false) },
	0x17: func(c *CPU, _ uint16) { c.A = c.rl(c.A); c.SetFlag(FlagZ, false) },
	0x1F: func(c *CPU, _ uint16) { c.A = c.rr(c.A); c.SetFlag(FlagZ, false) },

	0x08: func(c *CPU, nn uint16) {
		c.write(nn, uint8(c.SP))
		c.write(nn+1, uint8(c.SP>>8))
	},
	0x10: func(c *CPU, _ uint16) { c.Halted = true },
	0x18: func(c *CPU, e uint16) { c.jr(true, e) },
	0x27: (*CPU).daa,
	0x2F: func(c *CPU, _ uint16) {
		c.A = ^c.A
		c.SetFlag(FlagN|FlagH, true)
	},
	0x37: func(c *CPU, _ uint16) {
		c.F = c.F&FlagZ | FlagC
	},
	0x3F: func(c *CPU, _ uint16) {
		c.F = c.F&(FlagZ|FlagC) ^ FlagC
	},
	0x76: func(c *CPU, _ uint16) { c.Halted = true },

	0xC3: func(c *CPU, nn uint16) { c.jp(true, nn) },
	0xC9: func(c *CPU, _ uint16) { c.ret(true) },
	0xCB: func(c *CPU, n uint16) { c.execCB(uint8(n)) },
	0xCD: func(c *CPU, nn uint16) { c.call(true, nn) },
	0xD9: func(c *CPU, _ uint16) {
		c.ret(true)
		c.IME = true
	},

	0xE0: func(c *CPU, n uint16) { c.write(0xFF00|n&0xFF, c.A) },
	0xF0: func(c *CPU, n uint16) { c.A = c.read(0xFF00 | n&0xFF) },
	0xE2: func(c *CPU, _ uint16) { c.write(0xFF00|uint16(c.C), c.A) },
	0xF2: func(c *CPU, _ uint16) { c.A = c.read(0xFF00 | uint16(c.C)) },
	0xEA: func(c *CPU, nn uint16) { c.write(nn, c.A) },
	0xFA: func(c *CPU, nn uint16) { c.A = c.read(nn) },

	0xE8: func(c *CPU, e uint16) { c.SP = c.addSPSigned(e) },
	0xF8: func(c *CPU, e uint16) { c.SetHL(c.addSPSigned(e)) },
	0xF9: func(c *CPU, _ uint16) { c.SP = c.HL() },
	0xE9: func(c *CPU, _ uint16) { c.PC = c.HL() },

	0xF3: func(c *CPU, _ uint16) { c.IME = false },
	0xFB: func(c *CPU, _ uint16) { c.IME = true },
}

func opIllegal(c *CPU, _ uint16) {
	c.locked = true
}

// reg8 reads a register by its 3-bit encoding; 6 is the byte at (HL).
func (c *CPU) reg8(i uint8) uint8 {
	switch i {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read(c.HL())
	}
	return c.A
}

func (c *CPU) setReg8(i, v uint8) {
	switch i {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write(c.HL(), v)
	default:
		c.A = v
	}
}

// rp reads BC, DE, HL or SP by 2-bit encoding.
func (c *CPU) rp(i uint8) uint16 {
	switch i {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	}
	return c.SP
}

func (c *CPU) setRP(i uint8, v uint16) {
	switch i {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

// rp2 is rp with AF in place of SP (PUSH/POP).
func (c *CPU) rp2(i uint8) uint16 {
	if i == 3 {
		return c.AF()
	}
	return c.rp(i)
}

func (c *CPU) setRP2(i uint8, v uint16) {
	if i == 3 {
		c.SetAF(v)
		return
	}
	c.setRP(i, v)
}

// cond evaluates NZ, Z, NC, C by 2-bit encoding.
func (c *CPU) cond(i uint8) bool {
	switch i & 3 {
	case 0:
		return !c.Flag(FlagZ)
	case 1:
		return c.Flag(FlagZ)
	case 2:
		return !c.Flag(FlagC)
	}
	return c.Flag(FlagC)
}

func (c *CPU) jr(taken bool, e uint16) {
	next := c.PC + 2
	if taken {
		next += uint16(int16(int8(e)))
	}
	c.PC = next
}

func (c *CPU) jp(taken bool, nn uint16) {
	if taken {
		c.PC = nn
		return
	}
	c.PC += 3
}

func (c *CPU) call(taken bool, nn uint16) {
	next := c.PC + 3
	if !taken {
		c.PC = next
		return
	}
	c.push16(next)
	c.PC = nn
}

func (c *CPU) ret(taken bool) {
	if !taken {
		c.PC++
		return
	}
	c.PC = c.pop16()
}

// alu applies ADD, ADC, SUB, SBC, AND, XOR, OR or CP to A.
func (c *CPU) alu(kind, v uint8) {
	a := c.A
	switch kind {
	case 0: // ADD
		r := uint16(a) + uint16(v)
		c.A = uint8(r)
		c.setZNHC(c.A == 0, false, a&0x0F+v&0x0F > 0x0F, r > 0xFF)
	case 1: // ADC
		cy := c.carry()
		r := uint16(a) + uint16(v) + uint16(cy)
		c.A = uint8(r)
		c.setZNHC(c.A == 0, false, a&0x0F+v&0x0F+cy > 0x0F, r > 0xFF)
	case 2: // SUB
		c.A = a - v
		c.setZNHC(c.A == 0, true, a&0x0F < v&0x0F, a < v)
	case 3: // SBC
		cy := int(c.carry())
		r := int(a) - int(v) - cy
		c.A = uint8(r)
		c.setZNHC(c.A == 0, true, int(a&0x0F)-int(v&0x0F)-cy < 0, r < 0)
	case 4: // AND
		c.A = a & v
		c.setZNHC(c.A == 0, false, true, false)
	case 5: // XOR
		c.A = a ^ v
		c.setZNHC(c.A == 0, false, false, false)
	case 6: // OR
		c.A = a | v
		c.setZNHC(c.A == 0, false, false, false)
	default: // CP
		c.setZNHC(a == v, true, a&0x0F < v&0x0F, a < v)
	}
}

// inc8 and dec8 leave the carry flag alone.
func (c *CPU) inc8(v uint8) uint8 {
	r := v + 1
	c.F = c.F&FlagC | zeroFlag(r)
	c.SetFlag(FlagH, v&0x0F == 0x0F)
	return r
}

func (c *CPU) dec8(v uint8) uint8 {
	r := v - 1
	c.F = c.F&FlagC | zeroFlag(r) | FlagN
	c.SetFlag(FlagH, v&0x0F == 0)
	return r
}

// addHL leaves Z alone.
func (c *CPU) addHL(v uint16) {
	hl := c.HL()
	r := uint32(hl) + uint32(v)
	c.F &= FlagZ
	c.SetFlag(FlagH, hl&0x0FFF+v&0x0FFF > 0x0FFF)
	c.SetFlag(FlagC, r > 0xFFFF)
	c.SetHL(uint16(r))
}

// addSPSigned returns SP plus a signed displacement. H and C come from the
// unsigned low byte addition; Z and N are cleared.
func (c *CPU) addSPSigned(e uint16) uint16 {
	u := e & 0xFF
	c.setZNHC(false, false, c.SP&0x0F+u&0x0F > 0x0F, c.SP&0xFF+u > 0xFF)
	return c.SP + uint16(int16(int8(e)))
}

func (c *CPU) daa(_ uint16) {
	a := c.A
	carry := c.Flag(FlagC)
	var adjust uint8
	if c.Flag(FlagN) {
		if c.Flag(FlagH) {
			adjust |= 0x06
		}
		if carry {
			adjust |= 0x60
		}
		a -= adjust
	} else {
		if c.Flag(FlagH) || a&0x0F > 0x09 {
			adjust |= 0x06
		}
		if carry || a > 0x99 {
			adjust |= 0x60
			carry = true
		}
		a += adjust
	}
	c.A = a
	c.F = c.F&FlagN | zeroFlag(a)
	c.SetFlag(FlagC, carry)
}

func zeroFlag(v uint8) uint8 {
	if v == 0 {
		return FlagZ
	}
	return 0
}
