package inst

// AllOps returns all 256 opcodes (for enumeration).
func AllOps() []OpCode {
	ops := make([]OpCode, 0, len(Catalog))
	for i := 0; i < len(Catalog); i++ {
		ops = append(ops, OpCode(i))
	}
	return ops
}

// SeqByteSize returns total byte size for a sequence of opcodes.
func SeqByteSize(seq []OpCode) int {
	n := 0
	for _, op := range seq {
		n += Length(op)
	}
	return n
}

// SeqDuration returns total clock ticks for a sequence of opcodes.
func SeqDuration(seq []OpCode) int {
	t := 0
	for _, op := range seq {
		t += Duration(op)
	}
	return t
}

type entry struct {
	op       OpCode
	mnemonic string
	length   int
	duration int
}

// set registers a group of opcodes that advance PC normally.
func set(entries []entry) {
	for _, e := range entries {
		Catalog[e.op] = Info{Mnemonic: e.mnemonic, Length: e.length, Duration: e.duration, AdvancesPC: true}
	}
}

// setFlow registers a group of opcodes whose effects position PC themselves.
func setFlow(entries []entry) {
	for _, e := range entries {
		Catalog[e.op] = Info{Mnemonic: e.mnemonic, Length: e.length, Duration: e.duration}
	}
}

var regNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var aluNames = [8]string{"ADD A, ", "ADC A, ", "SUB ", "SBC A, ", "AND ", "XOR ", "OR ", "CP "}

func init() {
	// === Register-to-register loads (0x40-0x7F): 4 ticks, 8 through (HL) ===
	for op := 0x40; op < 0x80; op++ {
		if op == 0x76 {
			continue // HALT sits in the (HL),(HL) slot
		}
		dst, src := (op>>3)&7, op&7
		duration := 4
		if dst == 6 || src == 6 {
			duration = 8
		}
		Catalog[op] = Info{
			Mnemonic:   "LD " + regNames[dst] + ", " + regNames[src],
			Length:     1,
			Duration:   duration,
			AdvancesPC: true,
		}
	}

	// === 8-bit ALU on registers (0x80-0xBF) ===
	for op := 0x80; op < 0xC0; op++ {
		alu, src := (op>>3)&7, op&7
		duration := 4
		if src == 6 {
			duration = 8
		}
		Catalog[op] = Info{
			Mnemonic:   aluNames[alu] + regNames[src],
			Length:     1,
			Duration:   duration,
			AdvancesPC: true,
		}
	}

	// === INC r / DEC r / LD r, n ===
	for r := 0; r < 8; r++ {
		incDec, imm := 4, 8
		if r == 6 {
			incDec, imm = 12, 12
		}
		Catalog[r<<3|0x04] = Info{Mnemonic: "INC " + regNames[r], Length: 1, Duration: incDec, AdvancesPC: true}
		Catalog[r<<3|0x05] = Info{Mnemonic: "DEC " + regNames[r], Length: 1, Duration: incDec, AdvancesPC: true}
		Catalog[r<<3|0x06] = Info{Mnemonic: "LD " + regNames[r] + ", n", Length: 2, Duration: imm, AdvancesPC: true}
	}

	// === 16-bit loads, arithmetic and indirect accumulator loads ===
	set([]entry{
		{0x00, "NOP", 1, 4},
		{0x01, "LD BC, nn", 3, 12},
		{0x02, "LD (BC), A", 1, 8},
		{0x03, "INC BC", 1, 8},
		{0x07, "RLCA", 1, 4},
		{0x08, "LD (nn), SP", 3, 20},
		{0x09, "ADD HL, BC", 1, 8},
		{0x0A, "LD A, (BC)", 1, 8},
		{0x0B, "DEC BC", 1, 8},
		{0x0F, "RRCA", 1, 4},

		{0x10, "STOP", 2, 4},
		{0x11, "LD DE, nn", 3, 12},
		{0x12, "LD (DE), A", 1, 8},
		{0x13, "INC DE", 1, 8},
		{0x17, "RLA", 1, 4},
		{0x19, "ADD HL, DE", 1, 8},
		{0x1A, "LD A, (DE)", 1, 8},
		{0x1B, "DEC DE", 1, 8},
		{0x1F, "RRA", 1, 4},

		{0x21, "LD HL, nn", 3, 12},
		{0x22, "LD (HL+), A", 1, 8},
		{0x23, "INC HL", 1, 8},
		{0x27, "DAA", 1, 4},
		{0x29, "ADD HL, HL", 1, 8},
		{0x2A, "LD A, (HL+)", 1, 8},
		{0x2B, "DEC HL", 1, 8},
		{0x2F, "CPL", 1, 4},

		{0x31, "LD SP, nn", 3, 12},
		{0x32, "LD (HL-), A", 1, 8},
		{0x33, "INC SP", 1, 8},
		{0x37, "SCF", 1, 4},
		{0x39, "ADD HL, SP", 1, 8},
		{0x3A, "LD A, (HL-)", 1, 8},
		{0x3B, "DEC SP", 1, 8},
		{0x3F, "CCF", 1, 4},

		{0x76, "HALT", 1, 4},

		{0xC1, "POP BC", 1, 12},
		{0xC5, "PUSH BC", 1, 16},
		{0xC6, "ADD A, n", 2, 8},
		{0xCB, "PREFIX CB", 2, 8},
		{0xCE, "ADC A, n", 2, 8},

		{0xD1, "POP DE", 1, 12},
		{0xD5, "PUSH DE", 1, 16},
		{0xD6, "SUB n", 2, 8},
		{0xDE, "SBC A, n", 2, 8},

		{0xE0, "LDH (n), A", 2, 12},
		{0xE1, "POP HL", 1, 12},
		{0xE2, "LD (C), A", 1, 8},
		{0xE5, "PUSH HL", 1, 16},
		{0xE6, "AND n", 2, 8},
		{0xE8, "ADD SP, e", 2, 16},
		{0xEA, "LD (nn), A", 3, 16},
		{0xEE, "XOR n", 2, 8},

		{0xF0, "LDH A, (n)", 2, 12},
		{0xF1, "POP AF", 1, 12},
		{0xF2, "LD A, (C)", 1, 8},
		{0xF3, "DI", 1, 4},
		{0xF5, "PUSH AF", 1, 16},
		{0xF6, "OR n", 2, 8},
		{0xF8, "LD HL, SP+e", 2, 12},
		{0xF9, "LD SP, HL", 1, 8},
		{0xFA, "LD A, (nn)", 3, 16},
		{0xFB, "EI", 1, 4},
		{0xFE, "CP n", 2, 8},
	})

	// === Control flow: conditional forms carry their taken duration ===
	setFlow([]entry{
		{0x18, "JR e", 2, 12},
		{0x20, "JR NZ, e", 2, 12},
		{0x28, "JR Z, e", 2, 12},
		{0x30, "JR NC, e", 2, 12},
		{0x38, "JR C, e", 2, 12},

		{0xC0, "RET NZ", 1, 20},
		{0xC8, "RET Z", 1, 20},
		{0xD0, "RET NC", 1, 20},
		{0xD8, "RET C", 1, 20},
		{0xC9, "RET", 1, 16},
		{0xD9, "RETI", 1, 16},

		{0xC2, "JP NZ, nn", 3, 16},
		{0xCA, "JP Z, nn", 3, 16},
		{0xD2, "JP NC, nn", 3, 16},
		{0xDA, "JP C, nn", 3, 16},
		{0xC3, "JP nn", 3, 16},
		{0xE9, "JP HL", 1, 4},

		{0xC4, "CALL NZ, nn", 3, 24},
		{0xCC, "CALL Z, nn", 3, 24},
		{0xD4, "CALL NC, nn", 3, 24},
		{0xDC, "CALL C, nn", 3, 24},
		{0xCD, "CALL nn", 3, 24},

		{0xC7, "RST 00h", 1, 16},
		{0xCF, "RST 08h", 1, 16},
		{0xD7, "RST 10h", 1, 16},
		{0xDF, "RST 18h", 1, 16},
		{0xE7, "RST 20h", 1, 16},
		{0xEF, "RST 28h", 1, 16},
		{0xF7, "RST 30h", 1, 16},
		{0xFF, "RST 38h", 1, 16},
	})

	// === Undefined opcodes: the CPU locks and PC stays put ===
	for _, op := range []OpCode{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		Catalog[op] = Info{Mnemonic: "ILLEGAL", Length: 1, Duration: 4, Illegal: true}
	}
}
