package cpu

import "testing"

// step runs ticks until one whole instruction has completed.
func step(c *CPU) {
	for {
		c.Cycle()
		if c.Elapsed() == 0 {
			return
		}
	}
}

// runUntilHalt steps until HALT, failing after limit instructions.
func runUntilHalt(t *testing.T, c *CPU, limit int) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if c.Halted {
			return
		}
		step(c)
	}
	if !c.Halted {
		t.Fatalf("not halted after %d instructions, PC=%04X", limit, c.PC)
	}
}

func TestCountingLoop(t *testing.T) {
	c, _, _ := newTestCPU([]byte{
		0x06, 0x03, // LD B, 3
		0xAF,       // XOR A
		0x3C,       // loop: INC A
		0x05,       // DEC B
		0x20, 0xFC, // JR NZ, loop
		0x76,       // HALT
	})
	runUntilHalt(t, c, 50)
	if c.A != 3 || c.B != 0 {
		t.Errorf("A=%02X B=%02X, want 03 00", c.A, c.B)
	}
	if c.PC != 0x0008 {
		t.Errorf("PC = %04X, want 0008", c.PC)
	}
	if !c.Flag(FlagZ) {
		t.Error("Z should be set by the final DEC B")
	}
}

func TestCallRet(t *testing.T) {
	program := make([]byte, 0x20)
	copy(program, []byte{
		0x31, 0xFE, 0xFF, // LD SP, FFFEh
		0xCD, 0x10, 0x00, // CALL 0010h
		0x76,             // HALT
	})
	copy(program[0x10:], []byte{
		0x3E, 0x42, // LD A, 42h
		0xC9,       // RET
	})
	c, mem, _ := newTestCPU(program)
	runUntilHalt(t, c, 10)

	if c.A != 0x42 {
		t.Errorf("A = %02X, want 42", c.A)
	}
	if c.SP != 0xFFFE {
		t.Errorf("SP = %04X, want FFFE", c.SP)
	}
	if mem.Read(0xFFFD) != 0x00 || mem.Read(0xFFFC) != 0x06 {
		t.Errorf("return address on stack = %02X%02X, want 0006", mem.Read(0xFFFD), mem.Read(0xFFFC))
	}
}

func TestPushPopAFMasksFlags(t *testing.T) {
	c, _, _ := newTestCPU([]byte{
		0x01, 0xFF, 0x12, // LD BC, 12FFh
		0xC5,             // PUSH BC
		0xF1,             // POP AF
	})
	c.SP = 0xD000
	for i := 0; i < 3; i++ {
		step(c)
	}
	if c.AF() != 0x12F0 {
		t.Errorf("AF = %04X, want 12F0", c.AF())
	}
	if c.SP != 0xD000 {
		t.Errorf("SP = %04X, want D000", c.SP)
	}
}

func TestCBOps(t *testing.T) {
	c, _, _ := newTestCPU([]byte{
		0x3E, 0x80, // LD A, 80h
		0xCB, 0x7F, // BIT 7, A
		0xCB, 0x17, // RL A
		0xCB, 0x47, // BIT 0, A
	})
	step(c)
	step(c)
	if c.Flag(FlagZ) || !c.Flag(FlagH) {
		t.Errorf("BIT 7 of 80h: F = %02X", c.F)
	}
	step(c)
	if c.A != 0x00 || !c.Flag(FlagZ) || !c.Flag(FlagC) {
		t.Errorf("RL A: A=%02X F=%02X", c.A, c.F)
	}
	step(c)
	if !c.Flag(FlagZ) || !c.Flag(FlagC) || c.Flag(FlagN) {
		t.Errorf("BIT 0 must keep carry: F = %02X", c.F)
	}
	if c.PC != 0x0008 {
		t.Errorf("PC = %04X, want 0008", c.PC)
	}
}

func TestCBMemoryOperand(t *testing.T) {
	c, mem, _ := newTestCPU([]byte{
		0x21, 0x00, 0xC0, // LD HL, C000h
		0xCB, 0xC6,       // SET 0, (HL)
		0xCB, 0x36,       // SWAP (HL)
	})
	step(c)
	step(c)
	if mem.Read(0xC000) != 0x01 {
		t.Errorf("SET 0, (HL): [C000] = %02X", mem.Read(0xC000))
	}
	step(c)
	if mem.Read(0xC000) != 0x10 {
		t.Errorf("SWAP (HL): [C000] = %02X, want 10", mem.Read(0xC000))
	}
}

func TestDAA(t *testing.T) {
	tests := []struct {
		a, n  uint8
		want  uint8
		zero  bool
		carry bool
	}{
		{0x15, 0x27, 0x42, false, false},
		{0x99, 0x01, 0x00, true, true},
		{0x09, 0x01, 0x10, false, false},
	}
	for _, tc := range tests {
		c, _, _ := newTestCPU([]byte{
			0x3E, tc.a, // LD A, a
			0xC6, tc.n, // ADD A, n
			0x27,       // DAA
		})
		for i := 0; i < 3; i++ {
			step(c)
		}
		if c.A != tc.want || c.Flag(FlagZ) != tc.zero || c.Flag(FlagC) != tc.carry {
			t.Errorf("%02X+%02X: A=%02X F=%02X, want A=%02X", tc.a, tc.n, c.A, c.F, tc.want)
		}
	}
}

func TestALUFlags(t *testing.T) {
	tests := []struct {
		name    string
		op      uint8
		a, n    uint8
		carryIn bool
		want    uint8
		f       uint8
	}{
		{"ADD half carry", 0xC6, 0x0F, 0x01, false, 0x10, FlagH},
		{"ADD overflow", 0xC6, 0xFF, 0x01, false, 0x00, FlagZ | FlagH | FlagC},
		{"ADC carry in", 0xCE, 0x10, 0x01, true, 0x12, 0},
		{"SUB borrow nibble", 0xD6, 0x10, 0x01, false, 0x0F, FlagN | FlagH},
		{"SBC borrow", 0xDE, 0x00, 0x00, true, 0xFF, FlagN | FlagH | FlagC},
		{"AND", 0xE6, 0xF0, 0x0F, false, 0x00, FlagZ | FlagH},
		{"XOR", 0xEE, 0xFF, 0x0F, false, 0xF0, 0},
		{"OR", 0xF6, 0x00, 0x00, false, 0x00, FlagZ},
		{"CP equal", 0xFE, 0x42, 0x42, false, 0x42, FlagZ | FlagN},
	}
	for _, tc := range tests {
		c, _, _ := newTestCPU([]byte{tc.op, tc.n})
		c.A = tc.a
		c.SetFlag(FlagC, tc.carryIn)
		step(c)
		if c.A != tc.want || c.F != tc.f {
			t.Errorf("%s: A=%02X F=%02X, want A=%02X F=%02X", tc.name, c.A, c.F, tc.want, tc.f)
		}
	}
}

func TestSignedSPArithmetic(t *testing.T) {
	c, _, _ := newTestCPU([]byte{0xE8, 0x08}) // ADD SP, +8
	c.SP = 0xFFF8
	step(c)
	if c.SP != 0x0000 {
		t.Errorf("ADD SP: SP = %04X, want 0000", c.SP)
	}
	if c.F != FlagH|FlagC {
		t.Errorf("ADD SP: F = %02X, want %02X", c.F, FlagH|FlagC)
	}

	c, _, _ = newTestCPU([]byte{0xF8, 0xFE}) // LD HL, SP-2
	c.SP = 0x0010
	step(c)
	if c.HL() != 0x000E {
		t.Errorf("LD HL, SP-2: HL = %04X, want 000E", c.HL())
	}
	if c.F != FlagC {
		t.Errorf("LD HL, SP-2: F = %02X, want %02X", c.F, FlagC)
	}
}

func TestIncrementingLoads(t *testing.T) {
	c, mem, _ := newTestCPU([]byte{
		0x21, 0x00, 0xC0, // LD HL, C000h
		0x3E, 0x07,       // LD A, 7
		0x22,             // LD (HL+), A
		0x32,             // LD (HL-), A
		0xE0, 0x80,       // LDH (80h), A
	})
	for i := 0; i < 5; i++ {
		step(c)
	}
	if mem.Read(0xC000) != 7 || mem.Read(0xC001) != 7 {
		t.Errorf("[C000]=%02X [C001]=%02X, want 07 07", mem.Read(0xC000), mem.Read(0xC001))
	}
	if c.HL() != 0xC000 {
		t.Errorf("HL = %04X, want C000", c.HL())
	}
	if mem.Read(0xFF80) != 7 {
		t.Errorf("[FF80] = %02X, want 07", mem.Read(0xFF80))
	}
}

func TestConditionalNotTaken(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		zero    bool
		wantPC  uint16
		wantSP  uint16
	}{
		{"JP Z", []byte{0xCA, 0x00, 0x40}, false, 0x0003, 0xD000},
		{"JR Z", []byte{0x28, 0x10}, false, 0x0002, 0xD000},
		{"CALL NZ", []byte{0xC4, 0x00, 0x40}, true, 0x0003, 0xD000},
		{"RET NZ", []byte{0xC0}, true, 0x0001, 0xD000},
		{"JP NZ taken", []byte{0xC2, 0x00, 0x40}, false, 0x4000, 0xD000},
		{"CALL Z taken", []byte{0xCC, 0x00, 0x40}, true, 0x4000, 0xCFFE},
	}
	for _, tc := range tests {
		c, _, _ := newTestCPU(tc.program)
		c.SP = 0xD000
		c.SetFlag(FlagZ, tc.zero)
		step(c)
		if c.PC != tc.wantPC || c.SP != tc.wantSP {
			t.Errorf("%s: PC=%04X SP=%04X, want %04X %04X", tc.name, c.PC, c.SP, tc.wantPC, tc.wantSP)
		}
	}
}

func TestRSTAndRETI(t *testing.T) {
	program := make([]byte, 0x40)
	program[0x20] = 0xFF // RST 38h
	program[0x38] = 0xD9 // RETI
	c, mem, _ := newTestCPU(program)
	c.PC, c.SP = 0x0020, 0xD000

	step(c)
	if c.PC != 0x0038 {
		t.Fatalf("RST: PC = %04X, want 0038", c.PC)
	}
	if mem.Read(0xCFFE) != 0x21 || mem.Read(0xCFFF) != 0x00 {
		t.Errorf("RST pushed %02X%02X, want 0021", mem.Read(0xCFFF), mem.Read(0xCFFE))
	}
	step(c)
	if c.PC != 0x0021 || !c.IME {
		t.Errorf("RETI: PC=%04X IME=%v, want 0021 true", c.PC, c.IME)
	}
}

func TestEIDI(t *testing.T) {
	c, _, _ := newTestCPU([]byte{0xFB, 0xF3})
	step(c)
	if !c.IME {
		t.Error("EI did not set IME")
	}
	step(c)
	if c.IME {
		t.Error("DI did not clear IME")
	}
}

func TestInstructionDurations(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		ticks   int
	}{
		{"NOP", []byte{0x00}, 4},
		{"LD BC, nn", []byte{0x01, 0x00, 0x00}, 12},
		{"LD (HL), n", []byte{0x36, 0x00}, 12},
		{"CALL nn", []byte{0xCD, 0x00, 0x01}, 24},
		{"PREFIX CB", []byte{0xCB, 0x00}, 8},
	}
	for _, tc := range tests {
		c, _, _ := newTestCPU(tc.program)
		c.SP = 0xD000
		for i := 1; i < tc.ticks; i++ {
			c.Cycle()
		}
		if c.PC != 0 {
			t.Errorf("%s: completed before %d ticks", tc.name, tc.ticks)
			continue
		}
		c.Cycle()
		if c.Elapsed() != 0 || c.PC == 0 {
			t.Errorf("%s: not complete after %d ticks (PC=%04X)", tc.name, tc.ticks, c.PC)
		}
	}
}
