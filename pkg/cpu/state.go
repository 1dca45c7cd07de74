package cpu

// Registers holds the SM83 8-bit registers. Pairs are accessed through the
// AF, BC, DE and HL methods, high register first.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
}

func (r *Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

// SetAF loads A and F; the low nibble of F cannot be set.
func (r *Registers) SetAF(v uint16) { r.A, r.F = uint8(v>>8), uint8(v)&flagMask }
func (r *Registers) SetBC(v uint16) { r.B, r.C = uint8(v>>8), uint8(v) }
func (r *Registers) SetDE(v uint16) { r.D, r.E = uint8(v>>8), uint8(v) }
func (r *Registers) SetHL(v uint16) { r.H, r.L = uint8(v>>8), uint8(v) }

// State is a by-value copy of everything the CPU owns. It is what
// checkpoints store and what Restore loads.
type State struct {
	Registers
	PC, SP  uint16
	IME     bool
	Halted  bool
	Locked  bool
	Elapsed int // ticks accumulated toward the in-flight instruction
}

// Equal returns true if two states are identical.
func (s State) Equal(o State) bool {
	return s == o
}
