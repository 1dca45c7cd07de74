package cpu

// SM83 flag bit positions in the F register. The low nibble is always zero.
const (
	FlagC uint8 = 0x10 // Carry
	FlagH uint8 = 0x20 // Half-carry
	FlagN uint8 = 0x40 // Subtract
	FlagZ uint8 = 0x80 // Zero

	flagMask uint8 = 0xF0
)

// Flag reports whether all bits in mask are set in F.
func (r *Registers) Flag(mask uint8) bool {
	return r.F&mask == mask
}

// SetFlag sets or clears the bits in mask.
func (r *Registers) SetFlag(mask uint8, on bool) {
	if on {
		r.F |= mask
	} else {
		r.F &^= mask
	}
}

// setZNHC replaces all four flags.
func (r *Registers) setZNHC(z, n, h, c bool) {
	var f uint8
	if z {
		f |= FlagZ
	}
	if n {
		f |= FlagN
	}
	if h {
		f |= FlagH
	}
	if c {
		f |= FlagC
	}
	r.F = f
}

func (r *Registers) carry() uint8 {
	if r.F&FlagC != 0 {
		return 1
	}
	return 0
}
