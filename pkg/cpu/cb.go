package cpu

// execCB performs a CB-prefixed operation on the register its low three bits
// select.
func (c *CPU) execCB(op uint8) {
	y, z := (op>>3)&7, op&7
	v := c.reg8(z)

	switch op >> 6 {
	case 0:
		c.setReg8(z, c.rotate(y, v))
	case 1: // BIT leaves carry alone
		c.F = c.F&FlagC | FlagH | zeroFlag(v&(1<<y))
	case 2:
		c.setReg8(z, v&^(1<<y))
	default:
		c.setReg8(z, v|1<<y)
	}
}

func (c *CPU) rotate(kind, v uint8) uint8 {
	switch kind {
	case 0:
		return c.rlc(v)
	case 1:
		return c.rrc(v)
	case 2:
		return c.rl(v)
	case 3:
		return c.rr(v)
	case 4: // SLA
		r := v << 1
		c.setZNHC(r == 0, false, false, v&0x80 != 0)
		return r
	case 5: // SRA keeps bit 7
		r := v>>1 | v&0x80
		c.setZNHC(r == 0, false, false, v&0x01 != 0)
		return r
	case 6: // SWAP
		r := v<<4 | v>>4
		c.setZNHC(r == 0, false, false, false)
		return r
	}
	// SRL
	r := v >> 1
	c.setZNHC(r == 0, false, false, v&0x01 != 0)
	return r
}

// rlc, rrc, rl and rr set Z from the result; the accumulator forms clear it
// afterwards.
func (c *CPU) rlc(v uint8) uint8 {
	r := v<<1 | v>>7
	c.setZNHC(r == 0, false, false, v&0x80 != 0)
	return r
}

func (c *CPU) rrc(v uint8) uint8 {
	r := v>>1 | v<<7
	c.setZNHC(r == 0, false, false, v&0x01 != 0)
	return r
}

func (c *CPU) rl(v uint8) uint8 {
	r := v<<1 | c.carry()
	c.setZNHC(r == 0, false, false, v&0x80 != 0)
	return r
}

func (c *CPU) rr(v uint8) uint8 {
	r := v>>1 | c.carry()<<7
	c.setZNHC(r == 0, false, false, v&0x01 != 0)
	return r
}
