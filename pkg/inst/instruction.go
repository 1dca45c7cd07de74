package inst

// OpCode is the raw first byte of an SM83 instruction.
type OpCode uint8

// Info holds static metadata for an opcode.
//
// Mnemonic is a display template. Lowercase placeholders are substituted by
// Disassemble: "nn" for a 16-bit operand, "n" for an 8-bit operand and "e"
// for a signed 8-bit displacement. Everything else in a template is upper
// case, so the placeholders never collide with mnemonic text.
//
// Duration is a single figure per opcode: conditional jumps, calls and
// returns are charged their taken time, and a CB prefix is charged 8 ticks
// whatever the second byte. Sums from SeqDuration are therefore upper bounds
// for branches and lower bounds for CB ops on (HL).
type Info struct {
	Mnemonic   string
	Length     int  // Total bytes including the opcode (1-3)
	Duration   int  // Clock ticks before the effect fires
	AdvancesPC bool // False when the effect positions PC itself
	Illegal    bool // Undefined on the SM83; locks the CPU
}

// Catalog maps every opcode to its Info. It is total over 0x00-0xFF.
var Catalog [256]Info

// CBPrefix is the opcode that selects the CB-prefixed instruction page.
const CBPrefix OpCode = 0xCB

// HasImmediate returns true if the opcode carries an operand (8 or 16-bit).
func HasImmediate(op OpCode) bool {
	return Catalog[op].Length > 1
}

// HasImm16 returns true if the opcode carries a 16-bit operand.
func HasImm16(op OpCode) bool {
	return Catalog[op].Length == 3
}

// Length returns the instruction length in bytes.
func Length(op OpCode) int {
	return Catalog[op].Length
}

// Duration returns the clock ticks an instruction takes. See Info for how
// branches and CB ops are counted.
func Duration(op OpCode) int {
	return Catalog[op].Duration
}

// IllegalOps returns every opcode that is undefined on the SM83.
func IllegalOps() []OpCode {
	var ops []OpCode
	for i := 0; i < len(Catalog); i++ {
		if Catalog[i].Illegal {
			ops = append(ops, OpCode(i))
		}
	}
	return ops
}

var cbRegs = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var cbRots = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

// CBMnemonic returns the assembly text of a CB-prefixed operation.
func CBMnemonic(op uint8) string {
	reg := cbRegs[op&7]
	bit := string(rune('0' + (op>>3)&7))
	switch op >> 6 {
	case 0:
		return cbRots[(op>>3)&7] + " " + reg
	case 1:
		return "BIT " + bit + ", " + reg
	case 2:
		return "RES " + bit + ", " + reg
	default:
		return "SET " + bit + ", " + reg
	}
}

// Disassemble returns assembly text for an opcode and its decoded operand.
func Disassemble(op OpCode, operand uint16) string {
	if op == CBPrefix {
		return CBMnemonic(uint8(operand))
	}
	info := &Catalog[op]
	if info.Length == 1 {
		return info.Mnemonic
	}
	return substitute(info.Mnemonic, operand)
}

func substitute(mnemonic string, operand uint16) string {
	buf := make([]byte, 0, len(mnemonic)+6)
	for i := 0; i < len(mnemonic); i++ {
		switch {
		case i+1 < len(mnemonic) && mnemonic[i] == 'n' && mnemonic[i+1] == 'n':
			buf = appendHex16(buf, operand)
			i++ // skip second 'n'
		case mnemonic[i] == 'n':
			buf = appendHex8(buf, uint8(operand))
		case mnemonic[i] == 'e':
			if n := len(buf); n > 0 && buf[n-1] == '+' {
				buf = buf[:n-1] // "SP+e" renders as SP+2 or SP-2
			}
			buf = appendSigned(buf, int8(operand))
		default:
			buf = append(buf, mnemonic[i])
		}
	}
	return string(buf)
}

func appendHex8(buf []byte, v uint8) []byte {
	const hex = "0123456789ABCDEF"
	if v >= 0xA0 {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>4], hex[v&0x0F], 'h')
	return buf
}

func appendHex16(buf []byte, v uint16) []byte {
	const hex = "0123456789ABCDEF"
	if v>>12 >= 0xA {
		buf = append(buf, '0')
	}
	buf = append(buf, hex[v>>12], hex[(v>>8)&0x0F], hex[(v>>4)&0x0F], hex[v&0x0F], 'h')
	return buf
}

func appendSigned(buf []byte, v int8) []byte {
	if v < 0 {
		buf = append(buf, '-')
		return appendDecimal(buf, -int(v))
	}
	buf = append(buf, '+')
	return appendDecimal(buf, int(v))
}

func appendDecimal(buf []byte, v int) []byte {
	if v >= 100 {
		buf = append(buf, byte('0'+v/100))
	}
	if v >= 10 {
		buf = append(buf, byte('0'+(v/10)%10))
	}
	return append(buf, byte('0'+v%10))
}
