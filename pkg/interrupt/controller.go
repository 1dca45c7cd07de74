// Package interrupt models the SM83 interrupt controller: the IF (requested)
// and IE (enabled) registers and the fixed priority order of the five
// interrupt sources.
package interrupt

import "fmt"

// Source identifies one interrupt line.
type Source uint8

const (
	VBlank Source = iota
	LCDStat
	Timer
	Serial
	Joypad
)

// Mask covers the five significant bits of IF and IE. Bits 5-7 are unused.
const Mask uint8 = 0x1F

func (s Source) String() string {
	switch s {
	case VBlank:
		return "VBlank"
	case LCDStat:
		return "LCDStat"
	case Timer:
		return "Timer"
	case Serial:
		return "Serial"
	case Joypad:
		return "Joypad"
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// Vector pairs an interrupt source with its flag bit and service address.
type Vector struct {
	Source  Source
	Bit     uint8
	Address uint16
}

// Priority lists the sources highest priority first. Dispatch scans it in
// order and services the first pending entry.
var Priority = []Vector{
	{VBlank, 0x01, 0x0040},
	{LCDStat, 0x02, 0x0048},
	{Timer, 0x04, 0x0050},
	{Serial, 0x08, 0x0058},
	{Joypad, 0x10, 0x0060},
}

// Select returns the highest priority vector whose bit is set in pending.
func Select(pending uint8) (Vector, bool) {
	for _, v := range Priority {
		if pending&v.Bit != 0 {
			return v, true
		}
	}
	return Vector{}, false
}

// AckPolicy decides which IF bits are cleared when an interrupt is serviced.
type AckPolicy uint8

const (
	// AckServiced clears only the serviced source's bit; lower priority
	// requests stay latched for a later dispatch.
	AckServiced AckPolicy = iota
	// AckAll clears every IF bit on any dispatch, dropping requests that
	// were latched alongside the serviced one.
	AckAll
)

func (p AckPolicy) String() string {
	switch p {
	case AckServiced:
		return "serviced"
	case AckAll:
		return "all"
	}
	return fmt.Sprintf("AckPolicy(%d)", uint8(p))
}

// ParseAckPolicy converts "serviced" or "all" to an AckPolicy.
func ParseAckPolicy(s string) (AckPolicy, error) {
	switch s {
	case "serviced":
		return AckServiced, nil
	case "all":
		return AckAll, nil
	}
	return 0, fmt.Errorf("interrupt: unknown ack policy %q (use serviced or all)", s)
}

// Controller holds the IF and IE registers. Peripherals set bits in
// Requested, software sets bits in Enabled.
type Controller struct {
	Requested uint8
	Enabled   uint8
}

// Request latches an interrupt request for src.
func (c *Controller) Request(src Source) {
	c.Requested |= 1 << src
}

// Pending returns the requested and enabled bits.
func (c *Controller) Pending() uint8 {
	return c.Requested & c.Enabled & Mask
}

// Acknowledge clears IF bits after v has been dispatched.
func (c *Controller) Acknowledge(v Vector, policy AckPolicy) {
	if policy == AckAll {
		c.Requested = 0
		return
	}
	c.Requested &^= v.Bit
}
