package batch

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/oisee/sm83core/pkg/machine"
)

// stateSize is the number of register and status bytes in a fingerprint:
// A,F,B,C,D,E,H,L, SP and PC high/low, a status byte, then IF and IE.
const stateSize = 15

// FingerprintLen is the total fingerprint length: the state bytes followed
// by a SHA-256 digest of RAM.
const FingerprintLen = stateSize + sha256.Size // 47 bytes

// Fingerprint is a compact summary of a machine's observable state. Machines
// with different fingerprints are guaranteed to be in different states.
type Fingerprint [FingerprintLen]byte

// String returns the fingerprint in hex.
func (fp Fingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

// Status bits packed into the last state byte.
const (
	statusIME = 1 << iota
	statusHalted
	statusLocked
	statusBoot
)

// Take computes the fingerprint of m. The in-flight tick count is left out so
// that machines stopped at different points of the same instruction match.
func Take(m *machine.Machine) Fingerprint {
	var fp Fingerprint
	s := m.CPU.State()
	fp[0] = s.A
	fp[1] = s.F
	fp[2] = s.B
	fp[3] = s.C
	fp[4] = s.D
	fp[5] = s.E
	fp[6] = s.H
	fp[7] = s.L
	fp[8] = uint8(s.SP >> 8)
	fp[9] = uint8(s.SP)
	fp[10] = uint8(s.PC >> 8)
	fp[11] = uint8(s.PC)

	var status uint8
	if s.IME {
		status |= statusIME
	}
	if s.Halted {
		status |= statusHalted
	}
	if s.Locked {
		status |= statusLocked
	}
	if m.Bus.BootEnabled() {
		status |= statusBoot
	}
	fp[12] = status
	// IF and IE live in the controller, not in RAM.
	fp[13] = m.IC.Requested
	fp[14] = m.IC.Enabled

	sum := sha256.Sum256(m.Bus.RAM())
	copy(fp[stateSize:], sum[:])
	return fp
}

// FingerprintMap groups results by the fingerprint of their final state, so
// runs that converged on the same state can be found in O(1).
type FingerprintMap struct {
	m map[string][]string
}

// NewFingerprintMap creates a new map with the given capacity hint.
func NewFingerprintMap(cap int) *FingerprintMap {
	return &FingerprintMap{m: make(map[string][]string, cap)}
}

// Add registers a result's job name under its fingerprint. Failed jobs have
// no fingerprint and are ignored.
func (fm *FingerprintMap) Add(r Result) {
	if r.Fingerprint == "" {
		return
	}
	fm.m[r.Fingerprint] = append(fm.m[r.Fingerprint], r.Name)
}

// Lookup returns the job names with the given fingerprint.
func (fm *FingerprintMap) Lookup(fp string) []string {
	return fm.m[fp]
}

// Len returns the number of distinct fingerprints.
func (fm *FingerprintMap) Len() int {
	return len(fm.m)
}

// Entries returns the total number of registered jobs.
func (fm *FingerprintMap) Entries() int {
	n := 0
	for _, v := range fm.m {
		n += len(v)
	}
	return n
}
