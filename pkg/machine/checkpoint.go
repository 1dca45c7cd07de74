package machine

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/oisee/sm83core/pkg/cpu"
)

// Checkpoint holds everything needed to resume a machine. Boot and cartridge
// images are not stored; the machine being restored must be built from the
// same images.
type Checkpoint struct {
	CPU         cpu.State
	Requested   uint8 // IF
	Enabled     uint8 // IE
	RAM         []byte
	BootEnabled bool
	Clock       uint64
}

// Checkpoint captures the machine state.
func (m *Machine) Checkpoint() *Checkpoint {
	return &Checkpoint{
		CPU:         m.CPU.State(),
		Requested:   m.IC.Requested,
		Enabled:     m.IC.Enabled,
		RAM:         m.Bus.RAM(),
		BootEnabled: m.Bus.BootEnabled(),
		Clock:       m.Clock,
	}
}

// Restore loads a checkpoint into the machine.
func (m *Machine) Restore(ckpt *Checkpoint) {
	m.CPU.Restore(ckpt.CPU)
	m.IC.Requested = ckpt.Requested
	m.IC.Enabled = ckpt.Enabled
	m.Bus.Restore(ckpt.RAM, ckpt.BootEnabled)
	m.Clock = ckpt.Clock
}

// SaveCheckpoint writes machine state to a file.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("machine: save checkpoint: %w", err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(ckpt); err != nil {
		return fmt.Errorf("machine: save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint loads machine state from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("machine: load checkpoint: %w", err)
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, fmt.Errorf("machine: load checkpoint: %w", err)
	}
	return &ckpt, nil
}
