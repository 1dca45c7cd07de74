package trace

import (
	"fmt"
	"io"

	"github.com/oisee/sm83core/pkg/cpu"
)

// Ring keeps the most recent events in a fixed-size buffer. It is the sink
// to use when only the instructions leading up to a failure matter.
type Ring struct {
	buffer  []cpu.Event
	cursor  int
	wrapped bool
}

// NewRing creates a ring holding the last size events.
func NewRing(size int) (*Ring, error) {
	if size <= 0 {
		return nil, fmt.Errorf("trace: invalid ring size (%d)", size)
	}
	return &Ring{buffer: make([]cpu.Event, size)}, nil
}

// Trace implements cpu.Tracer.
func (r *Ring) Trace(e cpu.Event) {
	r.buffer[r.cursor] = e
	r.cursor++
	if r.cursor == len(r.buffer) {
		r.cursor = 0
		r.wrapped = true
	}
}

// Events returns the buffered events, oldest first.
func (r *Ring) Events() []cpu.Event {
	if !r.wrapped {
		out := make([]cpu.Event, r.cursor)
		copy(out, r.buffer[:r.cursor])
		return out
	}
	out := make([]cpu.Event, 0, len(r.buffer))
	out = append(out, r.buffer[r.cursor:]...)
	return append(out, r.buffer[:r.cursor]...)
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	if r.wrapped {
		return len(r.buffer)
	}
	return r.cursor
}

// Reset empties the ring.
func (r *Ring) Reset() {
	r.cursor = 0
	r.wrapped = false
}

// Dump writes the buffered events as listing lines, oldest first.
func (r *Ring) Dump(w io.Writer) error {
	for _, e := range r.Events() {
		if _, err := fmt.Fprintln(w, FormatEvent(e)); err != nil {
			return err
		}
	}
	return nil
}
