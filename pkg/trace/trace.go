// Package trace provides cpu.Tracer sinks: a disassembling text writer, a
// JSON lines writer and an in-memory ring of the most recent instructions.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/oisee/sm83core/pkg/cpu"
	"github.com/oisee/sm83core/pkg/inst"
)

// ErrUnknownFormat is returned for an unrecognised trace format name.
var ErrUnknownFormat = errors.New("trace: unknown format")

// Format selects a trace sink. It implements pflag.Value.
type Format int

const (
	Off Format = iota
	Text
	JSON
)

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	}
	return "off"
}

// Set parses "off", "text" or "json".
func (f *Format) Set(s string) error {
	switch s {
	case "", "off":
		*f = Off
	case "text":
		*f = Text
	case "json":
		*f = JSON
	default:
		return fmt.Errorf("%w %q (use off, text or json)", ErrUnknownFormat, s)
	}
	return nil
}

// Type is the flag type name shown in usage.
func (f *Format) Type() string {
	return "format"
}

// New returns the sink for a format writing to w, or nil for Off.
func New(f Format, w io.Writer) (cpu.Tracer, error) {
	switch f {
	case Off:
		return nil, nil
	case Text:
		return NewText(w), nil
	case JSON:
		return NewJSON(w), nil
	}
	return nil, fmt.Errorf("%w %d", ErrUnknownFormat, int(f))
}

// Bytes returns the encoded instruction an event describes.
func Bytes(e cpu.Event) []byte {
	b := []byte{e.Opcode}
	switch inst.Length(inst.OpCode(e.Opcode)) {
	case 2:
		b = append(b, uint8(e.Operand))
	case 3:
		b = append(b, uint8(e.Operand), uint8(e.Operand>>8))
	}
	return b
}

// FormatEvent renders an event as one listing line: address, bytes, assembly.
func FormatEvent(e cpu.Event) string {
	return fmt.Sprintf("%04X  %-9s %s", e.PC, hexBytes(Bytes(e)), inst.Disassemble(inst.OpCode(e.Opcode), e.Operand))
}

func hexBytes(b []byte) string {
	s := ""
	for i, v := range b {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%02X", v)
	}
	return s
}

const (
	ansiDim   = "\x1b[2m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// TextWriter writes one disassembled line per instruction.
type TextWriter struct {
	w     io.Writer
	color bool
	err   error
}

// NewText creates a text sink. Output is coloured when w is a terminal.
func NewText(w io.Writer) *TextWriter {
	t := &TextWriter{w: w}
	if f, ok := w.(*os.File); ok {
		t.color = term.IsTerminal(int(f.Fd()))
	}
	return t
}

// Trace implements cpu.Tracer.
func (t *TextWriter) Trace(e cpu.Event) {
	if t.err != nil {
		return
	}
	var err error
	if t.color {
		_, err = fmt.Fprintf(t.w, "%s%04X%s  %-9s %s%s%s\n",
			ansiDim, e.PC, ansiReset, hexBytes(Bytes(e)),
			ansiBold, inst.Disassemble(inst.OpCode(e.Opcode), e.Operand), ansiReset)
	} else {
		_, err = fmt.Fprintln(t.w, FormatEvent(e))
	}
	t.err = err
}

// Err returns the first write error; tracing stops after it.
func (t *TextWriter) Err() error {
	return t.err
}

// Record is the JSON form of an event.
type Record struct {
	PC       uint16 `json:"pc"`
	Opcode   uint8  `json:"opcode"`
	Operand  uint16 `json:"operand"`
	Mnemonic string `json:"mnemonic"`
}

// JSONWriter writes one JSON object per instruction.
type JSONWriter struct {
	enc *json.Encoder
	err error
}

// NewJSON creates a JSON lines sink.
func NewJSON(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// Trace implements cpu.Tracer.
func (j *JSONWriter) Trace(e cpu.Event) {
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(Record{
		PC:       e.PC,
		Opcode:   e.Opcode,
		Operand:  e.Operand,
		Mnemonic: inst.Disassemble(inst.OpCode(e.Opcode), e.Operand),
	})
}

// Err returns the first encode error; tracing stops after it.
func (j *JSONWriter) Err() error {
	return j.err
}

// Multi fans events out to several tracers. Nil entries are skipped; nil is
// returned when nothing remains.
func Multi(tracers ...cpu.Tracer) cpu.Tracer {
	var ts multi
	for _, t := range tracers {
		if t != nil {
			ts = append(ts, t)
		}
	}
	switch len(ts) {
	case 0:
		return nil
	case 1:
		return ts[0]
	}
	return ts
}

type multi []cpu.Tracer

// Err returns the first write error recorded by t, looking inside Multi.
// Tracers that cannot fail report nil.
func Err(t cpu.Tracer) error {
	switch t := t.(type) {
	case multi:
		for _, m := range t {
			if err := Err(m); err != nil {
				return err
			}
		}
	case interface{ Err() error }:
		return t.Err()
	}
	return nil
}

func (m multi) Trace(e cpu.Event) {
	for _, t := range m {
		t.Trace(e)
	}
}
