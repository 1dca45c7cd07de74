package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/oisee/sm83core/pkg/bus"
	"github.com/oisee/sm83core/pkg/cpu"
	"github.com/oisee/sm83core/pkg/interrupt"
)

func TestFormatSet(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", Off},
		{"off", Off},
		{"text", Text},
		{"json", JSON},
	}
	for _, tc := range tests {
		var f Format
		if err := f.Set(tc.in); err != nil {
			t.Errorf("Set(%q): %v", tc.in, err)
			continue
		}
		if f != tc.want {
			t.Errorf("Set(%q) = %v, want %v", tc.in, f, tc.want)
		}
		if tc.in != "" && f.String() != tc.in {
			t.Errorf("String() = %q, want %q", f.String(), tc.in)
		}
	}

	var f Format
	if err := f.Set("xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Set(xml) error = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		e    cpu.Event
		want string
	}{
		{cpu.Event{PC: 0x0000, Opcode: 0x31, Operand: 0xFFFE}, "0000  31 FE FF  LD SP, 0FFFEh"},
		{cpu.Event{PC: 0x0150, Opcode: 0x3E, Operand: 0x42}, "0150  3E 42     LD A, 42h"},
		{cpu.Event{PC: 0x0007, Opcode: 0xAF}, "0007  AF        XOR A"},
		{cpu.Event{PC: 0x000A, Opcode: 0xCB, Operand: 0x7C}, "000A  CB 7C     BIT 7, H"},
	}
	for _, tc := range tests {
		if got := FormatEvent(tc.e); got != tc.want {
			t.Errorf("FormatEvent(%+v) = %q, want %q", tc.e, got, tc.want)
		}
	}
}

func TestTextWriterPlain(t *testing.T) {
	var buf bytes.Buffer
	tw := NewText(&buf)
	tw.Trace(cpu.Event{PC: 0x0100, Opcode: 0x00})
	tw.Trace(cpu.Event{PC: 0x0101, Opcode: 0xC3, Operand: 0x0150})
	if tw.Err() != nil {
		t.Fatal(tw.Err())
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("buffer output must not be coloured")
	}
	if !strings.HasSuffix(lines[1], "JP 0150h") {
		t.Errorf("line 2 = %q", lines[1])
	}
}

type failWriter struct{ n int }

func (f *failWriter) Write(p []byte) (int, error) {
	f.n++
	return 0, errors.New("disk full")
}

func TestTextWriterStopsOnError(t *testing.T) {
	fw := &failWriter{}
	tw := NewText(fw)
	for i := 0; i < 3; i++ {
		tw.Trace(cpu.Event{})
	}
	if tw.Err() == nil {
		t.Error("expected write error")
	}
	if fw.n != 1 {
		t.Errorf("writer called %d times, want 1", fw.n)
	}
}

func TestErr(t *testing.T) {
	if Err(nil) != nil {
		t.Error("Err(nil) should be nil")
	}
	ok := NewJSON(&bytes.Buffer{})
	bad := NewJSON(&failWriter{})
	m := Multi(&counter{}, ok, bad)
	m.Trace(cpu.Event{Opcode: 0x00})
	if err := Err(m); err == nil || err != bad.Err() {
		t.Errorf("Err(multi) = %v, want %v", err, bad.Err())
	}
	if Err(ok) != nil {
		t.Errorf("Err(ok) = %v", Err(ok))
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	jw := NewJSON(&buf)
	jw.Trace(cpu.Event{PC: 0x0003, Opcode: 0x20, Operand: 0xFC})
	jw.Trace(cpu.Event{PC: 0x0005, Opcode: 0x76})

	sc := bufio.NewScanner(&buf)
	var recs []Record
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		recs = append(recs, r)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].PC != 0x0003 || recs[0].Mnemonic != "JR NZ, -4" {
		t.Errorf("record 0 = %+v", recs[0])
	}
	if recs[1].Mnemonic != "HALT" {
		t.Errorf("record 1 = %+v", recs[1])
	}
}

func TestNew(t *testing.T) {
	tr, err := New(Off, nil)
	if tr != nil || err != nil {
		t.Errorf("New(Off) = %v, %v", tr, err)
	}
	if tr, _ := New(Text, &bytes.Buffer{}); tr == nil {
		t.Error("New(Text) returned nil")
	}
	if _, err := New(Format(9), nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("New(9) error = %v", err)
	}
}

func TestRing(t *testing.T) {
	if _, err := NewRing(0); err == nil {
		t.Error("NewRing(0) should fail")
	}

	r, err := NewRing(3)
	if err != nil {
		t.Fatal(err)
	}
	for pc := uint16(0); pc < 2; pc++ {
		r.Trace(cpu.Event{PC: pc})
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
	for pc := uint16(2); pc < 5; pc++ {
		r.Trace(cpu.Event{PC: pc})
	}
	got := r.Events()
	if len(got) != 3 || got[0].PC != 2 || got[1].PC != 3 || got[2].PC != 4 {
		t.Errorf("Events = %+v, want PCs 2, 3, 4", got)
	}

	var buf bytes.Buffer
	if err := r.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 3 {
		t.Errorf("Dump wrote %q", buf.String())
	}

	r.Reset()
	if r.Len() != 0 || len(r.Events()) != 0 {
		t.Error("Reset did not empty the ring")
	}
}

type counter struct{ n int }

func (c *counter) Trace(cpu.Event) { c.n++ }

func TestMulti(t *testing.T) {
	if Multi(nil, nil) != nil {
		t.Error("Multi of nils should be nil")
	}
	a := &counter{}
	if Multi(nil, a) != cpu.Tracer(a) {
		t.Error("Multi of one tracer should return it unchanged")
	}
	b := &counter{}
	m := Multi(a, nil, b)
	m.Trace(cpu.Event{})
	m.Trace(cpu.Event{})
	if a.n != 2 || b.n != 2 {
		t.Errorf("counts a=%d b=%d, want 2 2", a.n, b.n)
	}
}

func TestTracerOnRunningCPU(t *testing.T) {
	r, _ := NewRing(8)
	var buf bytes.Buffer
	m := Multi(r, NewText(&buf))

	c := newCPU([]byte{0x3E, 0x01, 0x3C, 0x76}, m) // LD A, 1 ; INC A ; HALT
	for i := 0; i < 100 && !c.Halted; i++ {
		c.Cycle()
	}
	if r.Len() != 3 {
		t.Fatalf("ring holds %d events, want 3", r.Len())
	}
	if !strings.Contains(buf.String(), "INC A") {
		t.Errorf("text trace missing INC A:\n%s", buf.String())
	}
}

func newCPU(program []byte, tr cpu.Tracer) *cpu.CPU {
	mem := &bus.Memory{}
	mem.Load(0, program)
	return cpu.New(mem, &interrupt.Controller{}, cpu.WithTracer(tr))
}
