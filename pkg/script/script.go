// Package script runs a Lua step hook after every executed instruction.
//
// A script defines a global function
//
//	function on_step(pc, opcode, operand, mnemonic) ... end
//
// and may call two host functions: stop() asks the driver to end the run,
// and peek(addr) returns the byte on the bus at addr. Scripts observe; they
// cannot change CPU state.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/oisee/sm83core/pkg/cpu"
	"github.com/oisee/sm83core/pkg/inst"
)

// StepFunc is the name of the Lua function called per instruction.
const StepFunc = "on_step"

// Hook is a cpu.Tracer backed by a Lua state. It is not safe for concurrent
// use; each machine needs its own Hook.
type Hook struct {
	L       *lua.LState
	onStep  lua.LValue
	peek    func(addr uint16) uint8
	stopped bool
	err     error
	steps   int64
}

// Load runs the script file at path and returns its hook.
func Load(path string, peek func(addr uint16) uint8) (*Hook, error) {
	h := newHook(peek)
	if err := h.L.DoFile(path); err != nil {
		h.Close()
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}
	h.bind()
	return h, nil
}

// LoadString runs script source and returns its hook.
func LoadString(src string, peek func(addr uint16) uint8) (*Hook, error) {
	h := newHook(peek)
	if err := h.L.DoString(src); err != nil {
		h.Close()
		return nil, fmt.Errorf("script: %w", err)
	}
	h.bind()
	return h, nil
}

func newHook(peek func(addr uint16) uint8) *Hook {
	h := &Hook{
		L:    lua.NewState(),
		peek: peek,
	}
	h.L.SetGlobal("stop", h.L.NewFunction(h.luaStop))
	h.L.SetGlobal("peek", h.L.NewFunction(h.luaPeek))
	return h
}

func (h *Hook) bind() {
	if fn := h.L.GetGlobal(StepFunc); fn.Type() == lua.LTFunction {
		h.onStep = fn
	}
}

func (h *Hook) luaStop(L *lua.LState) int {
	h.stopped = true
	return 0
}

func (h *Hook) luaPeek(L *lua.LState) int {
	addr := L.CheckInt(1)
	if h.peek == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(h.peek(uint16(addr))))
	return 1
}

// Trace implements cpu.Tracer.
func (h *Hook) Trace(e cpu.Event) {
	if h.onStep == nil || h.err != nil {
		return
	}
	h.steps++
	err := h.L.CallByParam(lua.P{Fn: h.onStep, NRet: 0, Protect: true},
		lua.LNumber(e.PC),
		lua.LNumber(e.Opcode),
		lua.LNumber(e.Operand),
		lua.LString(inst.Disassemble(inst.OpCode(e.Opcode), e.Operand)),
	)
	if err != nil {
		h.err = fmt.Errorf("script: %s at %04X: %w", StepFunc, e.PC, err)
		h.stopped = true
	}
}

// Stopped reports whether the script called stop() or failed.
func (h *Hook) Stopped() bool {
	return h.stopped
}

// Err returns the runtime error that stopped the script, if any.
func (h *Hook) Err() error {
	return h.err
}

// Steps returns how many times on_step has been called.
func (h *Hook) Steps() int64 {
	return h.steps
}

// Close releases the Lua state.
func (h *Hook) Close() {
	h.L.Close()
}
