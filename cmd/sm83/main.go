package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oisee/sm83core/pkg/batch"
	"github.com/oisee/sm83core/pkg/cpu"
	"github.com/oisee/sm83core/pkg/inst"
	"github.com/oisee/sm83core/pkg/interrupt"
	"github.com/oisee/sm83core/pkg/machine"
	"github.com/oisee/sm83core/pkg/script"
	"github.com/oisee/sm83core/pkg/statsview"
	"github.com/oisee/sm83core/pkg/trace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "sm83",
		Short:        "SM83 (Game Boy) CPU core: run, trace and inspect programs",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd(), newBatchCmd(), newDisasmCmd(), newTableCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ackFlag adapts interrupt.AckPolicy to a command line flag.
type ackFlag struct {
	p *interrupt.AckPolicy
}

var _ pflag.Value = ackFlag{}

func (f ackFlag) String() string {
	if f.p == nil {
		return interrupt.AckServiced.String()
	}
	return f.p.String()
}

func (f ackFlag) Set(s string) error {
	p, err := interrupt.ParseAckPolicy(s)
	if err != nil {
		return err
	}
	*f.p = p
	return nil
}

func (f ackFlag) Type() string {
	return "policy"
}

func newRunCmd() *cobra.Command {
	var (
		bootPath, romPath    string
		ticks                uint64
		format               trace.Format
		traceOut             string
		ringSize             int
		ack                  interrupt.AckPolicy
		scriptPath           string
		saveState, loadState string
		skipBoot             bool
		stats                bool
		verbose              bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a boot ROM and/or cartridge image for a number of ticks",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var boot, rom []byte
			if bootPath != "" {
				if boot, err = machine.LoadBootROM(bootPath); err != nil {
					return err
				}
			}
			if romPath != "" {
				if rom, err = machine.LoadROM(romPath); err != nil {
					return err
				}
			}
			if boot == nil && rom == nil {
				return errors.New("nothing to run: give --boot and/or --rom")
			}
			if boot == nil && !skipBoot {
				skipBoot = true
				if verbose {
					fmt.Println("No boot ROM given, starting at 0100h with post-boot registers")
				}
			}

			m, err := machine.New(machine.Config{Boot: boot, ROM: rom, SkipBoot: skipBoot, Ack: ack})
			if err != nil {
				return err
			}

			if loadState != "" {
				ckpt, err := machine.LoadCheckpoint(loadState)
				if err != nil {
					return err
				}
				m.Restore(ckpt)
				if verbose {
					fmt.Printf("Resumed from %s at clock %d\n", loadState, m.Clock)
				}
			}

			var w io.Writer = os.Stdout
			if traceOut != "" {
				f, cerr := os.Create(traceOut)
				if cerr != nil {
					return cerr
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("trace: %w", cerr)
					}
				}()
				w = f
			}
			sink, err := trace.New(format, w)
			if err != nil {
				return err
			}

			var ring *trace.Ring
			if ringSize > 0 {
				if ring, err = trace.NewRing(ringSize); err != nil {
					return err
				}
			}

			var hook *script.Hook
			var stop func() bool
			if scriptPath != "" {
				if hook, err = script.Load(scriptPath, m.Peek); err != nil {
					return err
				}
				defer hook.Close()
				stop = hook.Stopped
			}

			tracers := []cpu.Tracer{sink}
			if ring != nil {
				tracers = append(tracers, ring)
			}
			if hook != nil {
				tracers = append(tracers, hook)
			}
			m.CPU.SetTracer(trace.Multi(tracers...))

			if stats {
				statsview.Launch(os.Stderr, "")
			}

			if verbose {
				fmt.Printf("SM83 run\n")
				fmt.Printf("  Boot ROM:  %s\n", orNone(bootPath))
				fmt.Printf("  Cartridge: %s\n", orNone(romPath))
				fmt.Printf("  Ticks:     %d\n", ticks)
				fmt.Printf("  Ack:       %s\n", ack)
				fmt.Println()
			}

			n, runErr := m.Run(ticks, stop)

			if ring != nil && (runErr != nil || verbose) {
				fmt.Fprintf(os.Stderr, "Last %d instructions:\n", ring.Len())
				if err := ring.Dump(os.Stderr); err != nil {
					return err
				}
			}
			if hook != nil && hook.Err() != nil {
				return hook.Err()
			}
			if runErr != nil {
				return runErr
			}
			if err := trace.Err(sink); err != nil {
				return fmt.Errorf("trace: %w", err)
			}

			if saveState != "" {
				if err := machine.SaveCheckpoint(saveState, m.Checkpoint()); err != nil {
					return err
				}
				if verbose {
					fmt.Printf("State saved to %s\n", saveState)
				}
			}

			printState(os.Stdout, m, n)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&bootPath, "boot", "", "Boot ROM image (256 bytes)")
	f.StringVar(&romPath, "rom", "", "Cartridge ROM image")
	f.Uint64Var(&ticks, "ticks", 4194304, "Clock ticks to run (0 = until stopped or locked)")
	f.Var(&format, "trace", "Instruction trace format (off, text, json)")
	f.StringVar(&traceOut, "trace-out", "", "Trace output file (default stdout)")
	f.IntVar(&ringSize, "ring", 0, "Keep the last N instructions and print them on failure")
	f.Var(ackFlag{&ack}, "ack", "IF acknowledge policy on dispatch (serviced, all)")
	f.StringVar(&scriptPath, "script", "", "Lua step hook script")
	f.StringVar(&saveState, "save-state", "", "Write a checkpoint after the run")
	f.StringVar(&loadState, "load-state", "", "Resume from a checkpoint")
	f.BoolVar(&skipBoot, "skip-boot", false, "Start at 0100h with post-boot registers")
	f.BoolVar(&stats, "statsview", false, "Serve runtime statistics over HTTP")
	f.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		numWorkers int
		ticks      uint64
		bootPath   string
		skipBoot   bool
		ack        interrupt.AckPolicy
		scriptPath string
		output     string
		stats      bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "batch [roms...]",
		Short: "Run many cartridge images in parallel and fingerprint their final states",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := batch.Config{
				NumWorkers: numWorkers,
				Ticks:      ticks,
				SkipBoot:   skipBoot,
				Ack:        ack,
				Script:     scriptPath,
				Verbose:    verbose,
			}
			if bootPath != "" {
				boot, err := machine.LoadBootROM(bootPath)
				if err != nil {
					return err
				}
				cfg.Boot = boot
			} else {
				cfg.SkipBoot = true
			}

			var jobs []batch.Job
			for _, path := range args {
				rom, err := machine.LoadROM(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, batch.Job{Name: filepath.Base(path), ROM: rom})
			}

			if stats {
				statsview.Launch(os.Stderr, "")
			}

			wp := batch.NewWorkerPool(cfg.NumWorkers)
			fmt.Printf("SM83 batch\n")
			fmt.Printf("  Jobs:    %d\n", len(jobs))
			fmt.Printf("  Workers: %d\n", wp.NumWorkers)
			fmt.Printf("  Ticks:   %d\n", cfg.Ticks)
			fmt.Println()

			wp.RunJobs(cfg, jobs)
			results := wp.Results.Results()
			ran, locked := wp.Stats()

			groups := batch.NewFingerprintMap(len(results))
			for _, r := range results {
				groups.Add(r)
				status := "ok"
				switch {
				case r.Err != "":
					status = "error: " + r.Err
				case r.Locked:
					status = "locked"
				case r.Stopped:
					status = "stopped"
				case r.Halted:
					status = "halted"
				}
				fmt.Printf("  %-24s PC=%04X %-8s %s\n", r.Name, r.PC, status, shortFP(r.Fingerprint))
			}
			fmt.Printf("\n%d jobs, %d locked, %d distinct final states\n", ran, locked, groups.Len())

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := batch.WriteJSON(f, results); err != nil {
					return err
				}
				fmt.Printf("Written to %s\n", output)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	f.Uint64Var(&ticks, "ticks", batch.DefaultTicks, "Clock ticks per job")
	f.StringVar(&bootPath, "boot", "", "Boot ROM image shared by all jobs")
	f.BoolVar(&skipBoot, "skip-boot", false, "Start at 0100h with post-boot registers")
	f.Var(ackFlag{&ack}, "ack", "IF acknowledge policy on dispatch (serviced, all)")
	f.StringVar(&scriptPath, "script", "", "Lua step hook script, loaded once per job")
	f.StringVar(&output, "output", "", "Output JSON file path")
	f.BoolVar(&stats, "statsview", false, "Serve runtime statistics over HTTP")
	f.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	var origin string
	var offset string

	cmd := &cobra.Command{
		Use:   "disasm [image]",
		Short: "Disassemble a binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			org, err := parseImmediate(origin, 16)
			if err != nil {
				return fmt.Errorf("bad origin %q: %w", origin, err)
			}
			off, err := parseImmediate(offset, 32)
			if err != nil {
				return fmt.Errorf("bad offset %q: %w", offset, err)
			}
			if off > uint64(len(data)) {
				return fmt.Errorf("offset %d past end of %d byte image", off, len(data))
			}
			return disassemble(os.Stdout, data[off:], uint16(org))
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "0", "Address of the first byte (e.g. 0100h, 0x100)")
	cmd.Flags().StringVar(&offset, "offset", "0", "File offset to start at")
	return cmd
}

func newTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the instruction table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTable(os.Stdout)
		},
	}
}

// disassemble writes one listing line per instruction followed by a summary
// comment. A truncated final instruction is written as raw bytes.
func disassemble(w io.Writer, data []byte, origin uint16) error {
	var ops []inst.OpCode
	for i := 0; i < len(data); {
		op := inst.OpCode(data[i])
		n := inst.Length(op)
		pc := origin + uint16(i)
		if i+n > len(data) {
			if _, err := fmt.Fprintf(w, "%04X  %-9s DB %s\n", pc, hexList(data[i:]), hexList(data[i:])); err != nil {
				return err
			}
			break
		}
		var operand uint16
		switch n {
		case 2:
			operand = uint16(data[i+1])
		case 3:
			operand = uint16(data[i+2])<<8 | uint16(data[i+1])
		}
		e := cpu.Event{PC: pc, Opcode: uint8(op), Operand: operand}
		if _, err := fmt.Fprintln(w, trace.FormatEvent(e)); err != nil {
			return err
		}
		ops = append(ops, op)
		i += n
	}
	_, err := fmt.Fprintf(w, "; %d instructions, %d bytes, %d ticks\n",
		len(ops), inst.SeqByteSize(ops), inst.SeqDuration(ops))
	return err
}

func printTable(w io.Writer) error {
	fmt.Fprintf(w, "%-4s %-18s %3s %5s %s\n", "OP", "MNEMONIC", "LEN", "TICKS", "FLOW")
	for op := 0; op < len(inst.Catalog); op++ {
		info := &inst.Catalog[op]
		flow := ""
		switch {
		case info.Illegal:
			flow = "locks"
		case !info.AdvancesPC:
			flow = "sets PC"
		}
		if _, err := fmt.Fprintf(w, "%02X   %-18s %3d %5d %s\n", op, info.Mnemonic, info.Length, info.Duration, flow); err != nil {
			return err
		}
	}
	return nil
}

func printState(w io.Writer, m *machine.Machine, ticks uint64) {
	c := m.CPU
	fmt.Fprintf(w, "Ran %d ticks (clock %d)\n", ticks, m.Clock)
	fmt.Fprintf(w, "  AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X\n",
		c.AF(), c.BC(), c.DE(), c.HL(), c.SP, c.PC)
	fmt.Fprintf(w, "  IME=%v HALT=%v IF=%02X IE=%02X boot=%v\n",
		c.IME, c.Halted, m.IC.Requested, m.IC.Enabled, m.Bus.BootEnabled())
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func shortFP(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}

func hexList(b []byte) string {
	s := ""
	for i, v := range b {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%02X", v)
	}
	return s
}
