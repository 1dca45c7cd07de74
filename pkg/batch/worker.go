// Package batch runs many independent machines in parallel and records a
// fingerprint of each one's final state.
package batch

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/oisee/sm83core/pkg/interrupt"
	"github.com/oisee/sm83core/pkg/machine"
	"github.com/oisee/sm83core/pkg/script"
)

// Config controls a batch run. Every job runs with the same settings.
type Config struct {
	NumWorkers int    // 0 = NumCPU
	Ticks      uint64 // per job; 0 = DefaultTicks
	Boot       []byte // optional shared boot image
	SkipBoot   bool
	Ack        interrupt.AckPolicy
	Script     string // optional Lua step hook loaded once per job
	Verbose    bool
}

// DefaultTicks bounds a job when Config.Ticks is zero. It is about a quarter
// of a second of DMG time.
const DefaultTicks = 1 << 20

// Job is one cartridge image to run.
type Job struct {
	Name string
	ROM  []byte
}

// WorkerPool manages parallel machine workers.
type WorkerPool struct {
	NumWorkers int
	Results    *Table
	ran        atomic.Int64
	locked     atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		Results:    NewTable(),
	}
}

// Stats returns the number of jobs run and how many ended locked.
func (wp *WorkerPool) Stats() (ran, locked int64) {
	return wp.ran.Load(), wp.locked.Load()
}

// Run executes all jobs with cfg and returns the result table.
func Run(cfg Config, jobs []Job) *Table {
	wp := NewWorkerPool(cfg.NumWorkers)
	wp.RunJobs(cfg, jobs)
	return wp.Results
}

// RunJobs distributes jobs across workers. Each job gets its own machine;
// workers share nothing but the read-only instruction table.
func (wp *WorkerPool) RunJobs(cfg Config, jobs []Job) {
	ch := make(chan Job, len(jobs))
	for _, j := range jobs {
		ch <- j
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < wp.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range ch {
				wp.Results.Add(wp.runJob(cfg, job))
			}
		}()
	}
	wg.Wait()
}

func (wp *WorkerPool) runJob(cfg Config, job Job) (res Result) {
	wp.ran.Add(1)
	res = Result{Name: job.Name}

	m, err := machine.New(machine.Config{
		Boot:     cfg.Boot,
		ROM:      job.ROM,
		SkipBoot: cfg.SkipBoot,
		Ack:      cfg.Ack,
	})
	if err != nil {
		res.Err = err.Error()
		return res
	}

	var stop func() bool
	if cfg.Script != "" {
		hook, err := script.Load(cfg.Script, m.Peek)
		if err != nil {
			res.Err = err.Error()
			return res
		}
		defer hook.Close()
		m.CPU.SetTracer(hook)
		stop = hook.Stopped
		defer func() {
			res.Stopped = hook.Stopped()
			if hook.Err() != nil && res.Err == "" {
				res.Err = hook.Err().Error()
			}
		}()
	}

	ticks := cfg.Ticks
	if ticks == 0 {
		ticks = DefaultTicks
	}
	res.Ticks, err = m.Run(ticks, stop)
	res.PC = m.CPU.PC
	res.Halted = m.CPU.Halted
	res.Locked = m.CPU.Locked()
	res.Fingerprint = Take(m).String()
	if res.Locked {
		wp.locked.Add(1)
	}
	if err != nil && !errors.Is(err, machine.ErrCPULocked) {
		res.Err = err.Error()
	}

	if cfg.Verbose {
		fmt.Printf("  %s: %d ticks, PC=%04X halted=%v locked=%v\n",
			job.Name, res.Ticks, res.PC, res.Halted, res.Locked)
	}
	return res
}
