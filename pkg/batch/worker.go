package batch

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oisee/x86emu/pkg/bios"
	"github.com/oisee/x86emu/pkg/cpu"
	"github.com/oisee/x86emu/pkg/loader"
)

// Config controls one batch run.
type Config struct {
	Paths      []string
	NumWorkers int
	StepLimit  int
	Verbose    bool
	// Checkpoint, if non-empty, is loaded before the run (to skip images
	// already recorded) and saved after it completes.
	Checkpoint string
}

// DefaultStepLimit bounds how many instructions a single image may
// execute before Run gives up on it, guarding against an image that
// never reaches EIP == 0 (deliberately, or because the fuzzer produced
// one).
const DefaultStepLimit = 1_000_000

// Run executes every image in cfg.Paths to completion on a pool of
// cfg.NumWorkers goroutines (defaulting to runtime.NumCPU(), matching the
// worker-pool sizing this is grounded on), returning the populated
// result table. Each worker owns an independent *cpu.Machine; the only
// state shared across goroutines is the result table and the atomic
// completion counter read by the progress reporter.
func Run(cfg Config) *Table {
	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	stepLimit := cfg.StepLimit
	if stepLimit <= 0 {
		stepLimit = DefaultStepLimit
	}

	table := NewTable()
	skip := map[string]bool{}
	if cfg.Checkpoint != "" {
		if prior, err := LoadCheckpoint(cfg.Checkpoint); err == nil {
			for _, r := range prior.Records() {
				table.Add(r)
			}
			skip = table.Paths()
		}
	}

	pending := make([]string, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		if !skip[p] {
			pending = append(pending, p)
		}
	}

	total := int64(len(pending))
	ch := make(chan string, len(pending))
	for _, p := range pending {
		ch <- p
	}
	close(ch)

	var completed atomic.Int64
	done := make(chan struct{})
	start := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				comp := completed.Load()
				elapsed := time.Since(start).Round(time.Second)
				fmt.Printf("  [%s] %d/%d images complete\n", elapsed, comp, total)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range ch {
				rec := runOne(path, stepLimit)
				table.Add(rec)
				completed.Add(1)
				if cfg.Verbose {
					fmt.Printf("  %-40s %-14s steps=%d eip=0x%08X\n", rec.Path, rec.Reason, rec.Steps, rec.FinalEIP)
				}
			}
		}()
	}
	wg.Wait()
	close(done)

	fmt.Printf("  [%s] %d/%d images complete | DONE\n", time.Since(start).Round(time.Second), table.Len(), len(cfg.Paths))

	if cfg.Checkpoint != "" {
		if err := SaveCheckpoint(cfg.Checkpoint, table); err != nil {
			fmt.Fprintf(os.Stderr, "batch: failed to save checkpoint: %v\n", err)
		}
	}

	return table
}

func runOne(path string, stepLimit int) Record {
	m := cpu.NewBootMachine()
	m.SetDiagOutput(os.Stderr)
	m.SetBIOS(bios.NewVideo())

	if err := loader.Load(path, m); err != nil {
		return Record{Path: path, Reason: ReasonIllegalOpcode, Err: err.Error()}
	}

	steps := 0
	for ; steps < stepLimit; steps++ {
		halted, err := m.Step()
		if err != nil {
			return recordFor(path, m, steps, err)
		}
		if halted {
			return Record{Path: path, Steps: steps + 1, FinalEIP: m.EIP(), Regs: regSnapshot(m), Reason: ReasonHalted}
		}
	}
	return Record{Path: path, Steps: steps, FinalEIP: m.EIP(), Regs: regSnapshot(m), Reason: ReasonStepLimit}
}

func recordFor(path string, m *cpu.Machine, steps int, err error) Record {
	reason := ReasonIllegalOpcode
	if m.EIP() != 0 && int(m.EIP()) >= m.MemSize() {
		reason = ReasonOutOfBounds
	}
	return Record{
		Path:     path,
		Steps:    steps,
		FinalEIP: m.EIP(),
		Regs:     regSnapshot(m),
		Reason:   reason,
		Err:      err.Error(),
	}
}

func regSnapshot(m *cpu.Machine) [8]uint32 {
	var r [8]uint32
	for i := range r {
		r[i] = m.Reg32(cpu.Register(i))
	}
	return r
}
