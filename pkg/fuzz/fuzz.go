// Package fuzz implements a small mutation-based stress harness over the
// decoder: it hill-climbs a seed boot image toward inputs that drive the
// opcode dispatch table through more distinct opcodes before the run
// ends, to smoke-test the decoder against malformed input. It does not
// look for semantic bugs in arithmetic, only for unclean failures: a Go
// panic recovered from a run is reported as a crash. A returned error, a
// clean halt, and reaching the step limit all count as ordinary ends.
package fuzz

import (
	"math/rand"

	"github.com/oisee/x86emu/pkg/cpu"
	"github.com/oisee/x86emu/pkg/loader"
)

// Config controls one fuzzing run.
type Config struct {
	Seed       []byte
	Iterations int
	StepLimit  int
	Rand       *rand.Rand // defaults to a package-local source if nil
}

// Report summarizes the best image found.
type Report struct {
	BestImage []byte
	Coverage  int // number of distinct opcodes reached
	Crashed   bool
	CrashInfo string
}

const defaultStepLimit = 10_000

// Run mutates a copy of cfg.Seed byte by byte for cfg.Iterations rounds,
// keeping a mutation only when it reaches at least as much opcode
// coverage as the current best, and returns the best image found.
//
// A Go panic recovered from a single run is treated as the harness's own
// finding, not a fatal error in Run itself: it means the decoder violated
// its documented contract (every user-reachable malformed-input
// condition must return an error, never panic), which is exactly what
// this harness exists to catch.
func Run(cfg Config) Report {
	r := cfg.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}
	stepLimit := cfg.StepLimit
	if stepLimit <= 0 {
		stepLimit = defaultStepLimit
	}

	best := make([]byte, len(cfg.Seed))
	copy(best, cfg.Seed)
	bestCov, bestCrash, bestInfo := score(best, stepLimit)

	for i := 0; i < cfg.Iterations; i++ {
		cand := make([]byte, len(best))
		copy(cand, best)
		if len(cand) == 0 {
			break
		}
		idx := r.Intn(len(cand))
		cand[idx] = byte(r.Intn(256))

		cov, crashed, info := score(cand, stepLimit)
		if crashed && !bestCrash {
			// A genuine panic is the single most interesting finding
			// this harness can produce; surface it immediately rather
			// than continuing to hill-climb past it.
			best, bestCov, bestCrash, bestInfo = cand, cov, crashed, info
			break
		}
		if cov >= bestCov {
			best, bestCov, bestCrash, bestInfo = cand, cov, crashed, info
		}
	}

	return Report{BestImage: best, Coverage: bestCov, Crashed: bestCrash, CrashInfo: bestInfo}
}

// score runs one image to termination (or the step limit) and counts how
// many distinct opcodes the dispatch loop reached.
func score(image []byte, stepLimit int) (coverage int, crashed bool, crashInfo string) {
	defer func() {
		if rec := recover(); rec != nil {
			crashed = true
			crashInfo = toString(rec)
		}
	}()

	m := cpu.New(cpu.DefaultMemorySize)
	m.SetEIP(cpu.LoadAddress)
	m.SetReg32(cpu.ESP, cpu.LoadAddress)
	if err := loader.LoadBytes(image, m); err != nil {
		return 0, false, ""
	}

	seen := map[byte]bool{}
	for steps := 0; steps < stepLimit; steps++ {
		b, err := m.ReadByte(m.EIP())
		if err == nil {
			seen[b] = true
		}
		halted, stepErr := m.Step()
		if stepErr != nil || halted {
			break
		}
	}
	return len(seen), false, ""
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "panic: non-error recover value"
}
