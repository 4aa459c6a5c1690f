package fuzz

import (
	"math/rand"
	"testing"
)

func TestRunNeverPanicsOnMalformedInput(t *testing.T) {
	seed := []byte{0x6A, 0x00, 0xBB, 0x05, 0x00, 0x00, 0x00, 0x43, 0xC3}
	report := Run(Config{
		Seed:       seed,
		Iterations: 200,
		StepLimit:  500,
		Rand:       rand.New(rand.NewSource(42)),
	})
	if report.Crashed {
		t.Fatalf("decoder panicked on a mutated image (contract violation): %s", report.CrashInfo)
	}
	seedCov, _, _ := score(seed, 500)
	if report.Coverage < seedCov {
		t.Fatalf("expected at least the seed's own opcode coverage (%d), got %d", seedCov, report.Coverage)
	}
}

func TestRunWithEmptySeed(t *testing.T) {
	report := Run(Config{Seed: nil, Iterations: 10})
	if report.Crashed {
		t.Fatalf("unexpected crash on empty seed: %s", report.CrashInfo)
	}
}

func TestScoreCountsDistinctOpcodes(t *testing.T) {
	// PUSH 0 ; PUSH 0 ; RET : two distinct opcodes (0x6A, 0xC3) even
	// though PUSH 0 appears twice.
	cov, crashed, _ := score([]byte{0x6A, 0x00, 0x6A, 0x00, 0xC3}, 100)
	if crashed {
		t.Fatal("unexpected crash")
	}
	if cov != 2 {
		t.Fatalf("coverage = %d, want 2", cov)
	}
}
