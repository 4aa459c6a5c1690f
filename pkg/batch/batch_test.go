package batch

import (
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExecutesEveryImage(t *testing.T) {
	dir := t.TempDir()
	// PUSH 0 ; MOV EBX,5 ; INC EBX ; RET
	halts := writeImage(t, dir, "halts.img", []byte{
		0x6A, 0x00,
		0xBB, 0x05, 0x00, 0x00, 0x00,
		0x43,
		0xC3,
	})
	// An unimplemented opcode: should fail cleanly, not hang or panic.
	illegal := writeImage(t, dir, "illegal.img", []byte{0x0F, 0x0F})

	table := Run(Config{Paths: []string{halts, illegal}, NumWorkers: 2})

	if table.Len() != 2 {
		t.Fatalf("got %d records, want 2", table.Len())
	}
	byPath := map[string]Record{}
	for _, r := range table.Records() {
		byPath[r.Path] = r
	}

	if r := byPath[halts]; r.Reason != ReasonHalted {
		t.Errorf("halts.img: reason = %q, want %q", r.Reason, ReasonHalted)
	}
	if r := byPath[illegal]; r.Reason != ReasonIllegalOpcode {
		t.Errorf("illegal.img: reason = %q, want %q", r.Reason, ReasonIllegalOpcode)
	}
}

func TestRunRespectsStepLimit(t *testing.T) {
	dir := t.TempDir()
	// JMP rel8 -2 : an infinite loop.
	looping := writeImage(t, dir, "loop.img", []byte{0xEB, 0xFE})

	table := Run(Config{Paths: []string{looping}, NumWorkers: 1, StepLimit: 100})
	recs := table.Records()
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Reason != ReasonStepLimit {
		t.Fatalf("reason = %q, want %q", recs[0].Reason, ReasonStepLimit)
	}
	if recs[0].Steps != 100 {
		t.Fatalf("steps = %d, want 100", recs[0].Steps)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ckpt.gob")

	table := NewTable()
	table.Add(Record{Path: "a.img", Steps: 3, FinalEIP: 0, Reason: ReasonHalted})
	table.Add(Record{Path: "b.img", Steps: 10, FinalEIP: 0x7C20, Reason: ReasonStepLimit})

	if err := SaveCheckpoint(path, table); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	loaded, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	want := table.Records()
	got := loaded.Records()
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestRunSkipsImagesAlreadyInCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ckptPath := filepath.Join(dir, "ckpt.gob")
	done := writeImage(t, dir, "done.img", []byte{0x6A, 0x00, 0xC3})

	pre := NewTable()
	pre.Add(Record{Path: done, Steps: 1, Reason: ReasonHalted})
	if err := SaveCheckpoint(ckptPath, pre); err != nil {
		t.Fatal(err)
	}

	fresh := writeImage(t, dir, "fresh.img", []byte{0x6A, 0x00, 0xC3})
	table := Run(Config{Paths: []string{done, fresh}, NumWorkers: 1, Checkpoint: ckptPath})

	if table.Len() != 2 {
		t.Fatalf("got %d records, want 2 (1 carried over, 1 newly run)", table.Len())
	}
}
