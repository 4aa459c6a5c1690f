package batch

import (
	"encoding/gob"
	"os"
)

// Checkpoint holds enough state to resume a batch run without
// re-executing images already completed.
type Checkpoint struct {
	Records []Record
}

// SaveCheckpoint writes the table's current records to path.
func SaveCheckpoint(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(&Checkpoint{Records: t.Records()})
}

// LoadCheckpoint reads a previously saved checkpoint into a fresh Table.
func LoadCheckpoint(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, err
	}
	t := NewTable()
	for _, r := range ckpt.Records {
		t.Add(r)
	}
	return t, nil
}
