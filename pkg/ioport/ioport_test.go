package ioport

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func newSerial(input string) (*Serial, *bytes.Buffer) {
	var out bytes.Buffer
	return &Serial{
		In:  bufio.NewReader(strings.NewReader(input)),
		Out: bufio.NewWriter(&out),
	}, &out
}

func TestOutWritesAndFlushesToCOM1(t *testing.T) {
	s, out := newSerial("")
	if err := s.Out8(COM1, 'A'); err != nil {
		t.Fatalf("Out8: %v", err)
	}
	if out.String() != "A" {
		t.Fatalf("got %q want %q", out.String(), "A")
	}
}

func TestOutIgnoresOtherPorts(t *testing.T) {
	s, out := newSerial("")
	if err := s.Out8(0x0060, 'A'); err != nil {
		t.Fatalf("Out8: %v", err)
	}
	if out.String() != "" {
		t.Fatalf("expected no output for a non-COM1 port, got %q", out.String())
	}
}

func TestInReadsFromCOM1(t *testing.T) {
	s, _ := newSerial("Z")
	b, err := s.In8(COM1)
	if err != nil {
		t.Fatalf("In8: %v", err)
	}
	if b != 'Z' {
		t.Fatalf("got 0x%02X want 'Z'", b)
	}
}

func TestInReturnsZeroOnEOF(t *testing.T) {
	s, _ := newSerial("")
	b, err := s.In8(COM1)
	if err != nil {
		t.Fatalf("In8: %v", err)
	}
	if b != 0 {
		t.Fatalf("got 0x%02X want 0 on EOF", b)
	}
}

func TestInIgnoresOtherPorts(t *testing.T) {
	s, _ := newSerial("Z")
	b, err := s.In8(0x0060)
	if err != nil {
		t.Fatalf("In8: %v", err)
	}
	if b != 0 {
		t.Fatalf("got 0x%02X want 0 for a non-COM1 port", b)
	}
}
