package models

import (
	"strings"
	"testing"
)

func TestRegBlockRows(t *testing.T) {
	regs := []RegVal{
		{"EAX", 1}, {"ECX", 2}, {"EDX", 3}, {"EBX", 4},
		{"ESP", 0x0019ff00}, {"EBP", 6},
	}
	out := RegBlock(regs, 32, false)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d: %q", len(lines), out)
	}
	if lines[0] != "\tEAX=0x00000001 ECX=0x00000002 EDX=0x00000003 EBX=0x00000004" {
		t.Fatalf("bad first row: %q", lines[0])
	}
	if lines[1] != "\tESP=0x0019FF00 EBP=0x00000006" {
		t.Fatalf("bad second row: %q", lines[1])
	}
}

func TestRegBlockPadsNames(t *testing.T) {
	out := RegBlock([]RegVal{{"RAX", 0}, {"R8", 0}}, 64, false)
	if out != "\tRAX=0x0000000000000000 R8 =0x0000000000000000" {
		t.Fatalf("bad block: %q", out)
	}
}

func TestHexDump(t *testing.T) {
	lines := HexDump(0x1000, []byte("ABCDEFGH\x00"), 32)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "0x00001000: 41424344 45464748 00      ") {
		t.Fatalf("bad dump: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[ABCD EFGH .   ") {
		t.Fatalf("bad ascii column: %q", lines[0])
	}
}
