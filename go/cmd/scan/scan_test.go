package scan

import (
	"strings"
	"testing"
)

func TestParseSig(t *testing.T) {
	for _, in := range []string{"aa00bb", "AA 00 BB", `\xaa\x00\xbb`} {
		sig, err := parseSig(in, "x?x")
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if sig.String() != "AA ?? BB" {
			t.Errorf("%q parsed as %s", in, sig)
		}
	}
	if _, err := parseSig("zz", "x"); err == nil {
		t.Error("accepted non-hex signature")
	}
	if _, err := parseSig("aabb", "x"); err == nil {
		t.Error("accepted short mask")
	}
}

func TestDisasm(t *testing.T) {
	// push ebp; mov ebp, esp; ret
	lines := disasm([]byte{0x55, 0x8b, 0xec, 0xc3}, 0x401000, 32, 16)
	if len(lines) != 3 {
		t.Fatalf("expected 3 instructions, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "0x00401000: 55") || !strings.HasSuffix(lines[0], "push ebp") {
		t.Errorf("bad first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "ret") {
		t.Errorf("bad last line %q", lines[2])
	}
}
