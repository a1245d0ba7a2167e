package scan

import (
	"testing"

	"github.com/pkg/errors"
)

func TestCompile(t *testing.T) {
	sig, err := Compile("\xAA\x00\xBB", "x?x")
	if err != nil {
		t.Fatal(err)
	}
	if sig.String() != "AA ?? BB" || sig.MaskString() != "x?x" {
		t.Fatalf("bad signature: %s / %s", sig, sig.MaskString())
	}
	if _, err := Compile("", ""); err != ErrEmptySignature {
		t.Fatalf("expected ErrEmptySignature, got %v", err)
	}
	if _, err := Compile("\xAA\xBB", "x"); errors.Cause(err) != ErrMaskLength {
		t.Fatalf("expected ErrMaskLength, got %v", err)
	}
	if _, err := Compile("\xAA", "z"); err == nil {
		t.Fatal("accepted bad mask character")
	}
}

func TestParseIDA(t *testing.T) {
	sig, err := ParseIDA("E8 ?? ?? ?? ?? 83 C4 04 c3 ?")
	if err != nil {
		t.Fatal(err)
	}
	if sig.MaskString() != "x????xxxx?" {
		t.Fatalf("bad mask %s", sig.MaskString())
	}
	if sig.Bytes[0] != 0xE8 || sig.Bytes[8] != 0xC3 {
		t.Fatalf("bad bytes %s", sig)
	}
	if _, err := ParseIDA("  "); err != ErrEmptySignature {
		t.Fatal("accepted empty pattern")
	}
	if _, err := ParseIDA("E8 GG"); err == nil {
		t.Fatal("accepted bad byte")
	}
}
