package scan

import (
	"bytes"
	"testing"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

func simWith(data []byte) (*process.Sim, models.Module) {
	s := process.NewSim(32)
	mod := s.AddModule("host.exe", 0x400000, data, process.PROT_READ|process.PROT_EXEC)
	// trim the module to the data length so scans stop where the test expects
	m := *mod
	m.Size = uint64(len(data))
	return s, m
}

func TestMatchScenario(t *testing.T) {
	sig := MustCompile("\xAA\x00\xBB", "x?x")
	if i := Match([]byte{0x11, 0xAA, 0x42, 0xBB, 0x99}, sig); i != 1 {
		t.Fatalf("expected match at 1, got %d", i)
	}
	if i := Match([]byte{0x11, 0xAA, 0x42, 0xCC, 0x99}, sig); i != -1 {
		t.Fatalf("expected no match, got %d", i)
	}
	if i := Match([]byte{0xAA, 0x00}, sig); i != -1 {
		t.Fatal("matched past end of buffer")
	}
}

func TestFindPatternScenario(t *testing.T) {
	s, mod := simWith([]byte{0x11, 0xAA, 0x42, 0xBB, 0x99})
	sig := MustCompile("\xAA\x00\xBB", "x?x")
	addr, ok := FindPattern(s, mod, sig)
	if !ok || addr != 0x400001 {
		t.Fatalf("got %s, %v", addr, ok)
	}
	s, mod = simWith([]byte{0x11, 0xAA, 0x42, 0xCC, 0x99})
	if _, ok := FindPattern(s, mod, sig); ok {
		t.Fatal("found a pattern that is not present")
	}
}

func TestFindPatternFirstMatch(t *testing.T) {
	data := bytes.Repeat([]byte{0x90}, 0x3000)
	copy(data[0x2100:], "\x55\x8b\xec")
	copy(data[0x0800:], "\x55\x8b\xec")
	s, mod := simWith(data)
	addr, ok := FindPattern(s, mod, MustCompile("\x55\x8b\xec", "xxx"))
	if !ok || addr != 0x400800 {
		t.Fatalf("expected first match at 0x400800, got %s", addr)
	}
	all := FindAll(s, mod, MustCompile("\x55\x8b\xec", "xxx"))
	if len(all) != 2 || all[1] != 0x402100 {
		t.Fatalf("bad FindAll result %v", all)
	}
}

func TestFindPatternAcrossChunks(t *testing.T) {
	data := make([]byte, 0x2000)
	copy(data[0xffe:], "\xde\xad\xbe\xef")
	s, mod := simWith(data)
	addr, ok := FindPattern(s, mod, MustCompile("\xde\xad\xbe\xef", "xxxx"))
	if !ok || addr != 0x400ffe {
		t.Fatalf("match spanning chunks not found: %s %v", addr, ok)
	}
}

func TestFindPatternSkipsUnreadable(t *testing.T) {
	data := make([]byte, 0x3000)
	// split around the guard page, then place a real match after it
	copy(data[0xffe:], "\xde\xad")
	copy(data[0x2000:], "\xbe\xef")
	copy(data[0x2800:], "\xde\xad\xbe\xef")
	s, mod := simWith(data)
	s.Prot(0x401000, 0x1000, process.PROT_NONE)
	addr, ok := FindPattern(s, mod, MustCompile("\xde\xad\xbe\xef", "xxxx"))
	if !ok || addr != 0x402800 {
		t.Fatalf("expected match after guard page, got %s %v", addr, ok)
	}
	copy(data[0x2800:], "\x00\x00\x00\x00")
	s, mod = simWith(data)
	s.Prot(0x401000, 0x1000, process.PROT_NONE)
	if all := FindAll(s, mod, MustCompile("\xde\xad\xbe\xef", "xxxx")); len(all) != 0 {
		t.Fatalf("match spanned an unreadable chunk: %v", all)
	}
}

func TestFindPatternRegionEnd(t *testing.T) {
	data := make([]byte, 0x1000)
	copy(data[0xffe:], "\xde\xad")
	s, mod := simWith(data)
	// the rest of the pattern sits just past the region
	s.Map(0x401000, 0x1000, process.PROT_READ)
	s.Poke(0x401000, []byte("\xbe\xef"))
	if _, ok := FindPattern(s, mod, MustCompile("\xde\xad\xbe\xef", "xxxx")); ok {
		t.Fatal("scan read past region end")
	}
}

// replacing a literal byte with a wildcard can only add matches
func TestWildcardInvariance(t *testing.T) {
	data := []byte("\x10\x20\x30\x40\x10\x21\x30\x40\x10\x20\x31\x40")
	s, mod := simWith(data)
	literal := MustCompile("\x10\x20\x30\x40", "xxxx")
	base := FindAll(s, mod, literal)
	for i := range literal.Mask {
		wild := Signature{Bytes: literal.Bytes, Mask: append([]bool(nil), literal.Mask...)}
		wild.Mask[i] = false
		got := FindAll(s, mod, wild)
		set := make(map[models.Addr]bool)
		for _, a := range got {
			set[a] = true
		}
		for _, a := range base {
			if !set[a] {
				t.Errorf("wildcard at %d lost match %s", i, a)
			}
		}
		// the wildcard byte's value does not matter
		wild.Bytes = append([]byte(nil), literal.Bytes...)
		wild.Bytes[i] = 0xff
		if again := FindAll(s, mod, wild); len(again) != len(got) {
			t.Errorf("wildcard byte value changed result at %d", i)
		}
	}
}

func TestResolveRelative(t *testing.T) {
	// call +0x10 at 0x400000
	s, _ := simWith([]byte{0xe8, 0x10, 0x00, 0x00, 0x00})
	dst, err := ResolveRelative(s, 0x400000, 5)
	if err != nil {
		t.Fatal(err)
	}
	if dst != 0x400015 {
		t.Fatalf("bad target %s", dst)
	}
	s, _ = simWith([]byte{0xe8, 0xfb, 0xff, 0xff, 0xff})
	if dst, _ := ResolveRelative(s, 0x400000, 5); dst != 0x400000 {
		t.Fatalf("negative displacement: %s", dst)
	}
}

func TestFindInModule(t *testing.T) {
	s, _ := simWith([]byte{0x11, 0xAA, 0x42, 0xBB, 0x99})
	s.AddModule("other.dll", 0x10000000, []byte{0xAA, 0x00, 0xBB}, process.PROT_READ)
	sig := MustCompile("\xAA\x00\xBB", "x?x")
	if addr, ok, err := FindInModule(s, "", sig); err != nil || !ok || addr != 0x400001 {
		t.Fatalf("main module: %s %v %v", addr, ok, err)
	}
	if addr, ok, err := FindInModule(s, "OTHER.DLL", sig); err != nil || !ok || addr != 0x10000000 {
		t.Fatalf("named module: %s %v %v", addr, ok, err)
	}
	if _, _, err := FindInModule(s, "missing.dll", sig); err == nil {
		t.Fatal("expected error for missing module")
	}
}
