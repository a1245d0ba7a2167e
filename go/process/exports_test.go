package process

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process/mock"
)

var testExports = []mock.Export{
	{Name: "Alpha", Code: []byte{0x55, 0x8b, 0xec, 0x5d, 0xc3}},
	{Name: "Beta", Forward: "NTDLL.RtlBeta"},
	{Code: []byte{0x33, 0xc0, 0xc3}},
	{Name: "Delta", Forward: "other.#3"},
}

func loadTestPE(t *testing.T, bits uint, base uint64) (*Sim, *models.Module) {
	path := filepath.Join(t.TempDir(), "test.dll")
	if err := os.WriteFile(path, mock.PE("test.dll", bits, base, testExports), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	mods, _ := s.Modules()
	if len(mods) != 1 {
		t.Fatalf("expected one module, got %d", len(mods))
	}
	return s, &mods[0]
}

func TestLoadImagePE(t *testing.T) {
	for _, bits := range []uint{32, 64} {
		s, mod := loadTestPE(t, bits, 0x10000000)
		if s.Bits() != bits {
			t.Errorf("%d: loaded as %d bit", bits, s.Bits())
		}
		if mod.Name != "test.dll" || mod.Base != 0x10000000 || mod.Size != mock.ImageSize {
			t.Errorf("%d: bad module %s", bits, mod)
		}
		code := mod.Base.Offset(uint64(mock.CodeRVA(0)))
		if got, err := MemRead(s, code, 5); err != nil || !bytes.Equal(got, testExports[0].Code) {
			t.Errorf("%d: code at %s = % x, %v", bits, code, got, err)
		}
		if _, exec := s.RangeValid(code, 1, PROT_EXEC); !exec {
			t.Errorf("%d: .text not executable", bits)
		}
		if _, exec := s.RangeValid(mod.Base.Offset(mock.EdataRVA), 1, PROT_EXEC); exec {
			t.Errorf("%d: .edata executable", bits)
		}
	}
}

func TestExportsPE(t *testing.T) {
	for _, bits := range []uint{32, 64} {
		s, mod := loadTestPE(t, bits, 0x10000000)
		list, err := Exports(s, mod)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != len(testExports) {
			t.Fatalf("%d: got %d exports", bits, len(list))
		}
		for i, e := range list {
			want := testExports[i]
			if e.Name != want.Name || e.Ordinal != mock.Ordinal(i) || e.Forward != want.Forward {
				t.Errorf("%d: export %d = %+v", bits, i, e)
			}
			if want.Forward == "" && e.Addr != mod.Base.Offset(uint64(mock.CodeRVA(i))) {
				t.Errorf("%d: %s at %s", bits, e.Name, e.Addr)
			}
			if want.Forward != "" && e.Addr != 0 {
				t.Errorf("%d: forwarded %s has address %s", bits, e.Name, e.Addr)
			}
		}
	}
}

func TestLookupExport(t *testing.T) {
	s, mod := loadTestPE(t, 32, 0x10000000)
	e, ok, err := LookupExport(s, mod, "Alpha", 0)
	if err != nil || !ok || e.Addr != mod.Base.Offset(uint64(mock.CodeRVA(0))) {
		t.Fatalf("Alpha: %+v %v %v", e, ok, err)
	}
	e, ok, _ = LookupExport(s, mod, "", mock.Ordinal(2))
	if !ok || e.Addr != mod.Base.Offset(uint64(mock.CodeRVA(2))) {
		t.Fatalf("ordinal 3: %+v %v", e, ok)
	}
	e, ok, _ = LookupExport(s, mod, "Beta", 0)
	if !ok || e.Forward != "NTDLL.RtlBeta" || e.Addr != 0 {
		t.Fatalf("Beta: %+v %v", e, ok)
	}
	if _, ok, err := LookupExport(s, mod, "Missing", 0); ok || err != nil {
		t.Fatalf("Missing: %v %v", ok, err)
	}
}

func TestParseForward(t *testing.T) {
	tests := []struct {
		in      string
		module  string
		name    string
		ordinal uint32
	}{
		{"NTDLL.RtlAllocateHeap", "NTDLL.dll", "RtlAllocateHeap", 0},
		{"api-ms-win-core-synch-l1-2-0.Sleep", "api-ms-win-core-synch-l1-2-0.dll", "Sleep", 0},
		{"kernelbase.#12", "kernelbase.dll", "", 12},
	}
	for _, test := range tests {
		module, name, ordinal, err := ParseForward(test.in)
		if err != nil || module != test.module || name != test.name || ordinal != test.ordinal {
			t.Errorf("%s: got %q %q %d %v", test.in, module, name, ordinal, err)
		}
	}
	for _, bad := range []string{"", "NTDLL", "NTDLL.", ".Func", "NTDLL.#x"} {
		if _, _, _, err := ParseForward(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestExportsELF(t *testing.T) {
	var path string
	for _, p := range []string{"/lib/x86_64-linux-gnu/libc.so.6", "/usr/lib/x86_64-linux-gnu/libc.so.6", "/lib64/libc.so.6", "/usr/lib64/libc.so.6"} {
		if _, err := os.Stat(p); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		t.Skip("no libc.so.6 found")
	}
	s, err := LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	mods, _ := s.Modules()
	mod := &mods[0]
	e, ok, err := LookupExport(s, mod, "malloc", 0)
	if err != nil || !ok {
		t.Fatalf("malloc: %v %v", ok, err)
	}
	if !mod.Contains(e.Addr) {
		t.Fatalf("malloc at %s outside %s", e.Addr, mod)
	}
	if _, exec := s.RangeValid(e.Addr, 1, PROT_EXEC); !exec {
		t.Fatalf("malloc at %s is not in executable memory", e.Addr)
	}
}
