package process

import (
	"bytes"
	"testing"

	"github.com/lunixbochs/hookcorn/go/models"
)

func TestSimAllocCodeNear(t *testing.T) {
	s := NewSim(64)
	s.AddModule("host", 0x140000000, make([]byte, 0x2000), PROT_READ|PROT_EXEC)
	a, err := s.AllocCode(64, 0x140000000)
	if err != nil {
		t.Fatal(err)
	}
	if a <= 0x140000000 || a.Sub(0x140000000) > nearWindow {
		t.Fatalf("allocation %s not near the module", a)
	}
	b, err := s.AllocCode(64, 0x140000000)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("allocations collided")
	}
	if err := s.FreeCode(a); err != nil {
		t.Fatal(err)
	}
	if s.Allocated(a) || !s.Allocated(b) {
		t.Fatal("bad allocation tracking")
	}
	if err := s.FreeCode(a); err == nil {
		t.Fatal("double free succeeded")
	}
}

func TestSimWriteCodeIgnoresProt(t *testing.T) {
	s := NewSim(32)
	s.AddModule("host", 0x400000, make([]byte, 0x1000), PROT_READ|PROT_EXEC)
	if err := s.WriteCode(0x400010, []byte{0xe9, 1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	out, err := MemRead(s, 0x400010, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, []byte{0xe9, 1, 2, 3, 4}) || s.CodeWrites != 1 {
		t.Fatal("code write not applied")
	}
	if err := s.WriteCode(0x500000, []byte{0x90}); err == nil {
		t.Fatal("write to unmapped memory succeeded")
	}
}

func TestSuspendOthers(t *testing.T) {
	s := NewSim(32)
	s.SetThreads(10, 11, 12, 13)
	s.SuspendFail[12] = true
	suspended, skipped := SuspendOthers(s)
	if suspended != 2 || skipped != 1 {
		t.Fatalf("suspended=%d skipped=%d", suspended, skipped)
	}
	for _, tid := range s.Suspended {
		if tid == 10 {
			t.Fatal("suspended the calling thread")
		}
	}
}

func TestSuspendOthersExempt(t *testing.T) {
	s := NewSim(64)
	agent := models.Module{Name: "hookcorn.dll", Base: 0x7ff800000000, Size: 0x100000}
	s.SetThreads(10, 11, 12, 13, 14)
	s.Starts[11] = agent.Base.Offset(0x1234)
	s.Starts[12] = 0x140001000
	s.Starts[14] = agent.End() - 1
	suspended, skipped := SuspendOthers(s, agent)
	if suspended != 2 || skipped != 0 {
		t.Fatalf("suspended=%d skipped=%d", suspended, skipped)
	}
	for _, tid := range s.Suspended {
		if tid == 11 || tid == 14 || tid == 10 {
			t.Fatalf("suspended exempt thread %d", tid)
		}
	}
	// no exempt modules: start addresses are ignored
	s.Suspended = nil
	if suspended, _ := SuspendOthers(s); suspended != 4 {
		t.Fatalf("suspended %d threads without exemptions", suspended)
	}
}

func TestReadImageZeroesHoles(t *testing.T) {
	s := NewSim(32)
	data := bytes.Repeat([]byte{0xcc}, 0x3000)
	mod := s.AddModule("host", 0x400000, data, PROT_READ)
	s.Prot(0x401000, 0x1000, PROT_NONE)
	img := ReadImage(s, mod)
	if img[0] != 0xcc || img[0x1000] != 0 || img[0x2000] != 0xcc {
		t.Fatal("unreadable page not zeroed")
	}
	w, err := ReadWord(s, 0x400000, 32)
	if err != nil || w != 0xcccccccc {
		t.Fatalf("ReadWord = %#x, %v", w, err)
	}
}
