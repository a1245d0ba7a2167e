package agent

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

type nullPlatform struct{}

func (nullPlatform) Console() (io.Writer, error) { return io.Discard, nil }
func (nullPlatform) Terminal() bool              { return false }
func (nullPlatform) WaitKey()                    {}
func (nullPlatform) Exit(code int)               {}
func (nullPlatform) Park()                       {}

// push ebp; mov ebp, esp; sub esp, 0x10; ret
var prologue = []byte{0x55, 0x8b, 0xec, 0x83, 0xec, 0x10, 0xc3}

func newAgent() (*Agent, *process.Sim) {
	s := process.NewSim(32)
	img := make([]byte, 0x1000)
	copy(img, prologue)
	copy(img[0x100:], prologue)
	s.AddModule("host.exe", 0x400000, img, process.PROT_READ|process.PROT_EXEC)
	return New(s, nullPlatform{}, &models.Config{Output: &bytes.Buffer{}}), s
}

func TestCloseRemovesHooks(t *testing.T) {
	a, s := newAgent()
	for _, target := range []models.Addr{0x400000, 0x400100} {
		if _, err := a.Engine.Install(target, 0x402000); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	for _, target := range []models.Addr{0x400000, 0x400100} {
		got, _ := process.MemRead(s, target, len(prologue))
		if !bytes.Equal(got, prologue) {
			t.Fatalf("%s not restored: % x", target, got)
		}
	}
	if len(a.Engine.Hooks()) != 0 {
		t.Fatal("hooks left after Close")
	}
}

func TestWatchRepairs(t *testing.T) {
	a, s := newAgent()
	if _, err := a.Engine.Install(0x400000, 0x402000); err != nil {
		t.Fatal(err)
	}
	h, _ := a.Engine.Lookup(0x400000)
	a.Watch(context.Background(), time.Millisecond)
	s.Poke(0x400000, prologue[:6])
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := process.MemRead(s, 0x400000, len(h.Patch))
		if bytes.Equal(got, h.Patch) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("clobbered hook was not repaired")
		}
		time.Sleep(time.Millisecond)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
}
