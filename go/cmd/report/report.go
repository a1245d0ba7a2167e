package report

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/cmd"
	"github.com/lunixbochs/hookcorn/go/crash"
	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

const stackTop = 0x7f000

// demoProcess builds a small simulated host whose stack holds a few return
// addresses into it, for previewing the report without crashing anything.
func demoProcess(bits uint) (*process.Sim, models.Addr) {
	base := models.Addr(0x400000)
	if bits == 64 {
		base = 0x140000000
	}
	s := process.NewSim(bits)
	s.AddModule("host.exe", base, make([]byte, 0x10000), process.PROT_READ|process.PROT_EXEC)
	s.AddModule("engine.dll", base+0x100000, make([]byte, 0x8000), process.PROT_READ|process.PROT_EXEC)
	return s, base
}

func seedStack(s *process.Sim, sp models.Addr, bits uint, words []uint64) {
	size := int(bits / 8)
	buf := make([]byte, size*len(words))
	for i, w := range words {
		if size == 8 {
			binary.LittleEndian.PutUint64(buf[i*size:], w)
		} else {
			binary.LittleEndian.PutUint32(buf[i*size:], uint32(w))
		}
	}
	s.Poke(sp, buf)
}

func Main(args []string) {
	c := cmd.NewHookcornCmd("")
	c.NoTarget = true
	bits := c.Flags.Uint("bits", 32, "pointer width of the simulated host (32 or 64)")
	code := c.Flags.Uint("code", 0xC0000005, "exception code")
	offset := c.Flags.Uint64("pc", 0x1234, "faulting offset inside host.exe")
	c.Parse(args)
	if *bits != 32 && *bits != 64 {
		c.Fatal(errors.Errorf("bad -bits %d", *bits))
	}
	s, base := demoProcess(*bits)
	s.Map(stackTop-0x1000, 0x1000, process.PROT_READ|process.PROT_WRITE)
	sp := models.Addr(stackTop - 0x100)
	seedStack(s, sp, *bits, []uint64{
		0, uint64(base) + 0x2040, 0xdeadbeef, uint64(base) + 0x100000 + 0x310, 0, uint64(base) + 0x88,
	})
	snap := models.Snapshot{Code: uint32(*code), PC: base.Offset(*offset), SP: sp, Bits: *bits}
	names := []string{"EAX", "ECX", "EDX", "EBX", "ESI", "EDI", "EBP", "ESP"}
	if *bits == 64 {
		names = []string{"RAX", "RCX", "RDX", "RBX", "RSI", "RDI", "RBP", "RSP"}
	}
	for i, name := range names {
		v := uint64(i)
		if i == len(names)-1 {
			v = uint64(sp)
		}
		snap.Regs = append(snap.Regs, models.RegVal{Name: name, Val: v})
	}
	report := crash.BuildReport(s, snap, c.Config)
	report.WriteTo(c.Out, c.Config.Color)
	fmt.Fprintln(c.Out)
}

func init() { cmd.Register("report", "preview the crash report for a simulated fault", Main) }
