package crash

import (
	"fmt"
	"io"
	"strings"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// Report is everything printed about one fault.
type Report struct {
	Snapshot models.Snapshot
	// Bits is the pointer width used both to scan the stack and to print
	// addresses.
	Bits       uint
	Fault      models.Resolution
	Stack      []models.Resolution
	SupportURL string
}

// BuildReport resolves the snapshot against freshly enumerated modules and
// scans the faulting stack.
func BuildReport(p process.Process, snap models.Snapshot, cfg *models.Config) *Report {
	mods, _ := p.Modules()
	bits := snap.Bits
	if bits == 0 {
		bits = p.Bits()
	}
	if bits == 0 {
		bits = cfg.Bits
	}
	return &Report{
		Snapshot:   snap,
		Bits:       bits,
		Fault:      models.Resolve(mods, snap.PC),
		Stack:      ScanStack(p, mods, snap.SP, cfg.StackWords, bits),
		SupportURL: cfg.SupportURL,
	}
}

func (r *Report) bits() uint {
	switch {
	case r.Bits != 0:
		return r.Bits
	case r.Snapshot.Bits != 0:
		return r.Snapshot.Bits
	}
	return 32
}

func (r *Report) writeHeader(w io.Writer) {
	fmt.Fprintf(w, "An unhandled exception occurred at:\n\t%s (0x%X)\n\n", r.Fault.Format(r.bits()), r.Snapshot.Code)
}

func (r *Report) writeContext(w io.Writer, color bool) {
	fmt.Fprintf(w, "Context:\n%s\n\n", models.RegBlock(r.Snapshot.Regs, r.bits(), color))
}

func (r *Report) writeStack(w io.Writer) {
	fmt.Fprintf(w, "Stack trace:\n")
	for _, frame := range r.Stack {
		fmt.Fprintf(w, "\t%s\n", frame.Format(r.bits()))
	}
}

func (r *Report) writeFooter(w io.Writer) {
	fmt.Fprintf(w, "\nIf this was unexpected, please copy this output and create an issue at:\n\t%s\n\n", r.SupportURL)
	fmt.Fprintf(w, "Press any key to exit...")
}

// WriteTo renders the full report, ending with the exit prompt.
func (r *Report) WriteTo(w io.Writer, color bool) {
	r.writeHeader(w)
	r.writeContext(w, color)
	r.writeStack(w)
	r.writeFooter(w)
}

func (r *Report) String() string {
	var b strings.Builder
	r.WriteTo(&b, false)
	return b.String()
}
