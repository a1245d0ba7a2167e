package hook

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"

	"github.com/lunixbochs/hookcorn/go/models"
)

// longest run of bytes read from a hook site
const maxPrologue = 32

type instr struct {
	off  int
	inst x86asm.Inst
}

func endsFlow(inst x86asm.Inst) bool {
	switch inst.Op {
	case x86asm.RET, x86asm.LRET, x86asm.JMP, x86asm.LJMP, x86asm.IRET, x86asm.IRETD, x86asm.IRETQ:
		return true
	}
	return false
}

// measure decodes whole instructions from code until at least need bytes are
// covered. Short relative branches are rejected since they cannot reach back
// from the trampoline.
func measure(code []byte, bits uint, need int) ([]instr, int, error) {
	var out []instr
	off := 0
	for off < need {
		if off >= len(code) {
			return nil, 0, errors.Wrapf(ErrShortPrologue, "only %d readable bytes", len(code))
		}
		inst, err := x86asm.Decode(code[off:], int(bits))
		if err != nil {
			return nil, 0, errors.Wrapf(ErrShortPrologue, "decode at +%d: %v", off, err)
		}
		if inst.PCRel != 0 && inst.PCRel != 4 {
			return nil, 0, errors.Wrapf(ErrNotRelocatable, "%d-byte relative operand at +%d (%s)", inst.PCRel, off, inst)
		}
		out = append(out, instr{off: off, inst: inst})
		off += inst.Len
		if off < need && endsFlow(inst) {
			return nil, 0, errors.Wrapf(ErrShortPrologue, "function ends after %d bytes", off)
		}
	}
	return out, off, nil
}

// relocate copies the measured prologue for execution at dst, fixing every
// rel32 branch and RIP-relative displacement to keep its original target.
func relocate(code []byte, instrs []instr, src, dst models.Addr, bits uint) ([]byte, error) {
	end := instrs[len(instrs)-1]
	out := append([]byte(nil), code[:end.off+end.inst.Len]...)
	for _, in := range instrs {
		if in.inst.PCRel == 0 {
			continue
		}
		pos := in.off + in.inst.PCRelOff
		disp := int32(binary.LittleEndian.Uint32(out[pos:]))
		next := models.Addr(in.off + in.inst.Len)
		abs := src.Offset(uint64(next)).Rel(int64(disp))
		d, ok := rel32(dst.Offset(uint64(next)), abs, bits)
		if !ok {
			return nil, errors.Wrapf(ErrNotRelocatable, "%s at +%d cannot reach %s from %s", in.inst.Op, in.off, abs, dst)
		}
		binary.LittleEndian.PutUint32(out[pos:], uint32(d))
	}
	return out, nil
}
