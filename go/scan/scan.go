package scan

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// ChunkSize is how much memory FindPattern reads at a time.
var ChunkSize = process.PageSize

// Match returns the offset of the first window of buf matching sig, or -1.
func Match(buf []byte, sig Signature) int {
	n := len(sig.Bytes)
	if n == 0 || len(sig.Mask) != n {
		return -1
	}
outer:
	for i := 0; i+n <= len(buf); i++ {
		for j := 0; j < n; j++ {
			if sig.Mask[j] && buf[i+j] != sig.Bytes[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// walk calls fn for every match in [region.Base, region.End()) in address
// order until fn returns false. Chunks that cannot be read are skipped and
// no match may span one.
func walk(mem process.Memory, region models.Segment, sig Signature, fn func(models.Addr) bool) {
	if sig.valid() != nil || region.Len() < uint64(sig.Len()) {
		return
	}
	tailLen := sig.Len() - 1
	chunk := make([]byte, ChunkSize)
	// window holds the carried tail of the previous readable chunk followed
	// by the current chunk; winBase is the address of window[0]
	window := make([]byte, 0, tailLen+ChunkSize)
	var winBase models.Addr
	for addr := region.Start; addr < region.End; {
		size := uint64(ChunkSize)
		// align reads to chunk boundaries after the first one
		if rem := uint64(addr) % size; rem != 0 {
			size -= rem
		}
		if left := region.End.Sub(addr); size > left {
			size = left
		}
		buf := chunk[:size]
		if err := mem.MemReadInto(buf, addr); err != nil {
			window = window[:0]
			addr = addr.Offset(size)
			continue
		}
		if len(window) == 0 {
			winBase = addr
		}
		window = append(window, buf...)
		for off := 0; ; {
			i := Match(window[off:], sig)
			if i < 0 {
				break
			}
			if !fn(winBase.Offset(uint64(off + i))) {
				return
			}
			off += i + 1
		}
		// carry the tail so matches can span into the next chunk
		if keep := tailLen; len(window) > keep {
			drop := len(window) - keep
			winBase = winBase.Offset(uint64(drop))
			window = append(window[:0], window[drop:]...)
		}
		addr = addr.Offset(size)
	}
}

// FindPattern returns the lowest address in region where sig matches. A
// missing match is reported as false, never as an error.
func FindPattern(mem process.Memory, region models.Module, sig Signature) (models.Addr, bool) {
	var found models.Addr
	ok := false
	walk(mem, models.Segment{Start: region.Base, End: region.End()}, sig, func(a models.Addr) bool {
		found, ok = a, true
		return false
	})
	return found, ok
}

// FindAll returns every match in region, in address order.
func FindAll(mem process.Memory, region models.Module, sig Signature) []models.Addr {
	var out []models.Addr
	walk(mem, models.Segment{Start: region.Base, End: region.End()}, sig, func(a models.Addr) bool {
		out = append(out, a)
		return true
	})
	return out
}

// FindInModule re-enumerates the modules of p and scans the named one. An
// empty name selects the main executable.
func FindInModule(p process.Process, name string, sig Signature) (models.Addr, bool, error) {
	mods, err := p.Modules()
	if err != nil {
		return 0, false, err
	}
	mod := models.FindModuleByName(mods, name)
	if mod == nil {
		return 0, false, errors.Errorf("module %q not loaded", name)
	}
	addr, ok := FindPattern(p, *mod, sig)
	return addr, ok, nil
}

// ResolveRelative follows a rel32 operand in the last four bytes of the
// instLen byte instruction at addr.
func ResolveRelative(mem process.Memory, addr models.Addr, instLen int) (models.Addr, error) {
	if instLen < 5 {
		return 0, errors.Errorf("instruction too short for rel32: %d", instLen)
	}
	var buf [4]byte
	if err := mem.MemReadInto(buf[:], addr.Offset(uint64(instLen-4))); err != nil {
		return 0, errors.Wrap(err, "failed to read rel32")
	}
	rel := int32(binary.LittleEndian.Uint32(buf[:]))
	return addr.Offset(uint64(instLen)).Rel(int64(rel)), nil
}
