package crash

import (
	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// ScanStack reads count words upward from sp (aligned down to the word size)
// and returns every word that points into a loaded module. This is a linear
// scan, not an unwind: stale return addresses and data that happen to look
// like code pointers are reported too. The scan stops at the first word that
// cannot be read.
func ScanStack(mem process.Memory, mods []models.Module, sp models.Addr, count int, bits uint) []models.Resolution {
	size := uint64(bits / 8)
	addr := sp.AlignDown(size)
	var out []models.Resolution
	for i := 0; i < count; i++ {
		word, err := process.ReadWord(mem, addr, bits)
		if err != nil {
			break
		}
		if r := models.Resolve(mods, models.Addr(word)); r.Known() {
			out = append(out, r)
		}
		addr = addr.Offset(size)
	}
	return out
}
