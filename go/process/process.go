package process

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
)

const PageSize = 0x1000

var ErrUnsupported = errors.New("operation not supported on this platform")

// Memory is the fault-safe read primitive. MemReadInto fills p from addr or
// returns an error; it never faults the caller on unmapped or protected
// memory.
type Memory interface {
	MemReadInto(p []byte, addr models.Addr) error
}

// CodeWriter patches executable memory. WriteCode is the only path used to
// modify code: it makes the range writable, writes, restores protection and
// flushes the instruction cache.
type CodeWriter interface {
	WriteCode(addr models.Addr, p []byte) error
	// AllocCode returns size bytes of executable memory, as close to near as
	// the backend can manage.
	AllocCode(size int, near models.Addr) (models.Addr, error)
	FreeCode(addr models.Addr) error
}

type Process interface {
	Memory
	Bits() uint
	// Modules enumerates loaded images, main executable first. Results are
	// never cached by callers.
	Modules() ([]models.Module, error)
	Threads() ([]int, error)
	CurrentThread() int
	SuspendThread(tid int) error
	DebuggerPresent() bool
}

// ThreadStarter is implemented by processes that can report the address a
// thread started executing at.
type ThreadStarter interface {
	ThreadStart(tid int) (models.Addr, error)
}

// Target is a process that can also be patched.
type Target interface {
	Process
	CodeWriter
}

func MemRead(mem Memory, addr models.Addr, size int) ([]byte, error) {
	p := make([]byte, size)
	if err := mem.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadWord reads one little-endian pointer-sized word.
func ReadWord(mem Memory, addr models.Addr, bits uint) (uint64, error) {
	var buf [8]byte
	size := int(bits / 8)
	if err := mem.MemReadInto(buf[:size], addr); err != nil {
		return 0, err
	}
	switch size {
	case 8:
		return binary.LittleEndian.Uint64(buf[:]), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf[:])), nil
	default:
		return 0, errors.Errorf("unsupported word size: %d", size)
	}
}

// ReadImage copies a module's mapped image out of mem one page at a time.
// Pages that cannot be read are left zeroed.
func ReadImage(mem Memory, mod *models.Module) []byte {
	img := make([]byte, mod.Size)
	for off := uint64(0); off < mod.Size; off += PageSize {
		end := off + PageSize
		if end > mod.Size {
			end = mod.Size
		}
		if err := mem.MemReadInto(img[off:end], mod.Base.Offset(off)); err != nil {
			for i := range img[off:end] {
				img[off+uint64(i)] = 0
			}
		}
	}
	return img
}
