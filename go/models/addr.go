package models

import "fmt"

// Addr is a raw address inside the target process. Arithmetic and range
// checks stay on this type; it only becomes a uintptr at a platform call.
type Addr uint64

func AddrOf(p uintptr) Addr {
	return Addr(p)
}

func (a Addr) Uintptr() uintptr {
	return uintptr(a)
}

// Offset returns a+n.
func (a Addr) Offset(n uint64) Addr {
	return a + Addr(n)
}

// Rel returns a displaced by a signed amount, as used by rel32 operands.
func (a Addr) Rel(n int64) Addr {
	return Addr(uint64(a) + uint64(n))
}

// Sub returns the distance a-b. The caller must ensure a >= b.
func (a Addr) Sub(b Addr) uint64 {
	return uint64(a - b)
}

func (a Addr) AlignDown(size uint64) Addr {
	if size == 0 {
		return a
	}
	return a - Addr(uint64(a)%size)
}

// Format renders the address zero-padded to the pointer width of bits.
func (a Addr) Format(bits uint) string {
	return fmt.Sprintf("0x%0*X", int(bits/4), uint64(a))
}

func (a Addr) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}
