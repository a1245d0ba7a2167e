package hook

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/lunixbochs/struc"

	"github.com/lunixbochs/hookcorn/go/models"
)

const (
	opJmpRel32  = 0xe9
	opCallRel32 = 0xe8
	opNop       = 0x90

	rel32JumpLen = 5
	abs64JumpLen = 14
)

// E9 rel32
type rel32Jump struct {
	Op  uint8
	Rel int32
}

// FF 25 00000000 followed by the absolute target
type abs64Jump struct {
	Op     uint16
	Disp   uint32
	Target uint64
}

func pack(v interface{}) []byte {
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, v, binary.LittleEndian); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// rel32 computes the displacement from the end of an instruction at next to
// to. 32-bit targets wrap, so every address is reachable there.
func rel32(next, to models.Addr, bits uint) (int32, bool) {
	if bits == 32 {
		return int32(uint32(to) - uint32(next)), true
	}
	d := int64(to - next)
	if d < math.MinInt32 || d > math.MaxInt32 {
		return 0, false
	}
	return int32(d), true
}

func jumpLen(from, to models.Addr, bits uint) int {
	if _, ok := rel32(from.Offset(rel32JumpLen), to, bits); ok {
		return rel32JumpLen
	}
	return abs64JumpLen
}

// encodeJump returns the shortest jump from from to to.
func encodeJump(from, to models.Addr, bits uint) []byte {
	if d, ok := rel32(from.Offset(rel32JumpLen), to, bits); ok {
		return pack(&rel32Jump{Op: opJmpRel32, Rel: d})
	}
	return pack(&abs64Jump{Op: 0x25ff, Target: uint64(to)})
}

func nops(n int) []byte {
	return bytes.Repeat([]byte{opNop}, n)
}
