package crash

import "github.com/lunixbochs/hookcorn/go/models"

// Leading fields of the Windows CONTEXT record. Only the prefix up to the
// program counter is declared; the record is always read through a pointer.

type context386 struct {
	ContextFlags uint32

	Dr0, Dr1, Dr2, Dr3, Dr6, Dr7 uint32

	FloatSave [112]byte

	SegGs, SegFs, SegEs, SegDs uint32

	Edi, Esi, Ebx, Edx, Ecx, Eax uint32

	Ebp    uint32
	Eip    uint32
	SegCs  uint32
	EFlags uint32
	Esp    uint32
	SegSs  uint32
}

func (c *context386) snapshot(code uint32) models.Snapshot {
	return models.Snapshot{
		Code: code,
		PC:   models.Addr(c.Eip),
		SP:   models.Addr(c.Esp),
		Bits: 32,
		Regs: []models.RegVal{
			{"EAX", uint64(c.Eax)}, {"ECX", uint64(c.Ecx)}, {"EDX", uint64(c.Edx)}, {"EBX", uint64(c.Ebx)},
			{"ESI", uint64(c.Esi)}, {"EDI", uint64(c.Edi)}, {"EBP", uint64(c.Ebp)}, {"ESP", uint64(c.Esp)},
		},
	}
}

type contextAMD64 struct {
	P1Home, P2Home, P3Home, P4Home, P5Home, P6Home uint64

	ContextFlags uint32
	MxCsr        uint32

	SegCs, SegDs, SegEs, SegFs, SegGs, SegSs uint16
	EFlags                                   uint32

	Dr0, Dr1, Dr2, Dr3, Dr6, Dr7 uint64

	Rax, Rcx, Rdx, Rbx, Rsp, Rbp, Rsi, Rdi uint64
	R8, R9, R10, R11, R12, R13, R14, R15   uint64

	Rip uint64
}

func (c *contextAMD64) snapshot(code uint32) models.Snapshot {
	return models.Snapshot{
		Code: code,
		PC:   models.Addr(c.Rip),
		SP:   models.Addr(c.Rsp),
		Bits: 64,
		Regs: []models.RegVal{
			{"RAX", c.Rax}, {"RCX", c.Rcx}, {"RDX", c.Rdx}, {"RBX", c.Rbx},
			{"RSI", c.Rsi}, {"RDI", c.Rdi}, {"RBP", c.Rbp}, {"RSP", c.Rsp},
			{"R8", c.R8}, {"R9", c.R9}, {"R10", c.R10}, {"R11", c.R11},
			{"R12", c.R12}, {"R13", c.R13}, {"R14", c.R14}, {"R15", c.R15},
		},
	}
}

// exceptionRecord is the head of EXCEPTION_RECORD.
type exceptionRecord struct {
	ExceptionCode    uint32
	ExceptionFlags   uint32
	ExceptionRecord  uintptr
	ExceptionAddress uintptr
}

type exceptionPointers struct {
	ExceptionRecord *exceptionRecord
	ContextRecord   uintptr
}
