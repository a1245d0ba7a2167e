package models

type RegVal struct {
	Name string
	Val  uint64
}

// Snapshot is the processor state captured when a fault is dispatched to the
// interceptor. It is not modified after capture.
type Snapshot struct {
	Code uint32
	PC   Addr
	SP   Addr
	Bits uint
	Regs []RegVal
}
