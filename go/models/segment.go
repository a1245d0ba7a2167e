package models

// Segment is a half-open address range [Start, End).
type Segment struct {
	Start, End Addr
}

func SegmentOf(addr Addr, size int) Segment {
	return Segment{addr, addr.Offset(uint64(size))}
}

func (s Segment) Len() uint64 {
	return s.End.Sub(s.Start)
}

func (s Segment) Contains(addr Addr) bool {
	return s.Start <= addr && addr < s.End
}

func (s Segment) Overlaps(o Segment) bool {
	return (s.Start >= o.Start && s.Start < o.End) || (o.Start >= s.Start && o.Start < s.End)
}
