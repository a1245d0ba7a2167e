package process

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lunixbochs/hookcorn/go/models"
)

type Page struct {
	Addr models.Addr
	Size uint64
	Prot int
	Data []byte

	Desc string
}

func (p *Page) String() string {
	prots := []int{PROT_READ, PROT_WRITE, PROT_EXEC}
	chars := []string{"r", "w", "x"}
	prot := ""
	for i := range prots {
		if p.Prot&prots[i] != 0 {
			prot += chars[i]
		} else {
			prot += "-"
		}
	}
	desc := fmt.Sprintf("0x%x-0x%x %s", uint64(p.Addr), uint64(p.End()), prot)
	if p.Desc != "" {
		desc += fmt.Sprintf(" [%s]", p.Desc)
	}
	return desc
}

func (p *Page) End() models.Addr {
	return p.Addr.Offset(p.Size)
}

func (p *Page) Contains(addr models.Addr) bool {
	return addr >= p.Addr && addr < p.End()
}

// start = max(s1, s2), end = min(e1, e2), ok = end > start
func (p *Page) Intersect(addr models.Addr, size uint64) (models.Addr, uint64, bool) {
	start, end := p.Addr, p.End()
	if e2 := addr.Offset(size); end > e2 {
		end = e2
	}
	if start < addr {
		start = addr
	}
	if end <= start {
		return start, 0, false
	}
	return start, end.Sub(start), true
}

func (p *Page) Overlaps(addr models.Addr, size uint64) bool {
	_, _, ok := p.Intersect(addr, size)
	return ok
}

func (p *Page) slice(addr models.Addr, size uint64) *Page {
	o := addr.Sub(p.Addr)
	return &Page{Addr: addr, Size: size, Prot: p.Prot, Data: p.Data[o : o+size], Desc: p.Desc}
}

// Split trims p to [addr, addr+size) and returns the pieces of p left over on
// either side. Parts of the new range p did not cover are zero filled.
func (p *Page) Split(addr models.Addr, size uint64) (left, right *Page) {
	if end := addr.Offset(size); end < p.End() {
		right = p.slice(end, p.End().Sub(end))
		p.Data = p.Data[:end.Sub(p.Addr)]
	}
	if addr > p.Addr {
		ls := addr.Sub(p.Addr)
		left = p.slice(p.Addr, ls)
		p.Data = p.Data[ls:]
	}
	if addr < p.Addr {
		extra := bytes.Repeat([]byte{0}, int(p.Addr.Sub(addr)))
		p.Data = append(extra, p.Data...)
	}
	if old, end := p.End(), addr.Offset(size); end > old {
		p.Data = append(p.Data, bytes.Repeat([]byte{0}, int(end.Sub(old)))...)
	}
	p.Addr, p.Size = addr, size
	return left, right
}

type Pages []*Page

func (p Pages) Len() int           { return len(p) }
func (p Pages) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p Pages) Less(i, j int) bool { return p[i].Addr < p[j].Addr }

func (p Pages) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// binary search to find index of first region containing addr, if any, else -1
func (p Pages) bsearch(addr models.Addr) int {
	l, r := 0, len(p)-1
	for l <= r {
		mid := (l + r) / 2
		e := p[mid]
		if addr >= e.Addr {
			if addr < e.End() {
				return mid
			}
			l = mid + 1
		} else {
			r = mid - 1
		}
	}
	return -1
}

func (p Pages) Find(addr models.Addr) *Page {
	if i := p.bsearch(addr); i >= 0 {
		return p[i]
	}
	return nil
}

// Overlapping reports whether any page intersects [addr, addr+size).
func (p Pages) Overlapping(addr models.Addr, size uint64) bool {
	for _, pg := range p {
		if pg.Overlaps(addr, size) {
			return true
		}
	}
	return false
}
