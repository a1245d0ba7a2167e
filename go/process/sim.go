package process

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
)

const (
	allocGranularity = 0x10000
	// rel32 reach
	nearWindow = 0x7fff0000
)

// Sim is an in-memory process. It backs the file mode of the CLI and every
// test that needs a process without patching a real one.
type Sim struct {
	MemSim

	bits    uint
	mods    []models.Module
	threads []int
	current int

	// Debugger is reported by DebuggerPresent.
	Debugger bool
	// SuspendFail lists threads whose suspension fails.
	SuspendFail map[int]bool
	// Starts holds thread start addresses for ThreadStart.
	Starts    map[int]models.Addr
	Suspended []int
	// CodeWrites counts calls to WriteCode that modified memory.
	CodeWrites int

	mu    sync.Mutex
	alloc map[models.Addr]uint64
	// guards page contents for readers racing patchers
	memMu sync.RWMutex
}

func NewSim(bits uint) *Sim {
	return &Sim{
		bits:        bits,
		threads:     []int{1},
		current:     1,
		SuspendFail: make(map[int]bool),
		Starts:      make(map[int]models.Addr),
		alloc:       make(map[models.Addr]uint64),
	}
}

func (s *Sim) Bits() uint { return s.bits }

// AddModule maps data at base with the given protection and registers it as a
// loaded image. The first module added is the main executable.
func (s *Sim) AddModule(name string, base models.Addr, data []byte, prot int) *models.Module {
	size := uint64(len(data))
	if size%PageSize != 0 {
		size += PageSize - size%PageSize
	}
	pg := s.Map(base, size, prot)
	copy(pg.Data, data)
	pg.Desc = name
	s.mods = append(s.mods, models.Module{Name: name, Path: name, Base: base, Size: size})
	return &s.mods[len(s.mods)-1]
}

// RegisterModule records a module whose pages were mapped separately.
func (s *Sim) RegisterModule(m models.Module) {
	s.mods = append(s.mods, m)
}

func (s *Sim) Modules() ([]models.Module, error) {
	mods := make([]models.Module, len(s.mods))
	copy(mods, s.mods)
	return mods, nil
}

func (s *Sim) SetThreads(current int, others ...int) {
	s.current = current
	s.threads = append([]int{current}, others...)
}

func (s *Sim) Threads() ([]int, error) {
	return append([]int(nil), s.threads...), nil
}

func (s *Sim) CurrentThread() int { return s.current }

func (s *Sim) SuspendThread(tid int) error {
	if s.SuspendFail[tid] {
		return errors.Errorf("thread %d: access denied", tid)
	}
	s.mu.Lock()
	s.Suspended = append(s.Suspended, tid)
	s.mu.Unlock()
	return nil
}

func (s *Sim) ThreadStart(tid int) (models.Addr, error) {
	if start, ok := s.Starts[tid]; ok {
		return start, nil
	}
	return 0, errors.Errorf("thread %d: start address unknown", tid)
}

func (s *Sim) DebuggerPresent() bool { return s.Debugger }

func (s *Sim) MemReadInto(p []byte, addr models.Addr) error {
	s.memMu.RLock()
	defer s.memMu.RUnlock()
	return s.Read(addr, p, PROT_READ)
}

// Poke writes regardless of protection, as the host itself would.
func (s *Sim) Poke(addr models.Addr, p []byte) error {
	s.memMu.Lock()
	defer s.memMu.Unlock()
	return s.Write(addr, p, 0)
}

func (s *Sim) WriteCode(addr models.Addr, p []byte) error {
	s.memMu.Lock()
	defer s.memMu.Unlock()
	if gmap, _ := s.RangeValid(addr, uint64(len(p)), 0); !gmap {
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_WRITE_UNMAPPED}
	}
	if err := s.Write(addr, p, 0); err != nil {
		return err
	}
	s.CodeWrites++
	return nil
}

// AllocCode places allocations on 64k boundaries above near, staying within
// rel32 reach when it can.
func (s *Sim) AllocCode(size int, near models.Addr) (models.Addr, error) {
	if size <= 0 {
		return 0, errors.Errorf("bad allocation size %d", size)
	}
	sz := uint64(size)
	if sz%PageSize != 0 {
		sz += PageSize - sz%PageSize
	}
	limit := models.Addr(1<<32 - 1)
	if s.bits == 64 {
		limit = models.Addr(1<<47 - 1)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memMu.Lock()
	defer s.memMu.Unlock()
	start := near.AlignDown(allocGranularity).Offset(allocGranularity)
	for a := start; a.Offset(sz) < limit; a = a.Offset(allocGranularity) {
		if a.Sub(start) > nearWindow {
			break
		}
		if !s.Mem.Overlapping(a, sz) {
			pg := s.Map(a, sz, PROT_READ|PROT_EXEC)
			pg.Desc = "code"
			s.alloc[a] = sz
			return a, nil
		}
	}
	return 0, errors.Errorf("no free memory near %s", near)
}

func (s *Sim) FreeCode(addr models.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sz, ok := s.alloc[addr]
	if !ok {
		return errors.Errorf("free of unallocated code at %s", addr)
	}
	delete(s.alloc, addr)
	s.memMu.Lock()
	s.Unmap(addr, sz)
	s.memMu.Unlock()
	return nil
}

// Allocated reports whether addr is the start of a live AllocCode block.
func (s *Sim) Allocated(addr models.Addr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.alloc[addr]
	return ok
}
