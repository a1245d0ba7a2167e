//go:build linux

package process

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unsafe"

	"github.com/Binject/debug/elf"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/lunixbochs/hookcorn/go/models"
)

// Live is a running process on this machine. Reads go through
// process_vm_readv so a bad address returns EFAULT instead of faulting.
// Code can only be patched in the current process.
type Live struct {
	pid  int
	self bool
	bits uint

	mu    sync.Mutex
	alloc map[models.Addr][]byte
}

func Self() (*Live, error) {
	return &Live{pid: os.Getpid(), self: true, bits: strconv.IntSize, alloc: make(map[models.Addr][]byte)}, nil
}

func Open(pid int) (*Live, error) {
	if pid == os.Getpid() {
		return Self()
	}
	exe := fmt.Sprintf("/proc/%d/exe", pid)
	f, err := elf.Open(exe)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open process %d", pid)
	}
	defer f.Close()
	bits := uint(32)
	if f.Class == elf.ELFCLASS64 {
		bits = 64
	}
	return &Live{pid: pid, bits: bits, alloc: make(map[models.Addr][]byte)}, nil
}

func (l *Live) Bits() uint { return l.bits }

func (l *Live) MemReadInto(p []byte, addr models.Addr) error {
	if len(p) == 0 {
		return nil
	}
	local := []unix.Iovec{{Base: &p[0]}}
	local[0].SetLen(len(p))
	remote := []unix.RemoteIovec{{Base: addr.Uintptr(), Len: len(p)}}
	n, err := unix.ProcessVMReadv(l.pid, local, remote, 0)
	if err != nil {
		return errors.Wrapf(err, "read %d bytes at %s", len(p), addr)
	}
	if n != len(p) {
		return &MemError{Addr: addr.Offset(uint64(n)), Size: len(p) - n, Enum: MEM_READ_UNMAPPED}
	}
	return nil
}

type mapping struct {
	start, end models.Addr
	perms      string
	path       string
}

func (l *Live) mappings() ([]mapping, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", l.pid))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read memory map")
	}
	defer f.Close()
	var out []mapping
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			continue
		}
		start, err1 := strconv.ParseUint(bounds[0], 16, 64)
		end, err2 := strconv.ParseUint(bounds[1], 16, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		m := mapping{start: models.Addr(start), end: models.Addr(end), perms: fields[1]}
		if len(fields) >= 6 {
			m.path = strings.Join(fields[5:], " ")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(scanner.Err(), "failed to read memory map")
}

// Modules groups file backed mappings by path. Each module spans from its
// lowest to its highest mapping.
func (l *Live) Modules() ([]models.Module, error) {
	maps, err := l.mappings()
	if err != nil {
		return nil, err
	}
	exe, _ := os.Readlink(fmt.Sprintf("/proc/%d/exe", l.pid))
	var mods []models.Module
	index := make(map[string]int)
	for _, m := range maps {
		if !strings.HasPrefix(m.path, "/") {
			continue
		}
		if i, ok := index[m.path]; ok {
			mod := &mods[i]
			if m.end > mod.End() {
				mod.Size = m.end.Sub(mod.Base)
			}
			continue
		}
		index[m.path] = len(mods)
		mods = append(mods, models.Module{
			Name: filepath.Base(m.path),
			Path: m.path,
			Base: m.start,
			Size: m.end.Sub(m.start),
		})
	}
	if i, ok := index[exe]; ok && i != 0 {
		main := mods[i]
		copy(mods[1:i+1], mods[:i])
		mods[0] = main
	}
	return mods, nil
}

func (l *Live) Threads() ([]int, error) {
	ents, err := os.ReadDir(fmt.Sprintf("/proc/%d/task", l.pid))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list threads")
	}
	tids := make([]int, 0, len(ents))
	for _, e := range ents {
		if tid, err := strconv.Atoi(e.Name()); err == nil {
			tids = append(tids, tid)
		}
	}
	return tids, nil
}

func (l *Live) CurrentThread() int {
	if l.self {
		return unix.Gettid()
	}
	return 0
}

// SuspendThread is unsupported: linux has no per-thread stop outside of
// ptrace, and the tracer slot may already be taken.
func (l *Live) SuspendThread(tid int) error {
	return ErrUnsupported
}

func (l *Live) DebuggerPresent() bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", l.pid))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "TracerPid:") {
			pid, _ := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "TracerPid:")))
			return pid != 0
		}
	}
	return false
}

func pageSpan(addr models.Addr, size int) (models.Addr, int) {
	start := addr.AlignDown(uint64(unix.Getpagesize()))
	end := addr.Offset(uint64(size))
	return start, int(end.Sub(start))
}

func (l *Live) WriteCode(addr models.Addr, p []byte) error {
	if !l.self {
		return errors.Wrap(ErrUnsupported, "patching another process")
	}
	start, n := pageSpan(addr, len(p))
	pages := unsafe.Slice((*byte)(unsafe.Pointer(start.Uintptr())), n)
	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return errors.Wrapf(err, "mprotect %s", start)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr.Uintptr())), len(p)), p)
	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return errors.Wrapf(err, "mprotect %s", start)
	}
	// x86 keeps the instruction cache coherent with stores
	return nil
}

// AllocCode ignores near; the kernel picks the address.
func (l *Live) AllocCode(size int, near models.Addr) (models.Addr, error) {
	if !l.self {
		return 0, errors.Wrap(ErrUnsupported, "allocating in another process")
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, errors.Wrap(err, "mmap")
	}
	addr := models.AddrOf(uintptr(unsafe.Pointer(&mem[0])))
	l.mu.Lock()
	l.alloc[addr] = mem
	l.mu.Unlock()
	return addr, nil
}

func (l *Live) FreeCode(addr models.Addr) error {
	l.mu.Lock()
	mem, ok := l.alloc[addr]
	delete(l.alloc, addr)
	l.mu.Unlock()
	if !ok {
		return errors.Errorf("free of unallocated code at %s", addr)
	}
	return errors.Wrap(unix.Munmap(mem), "munmap")
}
