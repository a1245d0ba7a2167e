//go:build windows

package process

import (
	"strconv"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/lunixbochs/hookcorn/go/models"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procSuspendThread         = kernel32.NewProc("SuspendThread")
	procIsDebuggerPresent     = kernel32.NewProc("IsDebuggerPresent")
	procFlushInstructionCache = kernel32.NewProc("FlushInstructionCache")
	procCheckRemoteDebugger   = kernel32.NewProc("CheckRemoteDebuggerPresent")

	ntdll                        = windows.NewLazySystemDLL("ntdll.dll")
	procNtQueryInformationThread = ntdll.NewProc("NtQueryInformationThread")
)

const (
	threadSuspendResume             = 0x0002
	threadQuerySetWin32StartAddress = 9
)

// Live is a process handle. Reads go through ReadProcessMemory, which fails
// cleanly on unmapped or guarded pages, including for the current process.
type Live struct {
	pid    uint32
	handle windows.Handle
	self   bool
	bits   uint

	mu    sync.Mutex
	alloc map[models.Addr]uintptr
}

func Self() (*Live, error) {
	return &Live{
		pid:    windows.GetCurrentProcessId(),
		handle: windows.CurrentProcess(),
		self:   true,
		bits:   strconv.IntSize,
		alloc:  make(map[models.Addr]uintptr),
	}, nil
}

func Open(pid int) (*Live, error) {
	if uint32(pid) == windows.GetCurrentProcessId() {
		return Self()
	}
	h, err := windows.OpenProcess(windows.PROCESS_VM_READ|windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open process %d", pid)
	}
	bits := uint(strconv.IntSize)
	var wow bool
	if err := windows.IsWow64Process(h, &wow); err == nil && wow {
		bits = 32
	}
	return &Live{pid: uint32(pid), handle: h, bits: bits, alloc: make(map[models.Addr]uintptr)}, nil
}

func (l *Live) Close() error {
	if l.self {
		return nil
	}
	return windows.CloseHandle(l.handle)
}

func (l *Live) Bits() uint { return l.bits }

func (l *Live) MemReadInto(p []byte, addr models.Addr) error {
	if len(p) == 0 {
		return nil
	}
	var n uintptr
	if err := windows.ReadProcessMemory(l.handle, addr.Uintptr(), &p[0], uintptr(len(p)), &n); err != nil {
		return errors.Wrapf(err, "read %d bytes at %s", len(p), addr)
	}
	if int(n) != len(p) {
		return &MemError{Addr: addr.Offset(uint64(n)), Size: len(p) - int(n), Enum: MEM_READ_UNMAPPED}
	}
	return nil
}

func (l *Live) Modules() ([]models.Module, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, l.pid)
	if err != nil {
		return nil, errors.Wrap(err, "module snapshot")
	}
	defer windows.CloseHandle(snap)
	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	var mods []models.Module
	for err = windows.Module32First(snap, &entry); err == nil; err = windows.Module32Next(snap, &entry) {
		mods = append(mods, models.Module{
			Name: windows.UTF16ToString(entry.Module[:]),
			Path: windows.UTF16ToString(entry.ExePath[:]),
			Base: models.AddrOf(entry.ModBaseAddr),
			Size: uint64(entry.ModBaseSize),
		})
	}
	if len(mods) == 0 {
		return nil, errors.Wrap(err, "no modules")
	}
	return mods, nil
}

func (l *Live) Threads() ([]int, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, errors.Wrap(err, "thread snapshot")
	}
	defer windows.CloseHandle(snap)
	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	var tids []int
	for err = windows.Thread32First(snap, &entry); err == nil; err = windows.Thread32Next(snap, &entry) {
		if entry.OwnerProcessID == l.pid {
			tids = append(tids, int(entry.ThreadID))
		}
	}
	return tids, nil
}

func (l *Live) CurrentThread() int {
	if l.self {
		return int(windows.GetCurrentThreadId())
	}
	return 0
}

func (l *Live) SuspendThread(tid int) error {
	h, err := windows.OpenThread(threadSuspendResume, false, uint32(tid))
	if err != nil {
		return errors.Wrapf(err, "open thread %d", tid)
	}
	defer windows.CloseHandle(h)
	if r, _, err := procSuspendThread.Call(uintptr(h)); r == ^uintptr(0) {
		return errors.Wrapf(err, "suspend thread %d", tid)
	}
	return nil
}

// ThreadStart reports the Win32 start address of a thread.
func (l *Live) ThreadStart(tid int) (models.Addr, error) {
	h, err := windows.OpenThread(windows.THREAD_QUERY_INFORMATION, false, uint32(tid))
	if err != nil {
		return 0, errors.Wrapf(err, "open thread %d", tid)
	}
	defer windows.CloseHandle(h)
	var start uintptr
	status, _, _ := procNtQueryInformationThread.Call(uintptr(h), threadQuerySetWin32StartAddress,
		uintptr(unsafe.Pointer(&start)), unsafe.Sizeof(start), 0)
	if status != 0 {
		return 0, errors.Errorf("query thread %d: NTSTATUS 0x%x", tid, status)
	}
	return models.AddrOf(start), nil
}

func (l *Live) DebuggerPresent() bool {
	if !l.self {
		var present int32
		procCheckRemoteDebugger.Call(uintptr(l.handle), uintptr(unsafe.Pointer(&present)))
		return present != 0
	}
	r, _, _ := procIsDebuggerPresent.Call()
	return r != 0
}

func (l *Live) WriteCode(addr models.Addr, p []byte) error {
	if !l.self {
		return errors.Wrap(ErrUnsupported, "patching another process")
	}
	var old uint32
	if err := windows.VirtualProtect(addr.Uintptr(), uintptr(len(p)), windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return errors.Wrapf(err, "VirtualProtect %s", addr)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr.Uintptr())), len(p)), p)
	var tmp uint32
	if err := windows.VirtualProtect(addr.Uintptr(), uintptr(len(p)), old, &tmp); err != nil {
		return errors.Wrapf(err, "VirtualProtect %s", addr)
	}
	procFlushInstructionCache.Call(uintptr(l.handle), addr.Uintptr(), uintptr(len(p)))
	return nil
}

const allocGranularityWin = 0x10000

// AllocCode probes 64k slots above near until VirtualAlloc accepts one
// within rel32 reach, then falls back to any address.
func (l *Live) AllocCode(size int, near models.Addr) (models.Addr, error) {
	if !l.self {
		return 0, errors.Wrap(ErrUnsupported, "allocating in another process")
	}
	const flags = windows.MEM_RESERVE | windows.MEM_COMMIT
	start := near.AlignDown(allocGranularityWin).Offset(allocGranularityWin)
	for a := start; a.Sub(start) < nearWindow; a = a.Offset(allocGranularityWin) {
		p, err := windows.VirtualAlloc(a.Uintptr(), uintptr(size), flags, windows.PAGE_EXECUTE_READWRITE)
		if err == nil && p != 0 {
			return l.track(p), nil
		}
		if l.bits == 32 {
			break
		}
	}
	p, err := windows.VirtualAlloc(0, uintptr(size), flags, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, errors.Wrap(err, "VirtualAlloc")
	}
	return l.track(p), nil
}

func (l *Live) track(p uintptr) models.Addr {
	addr := models.AddrOf(p)
	l.mu.Lock()
	l.alloc[addr] = p
	l.mu.Unlock()
	return addr
}

func (l *Live) FreeCode(addr models.Addr) error {
	l.mu.Lock()
	p, ok := l.alloc[addr]
	delete(l.alloc, addr)
	l.mu.Unlock()
	if !ok {
		return errors.Errorf("free of unallocated code at %s", addr)
	}
	return errors.Wrap(windows.VirtualFree(p, 0, windows.MEM_RELEASE), "VirtualFree")
}
