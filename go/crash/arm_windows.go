//go:build windows && (386 || amd64)

package crash

import (
	"reflect"
	"syscall"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/lunixbochs/hookcorn/go/hook"
	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/scan"
)

var procSetUnhandledExceptionFilter = windows.NewLazySystemDLL("kernel32.dll").NewProc("SetUnhandledExceptionFilter")

// Arm installs the interceptor as the process unhandled exception filter,
// guards the registration entry point against the host replacing it, and
// redirects the host's own fault routine when cfg.HostHandler matches.
func Arm(in *Interceptor, eng *hook.Engine) (*Arming, error) {
	cfg := in.cfg
	// runtime threads start inside our own image and must keep running
	if mods, err := in.proc.Modules(); err == nil {
		if own := models.FindModule(mods, models.AddrOf(reflect.ValueOf(Arm).Pointer())); own != nil {
			in.Exempt(*own)
			cfg.Debugf("[crash] threads started in %s are exempt from suspension\n", own.Name)
		}
	}
	handle := func(ptrs uintptr) uintptr {
		ep := (*exceptionPointers)(unsafe.Pointer(ptrs))
		return uintptr(in.Handle(snapshotOf(ep)))
	}
	a := &Arming{Filter: models.AddrOf(windows.NewCallback(handle))}

	var orig models.Addr
	a.Guard = &FilterGuard{
		Allowed: a.Filter.Uintptr(),
		Forward: func(handler uintptr) uintptr {
			r, _, _ := syscall.SyscallN(orig.Uintptr(), handler)
			return r
		},
	}
	detour := windows.NewCallback(func(handler uintptr) uintptr {
		return a.Guard.Filter(handler)
	})
	ref := hook.Ref{Module: "kernel32.dll", Name: "SetUnhandledExceptionFilter"}
	if err := eng.InstallRef(ref, models.AddrOf(detour), &orig); err != nil {
		return nil, errors.Wrap(err, "failed to guard exception filter")
	}
	for _, h := range eng.Hooks() {
		if h.Trampoline == orig {
			a.GuardTarget = h
		}
	}
	// goes through the guard, which lets our own filter pass
	procSetUnhandledExceptionFilter.Call(a.Filter.Uintptr())

	if cfg.HostHandler == "" {
		return a, nil
	}
	sig, err := scan.ParseIDA(cfg.HostHandler)
	if err != nil {
		return a, errors.Wrap(err, "bad host handler signature")
	}
	site, ok, err := scan.FindInModule(in.proc, "", sig)
	if err != nil || !ok {
		cfg.Printf("[crash] host fault handler not found, continuing without it\n")
		return a, nil
	}
	callee, err := scan.ResolveRelative(in.proc, site, 5)
	if err != nil {
		return a, err
	}
	cdecl := windows.NewCallbackCDecl(handle)
	if _, err := eng.Install(callee, models.AddrOf(cdecl)); err != nil {
		return a, errors.Wrap(err, "failed to hook host fault handler")
	}
	a.HostHandler = callee
	cfg.Debugf("[crash] host fault handler at %s redirected\n", callee)
	return a, nil
}
