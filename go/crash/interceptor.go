package crash

import (
	"fmt"
	"io"
	"runtime/debug"
	"sync/atomic"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

type State int32

const (
	Armed State = iota
	// Handling is terminal: the process exits from it.
	Handling
)

func (s State) String() string {
	if s == Handling {
		return "handling"
	}
	return "armed"
}

// Disposition is the value handed back to the platform fault dispatcher.
type Disposition int32

const (
	// ContinueSearch passes the fault to the next handler (or debugger).
	ContinueSearch Disposition = 0
	// ExecuteHandler claims the fault.
	ExecuteHandler Disposition = 1
)

// Interceptor reports the first unhandled fault in the process and exits.
// Only one fault is ever reported; threads faulting concurrently are parked.
type Interceptor struct {
	proc     process.Process
	cfg      *models.Config
	platform Platform

	state  int32
	ui     atomic.Value
	exempt []models.Module
}

// tests replace this to keep the collector running
var setGCPercent = debug.SetGCPercent

func NewInterceptor(p process.Process, platform Platform, cfg *models.Config) *Interceptor {
	if cfg == nil {
		cfg = &models.Config{}
	}
	cfg.Init()
	return &Interceptor{proc: p, cfg: cfg, platform: platform}
}

// Exempt keeps threads that started inside mods running while a fault is
// handled. It must be called before the interceptor can fire.
func (in *Interceptor) Exempt(mods ...models.Module) {
	in.exempt = append(in.exempt, mods...)
}

// SetUI registers the collaborator torn down before reporting.
func (in *Interceptor) SetUI(ui UI) {
	in.ui.Store(&ui)
}

func (in *Interceptor) State() State {
	return State(atomic.LoadInt32(&in.state))
}

// step runs fn, swallowing any panic so later steps still run.
func (in *Interceptor) step(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			in.cfg.Debugf("[crash] %s failed: %v\n", name, r)
		}
	}()
	fn()
}

// Handle processes a fault. With a debugger attached it writes nothing and
// returns ContinueSearch. Otherwise the first caller produces the report
// and exits with status 1; later callers park. Handle only returns if
// Platform.Exit does.
func (in *Interceptor) Handle(snap models.Snapshot) Disposition {
	debugger := false
	in.step("debugger check", func() { debugger = in.proc.DebuggerPresent() })
	if debugger {
		return ContinueSearch
	}
	if !atomic.CompareAndSwapInt32(&in.state, int32(Armed), int32(Handling)) {
		in.platform.Park()
		return ContinueSearch
	}

	// suspended threads may hold runtime locks a collection would wait on
	in.step("stop gc", func() { setGCPercent(-1) })
	in.step("suspend threads", func() {
		n, skipped := process.SuspendOthers(in.proc, in.exempt...)
		in.cfg.Debugf("[crash] suspended %d threads, skipped %d\n", n, skipped)
	})
	in.step("ui teardown", func() {
		if ui, ok := in.ui.Load().(*UI); ok && *ui != nil {
			(*ui).Teardown()
		}
	})

	var w io.Writer = in.cfg.Output
	color := false
	in.step("console", func() {
		if con, err := in.platform.Console(); err == nil && con != nil {
			w = con
			color = in.cfg.Color && in.platform.Terminal()
		}
	})
	var closeLog func()
	if in.cfg.LogFile != "" {
		in.step("log file", func() {
			if lw, closer, err := openLog(in.cfg.LogFile); err == nil {
				w = io.MultiWriter(w, lw)
				closeLog = closer
			} else {
				fmt.Fprintf(w, "failed to open log: %v\n", err)
			}
		})
	}

	var report *Report
	in.step("resolve", func() {
		report = BuildReport(in.proc, snap, in.cfg)
	})
	if report == nil {
		report = &Report{Snapshot: snap, Bits: snap.Bits, Fault: models.Resolution{Addr: snap.PC}, SupportURL: in.cfg.SupportURL}
	}
	in.step("header", func() { report.writeHeader(w) })
	in.step("context", func() { report.writeContext(w, color) })
	in.step("stack", func() { report.writeStack(w) })
	in.step("footer", func() { report.writeFooter(w) })
	if closeLog != nil {
		in.step("close log", closeLog)
	}
	in.step("wait", in.platform.WaitKey)
	in.platform.Exit(1)
	return ExecuteHandler
}
