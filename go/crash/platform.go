package crash

import "io"

// Platform is the process-level surface the handler drives once it owns the
// fault.
type Platform interface {
	// Console opens (allocating if needed) an interactive console.
	Console() (io.Writer, error)
	// Terminal reports whether the console is an interactive terminal.
	Terminal() bool
	WaitKey()
	Exit(code int)
	// Park blocks the calling thread forever.
	Park()
}

// UI is an on-screen collaborator that must be torn down before the report
// is shown.
type UI interface {
	Teardown()
}

// UIFunc adapts a function to UI.
type UIFunc func()

func (f UIFunc) Teardown() { f() }
