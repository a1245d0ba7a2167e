package crash

import "sync/atomic"

// FilterGuard sits in front of the platform call that registers the
// process-wide fault handler. Registrations of Allowed are passed through to
// Forward; every other registration is dropped and reports no previous
// handler, so the host cannot displace the interceptor.
type FilterGuard struct {
	Allowed uintptr
	Forward func(handler uintptr) uintptr

	// host threads register concurrently
	dropped atomic.Int32
}

// Dropped counts the registrations refused so far.
func (g *FilterGuard) Dropped() int {
	return int(g.dropped.Load())
}

func (g *FilterGuard) Filter(handler uintptr) uintptr {
	if handler != g.Allowed || g.Forward == nil {
		g.dropped.Add(1)
		return 0
	}
	return g.Forward(handler)
}
