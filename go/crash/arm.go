package crash

import (
	"github.com/lunixbochs/hookcorn/go/hook"
	"github.com/lunixbochs/hookcorn/go/models"
)

// Arming describes what Arm put in place.
type Arming struct {
	// Filter is the callable address of the installed handler.
	Filter models.Addr
	Guard  *FilterGuard
	// GuardTarget is the hook on the filter registration entry point.
	GuardTarget hook.Hook
	// HostHandler is the redirected host fault routine, zero if absent.
	HostHandler models.Addr
}
