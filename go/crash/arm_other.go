//go:build !windows || !(386 || amd64)

package crash

import (
	"github.com/lunixbochs/hookcorn/go/hook"
	"github.com/lunixbochs/hookcorn/go/process"
)

// Arm is only implemented for Windows on x86.
func Arm(in *Interceptor, eng *hook.Engine) (*Arming, error) {
	return nil, process.ErrUnsupported
}
