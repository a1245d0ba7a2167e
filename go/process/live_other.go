//go:build !linux && !windows

package process

import "github.com/lunixbochs/hookcorn/go/models"

// Live is unavailable on this platform; every constructor fails.
type Live struct{}

func Self() (*Live, error)        { return nil, ErrUnsupported }
func Open(pid int) (*Live, error) { return nil, ErrUnsupported }

func (l *Live) Bits() uint                                   { return 0 }
func (l *Live) MemReadInto(p []byte, addr models.Addr) error { return ErrUnsupported }
func (l *Live) Modules() ([]models.Module, error)            { return nil, ErrUnsupported }
func (l *Live) Threads() ([]int, error)                      { return nil, ErrUnsupported }
func (l *Live) CurrentThread() int                           { return 0 }
func (l *Live) SuspendThread(tid int) error                  { return ErrUnsupported }
func (l *Live) DebuggerPresent() bool                        { return false }
func (l *Live) WriteCode(addr models.Addr, p []byte) error   { return ErrUnsupported }
func (l *Live) FreeCode(addr models.Addr) error              { return ErrUnsupported }

func (l *Live) AllocCode(size int, near models.Addr) (models.Addr, error) {
	return 0, ErrUnsupported
}
