package hook

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// Target is the memory an Engine patches.
type Target interface {
	process.Memory
	process.CodeWriter
	Bits() uint
}

// Hook records one active redirection. The engine owns Trampoline until the
// hook is uninstalled.
type Hook struct {
	Target     models.Addr
	Detour     models.Addr
	Trampoline models.Addr
	// bytes overwritten at Target, restored on uninstall
	Original []byte
	// jump plus padding written at Target
	Patch []byte

	installed bool
}

func (h *Hook) Installed() bool {
	return h.installed
}

// Segment is the patched range at the target.
func (h *Hook) Segment() models.Segment {
	return models.SegmentOf(h.Target, len(h.Patch))
}

func (h *Hook) String() string {
	return fmt.Sprintf("%s -> %s (trampoline %s, %d bytes)", h.Target, h.Detour, h.Trampoline, len(h.Patch))
}

// Engine installs and tracks hooks in one target. Callers serialize
// Install and Uninstall; the lock only guards the hook table.
type Engine struct {
	t   Target
	cfg *models.Config

	// Resolver turns a Ref into an address. New sets a module export
	// resolver when the target is a full process.
	Resolver Resolver

	mu    sync.Mutex
	hooks map[models.Addr]*Hook
}

func New(t Target, cfg *models.Config) *Engine {
	if cfg == nil {
		cfg = &models.Config{}
	}
	cfg.Init()
	e := &Engine{t: t, cfg: cfg, hooks: make(map[models.Addr]*Hook)}
	if p, ok := t.(process.Process); ok {
		e.Resolver = &ExportResolver{Proc: p, Config: cfg}
	}
	return e
}

func (e *Engine) overlapping(seg models.Segment, skip models.Addr) *Hook {
	for addr, h := range e.hooks {
		if addr != skip && h.Segment().Overlaps(seg) {
			return h
		}
	}
	return nil
}

// readPrologue reads up to maxPrologue bytes, shrinking the read when the
// site sits near the end of readable memory.
func (e *Engine) readPrologue(addr models.Addr) []byte {
	buf := make([]byte, maxPrologue)
	for n := maxPrologue; n > 0; n-- {
		if err := e.t.MemReadInto(buf[:n], addr); err == nil {
			return buf[:n]
		}
	}
	return nil
}

// Install redirects execution of target to detour and returns the address of
// a trampoline that runs the original code. Installing the same pair again
// returns the existing trampoline, rewriting the jump only if something has
// overwritten it.
func (e *Engine) Install(target, detour models.Addr) (models.Addr, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.hooks[target]; ok {
		if h.Detour != detour {
			return 0, errors.Wrapf(ErrAlreadyHooked, "%s -> %s", target, h.Detour)
		}
		if err := e.repair(h); err != nil {
			return 0, err
		}
		return h.Trampoline, nil
	}
	for _, h := range e.hooks {
		if h.Segment().Contains(target) {
			return 0, errors.Wrapf(ErrOverlap, "%s is inside hook at %s", target, h.Target)
		}
	}
	bits := e.t.Bits()
	code := e.readPrologue(target)
	if code == nil {
		return 0, errors.Wrapf(ErrShortPrologue, "%s is not readable", target)
	}
	need := jumpLen(target, detour, bits)
	instrs, consumed, err := measure(code, bits, need)
	if err != nil {
		return 0, errors.WithMessagef(err, "hook at %s", target)
	}
	if other := e.overlapping(models.SegmentOf(target, consumed), 0); other != nil {
		return 0, errors.Wrapf(ErrOverlap, "%s+%d overlaps hook at %s", target, consumed, other.Target)
	}

	// the back jump may need the long form, so size for it
	tramp, err := e.t.AllocCode(consumed+abs64JumpLen, target)
	if err != nil {
		return 0, errors.Wrap(err, "failed to allocate trampoline")
	}
	body, err := relocate(code, instrs, target, tramp, bits)
	if err != nil {
		e.t.FreeCode(tramp)
		return 0, errors.WithMessagef(err, "hook at %s", target)
	}
	back := target.Offset(uint64(consumed))
	body = append(body, encodeJump(tramp.Offset(uint64(len(body))), back, bits)...)
	if err := e.t.WriteCode(tramp, body); err != nil {
		e.t.FreeCode(tramp)
		return 0, errors.Wrap(err, "failed to write trampoline")
	}

	jump := encodeJump(target, detour, bits)
	patch := append(jump, nops(consumed-len(jump))...)
	h := &Hook{
		Target:     target,
		Detour:     detour,
		Trampoline: tramp,
		Original:   append([]byte(nil), code[:consumed]...),
		Patch:      patch,
	}
	if err := e.t.WriteCode(target, patch); err != nil {
		e.t.FreeCode(tramp)
		return 0, errors.Wrapf(err, "failed to patch %s", target)
	}
	h.installed = true
	e.hooks[target] = h
	e.cfg.Debugf("[hook] %s\n", h)
	return tramp, nil
}

// MustInstall calls models.DefaultExitFn if Install fails.
func (e *Engine) MustInstall(target, detour models.Addr) models.Addr {
	tramp, err := e.Install(target, detour)
	if err != nil {
		models.DefaultExitFn(err)
	}
	return tramp
}

func (e *Engine) repair(h *Hook) error {
	cur, err := process.MemRead(e.t, h.Target, len(h.Patch))
	if err == nil && bytes.Equal(cur, h.Patch) {
		return nil
	}
	if err := e.t.WriteCode(h.Target, h.Patch); err != nil {
		return errors.Wrapf(err, "failed to repair hook at %s", h.Target)
	}
	e.cfg.Debugf("[hook] repaired %s\n", h.Target)
	return nil
}

// Repair rewrites the jump of every hook whose patch was overwritten and
// returns how many were repaired.
func (e *Engine) Repair() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fixed := 0
	for _, h := range e.hooks {
		cur, err := process.MemRead(e.t, h.Target, len(h.Patch))
		if err == nil && bytes.Equal(cur, h.Patch) {
			continue
		}
		if err := e.repair(h); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// Uninstall writes the original bytes back and releases the trampoline.
func (e *Engine) Uninstall(target models.Addr) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uninstall(target)
}

func (e *Engine) uninstall(target models.Addr) error {
	h, ok := e.hooks[target]
	if !ok {
		return errors.Wrapf(ErrHookNotFound, "%s", target)
	}
	if err := e.t.WriteCode(target, h.Original); err != nil {
		return errors.Wrapf(err, "failed to restore %s", target)
	}
	h.installed = false
	delete(e.hooks, target)
	if e.overlapping(h.Segment(), target) == nil {
		if err := e.t.FreeCode(h.Trampoline); err != nil {
			return errors.Wrapf(err, "failed to free trampoline for %s", target)
		}
	}
	e.cfg.Debugf("[hook] removed %s\n", target)
	return nil
}

// Close removes every hook, highest address first. The first error is
// returned after all hooks have been attempted.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var first error
	for _, h := range e.sorted() {
		if err := e.uninstall(h.Target); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Engine) sorted() []*Hook {
	list := make([]*Hook, 0, len(e.hooks))
	for _, h := range e.hooks {
		list = append(list, h)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Target > list[j].Target })
	return list
}

// Lookup returns a copy of the hook recorded at target.
func (e *Engine) Lookup(target models.Addr) (Hook, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.hooks[target]; ok {
		return *h, true
	}
	return Hook{}, false
}

// Hooks returns copies of every active hook in address order.
func (e *Engine) Hooks() []Hook {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.sorted()
	out := make([]Hook, len(list))
	for i, h := range list {
		out[len(list)-1-i] = *h
	}
	return out
}
