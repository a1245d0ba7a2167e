package hook

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// Ref names a hook target symbolically. A non-zero Addr wins; otherwise
// Name, or Ordinal when Name is empty, is looked up in Module's exports.
type Ref struct {
	Module  string
	Name    string
	Ordinal uint32
	Addr    models.Addr
}

func (r Ref) String() string {
	switch {
	case r.Addr != 0:
		return r.Addr.String()
	case r.Name != "":
		return fmt.Sprintf("%s!%s", r.Module, r.Name)
	}
	return fmt.Sprintf("%s!#%d", r.Module, r.Ordinal)
}

type Resolver interface {
	Resolve(ref Ref) (models.Addr, error)
}

// ExportResolver looks refs up in the export tables of currently loaded
// modules, following forwarded exports into the modules they name.
type ExportResolver struct {
	Proc   process.Process
	Config *models.Config
}

// forwarding chains longer than this are treated as loops
const maxForwards = 8

func (r *ExportResolver) Resolve(ref Ref) (models.Addr, error) {
	if ref.Addr != 0 {
		return ref.Addr, nil
	}
	mods, err := r.Proc.Modules()
	if err != nil {
		return 0, err
	}
	cur := ref
	for hop := 0; hop <= maxForwards; hop++ {
		mod := models.FindModuleByName(mods, cur.Module)
		if mod == nil {
			if hop > 0 {
				return 0, errors.Wrapf(ErrSymbolNotFound, "%s forwards to %s, module not loaded", ref, cur)
			}
			return 0, errors.Wrapf(ErrSymbolNotFound, "module %q not loaded", cur.Module)
		}
		exp, ok, err := process.LookupExport(r.Proc, mod, cur.Name, cur.Ordinal)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errors.Wrapf(ErrSymbolNotFound, "%s", cur)
		}
		if exp.Forward == "" {
			return exp.Addr, nil
		}
		next := Ref{}
		if next.Module, next.Name, next.Ordinal, err = process.ParseForward(exp.Forward); err != nil {
			return 0, errors.Wrapf(ErrSymbolNotFound, "%s: %v", cur, err)
		}
		r.debugf("[hook] %s forwards to %s\n", cur, exp.Forward)
		cur = next
	}
	return 0, errors.Wrapf(ErrSymbolNotFound, "%s: forwarding loop", ref)
}

func (r *ExportResolver) debugf(format string, args ...interface{}) {
	if r.Config != nil {
		r.Config.Debugf(format, args...)
	}
}

// InstallRef resolves ref and installs a hook on it. The trampoline is
// stored in out when out is non-nil.
func (e *Engine) InstallRef(ref Ref, detour models.Addr, out *models.Addr) error {
	var target models.Addr
	switch {
	case ref.Addr != 0:
		target = ref.Addr
	case e.Resolver == nil:
		return errors.Wrapf(ErrSymbolNotFound, "%s: no resolver", ref)
	default:
		var err error
		if target, err = e.Resolver.Resolve(ref); err != nil {
			return err
		}
	}
	tramp, err := e.Install(target, detour)
	if err != nil {
		return errors.WithMessagef(err, "%s", ref)
	}
	if out != nil {
		*out = tramp
	}
	return nil
}
