package process

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Binject/debug/elf"
	"github.com/Binject/debug/pe"
	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
)

// Export is one exported entry point of a module. A forwarded export has no
// address of its own; Forward names the real one as "MODULE.Name" or
// "MODULE.#Ordinal".
type Export struct {
	Name    string
	Ordinal uint32
	Addr    models.Addr
	Forward string
}

// Exports lists the entry points a module exports. PE modules are parsed from
// their mapped image, ELF modules from their file on disk since section
// headers are not loaded.
func Exports(mem Memory, mod *models.Module) ([]Export, error) {
	var magic [4]byte
	if err := mem.MemReadInto(magic[:], mod.Base); err != nil {
		return nil, errors.Wrapf(err, "%s: failed to read header", mod.Name)
	}
	switch {
	case bytes.HasPrefix(magic[:], []byte("MZ")):
		return peExports(mem, mod)
	case string(magic[:]) == elf.ELFMAG:
		return elfExports(mod)
	}
	return nil, errors.Errorf("%s: unrecognized image format", mod.Name)
}

func peExports(mem Memory, mod *models.Module) ([]Export, error) {
	f, err := pe.NewFileFromMemory(bytes.NewReader(ReadImage(mem, mod)))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to parse PE", mod.Name)
	}
	defer f.Close()
	list, err := f.Exports()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to read exports", mod.Name)
	}
	dir := exportDirectory(f)
	out := make([]Export, 0, len(list))
	for _, e := range list {
		exp := Export{Name: e.Name, Ordinal: e.Ordinal}
		// only an RVA inside the export directory is a forwarder string
		if e.Forward != "" && dir.VirtualAddress <= e.VirtualAddress && e.VirtualAddress < dir.VirtualAddress+dir.Size {
			exp.Forward = e.Forward
		} else {
			exp.Addr = mod.Base.Offset(uint64(e.VirtualAddress))
		}
		out = append(out, exp)
	}
	return out, nil
}

func exportDirectory(f *pe.File) pe.DataDirectory {
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			return oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
			return oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
		}
	}
	return pe.DataDirectory{}
}

// ParseForward splits a forwarder string into the module it names and
// either a symbol name or an ordinal. The module gets a ".dll" suffix when it
// has none.
func ParseForward(fwd string) (module, name string, ordinal uint32, err error) {
	i := strings.LastIndex(fwd, ".")
	if i <= 0 || i == len(fwd)-1 {
		return "", "", 0, errors.Errorf("bad forwarder %q", fwd)
	}
	module, name = fwd[:i], fwd[i+1:]
	if filepath.Ext(module) == "" {
		module += ".dll"
	}
	if strings.HasPrefix(name, "#") {
		n, perr := strconv.ParseUint(name[1:], 10, 16)
		if perr != nil {
			return "", "", 0, errors.Wrapf(perr, "bad ordinal in forwarder %q", fwd)
		}
		return module, "", uint32(n), nil
	}
	return module, name, 0, nil
}

func elfExports(mod *models.Module) ([]Export, error) {
	if mod.Path == "" {
		return nil, errors.Errorf("%s: no backing file", mod.Name)
	}
	f, err := elf.Open(mod.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to open", mod.Name)
	}
	defer f.Close()
	syms, err := f.DynamicSymbols()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: failed to read dynamic symbols", mod.Name)
	}
	lo, _, _ := loadRange(f)
	slide := mod.Base - models.Addr(lo)
	var out []Export
	for _, sym := range syms {
		if sym.Value == 0 || elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		out = append(out, Export{Name: sym.Name, Addr: slide.Offset(sym.Value)})
	}
	return out, nil
}

// LookupExport finds an export by name, or by ordinal when name is empty.
// ELF versioned names match on their base name. Forwarded exports are
// returned as is; following them needs the other modules.
func LookupExport(mem Memory, mod *models.Module, name string, ordinal uint32) (Export, bool, error) {
	list, err := Exports(mem, mod)
	if err != nil {
		return Export{}, false, err
	}
	for _, e := range list {
		if name != "" {
			base := e.Name
			if i := strings.Index(base, "@"); i > 0 {
				base = base[:i]
			}
			if e.Name == name || base == name {
				return e, true, nil
			}
		} else if e.Ordinal == ordinal {
			return e, true, nil
		}
	}
	return Export{}, false, nil
}
