package process

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/Binject/debug/elf"
	"github.com/Binject/debug/pe"
	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/models"
)

const (
	scnMemExecute = 0x20000000
	scnMemRead    = 0x40000000
	scnMemWrite   = 0x80000000
)

// default load bases for position independent ELF images
const (
	pieBase32 = 0x56555000
	pieBase64 = 0x555555554000
)

// LoadImage maps a PE or ELF file into a new Sim the way the system loader
// would lay it out, without relocations or imports.
func LoadImage(path string) (*Sim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}
	name := filepath.Base(path)
	switch {
	case bytes.HasPrefix(data, []byte("MZ")):
		return loadPE(name, path, data)
	case bytes.HasPrefix(data, []byte(elf.ELFMAG)):
		return loadELF(name, path, data)
	}
	return nil, errors.Errorf("%s: unrecognized image format", path)
}

func loadPE(name, path string, data []byte) (*Sim, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PE")
	}
	defer f.Close()
	var bits uint
	var base models.Addr
	var size, hdrSize uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		bits, base, size, hdrSize = 32, models.Addr(oh.ImageBase), uint64(oh.SizeOfImage), uint64(oh.SizeOfHeaders)
	case *pe.OptionalHeader64:
		bits, base, size, hdrSize = 64, models.Addr(oh.ImageBase), uint64(oh.SizeOfImage), uint64(oh.SizeOfHeaders)
	default:
		return nil, errors.New("PE has no optional header")
	}
	if hdrSize > uint64(len(data)) {
		hdrSize = uint64(len(data))
	}
	s := NewSim(bits)
	img := make([]byte, size)
	copy(img, data[:hdrSize])
	mod := s.AddModule(name, base, img, PROT_READ)
	mod.Path = path
	for _, sec := range f.Sections {
		raw, err := sec.Data()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read section %s", sec.Name)
		}
		if len(raw) > int(sec.VirtualSize) && sec.VirtualSize > 0 {
			raw = raw[:sec.VirtualSize]
		}
		addr := base.Offset(uint64(sec.VirtualAddress))
		if err := s.Poke(addr, raw); err != nil {
			return nil, errors.Wrapf(err, "section %s outside image", sec.Name)
		}
		vsize := uint64(sec.VirtualSize)
		if vsize == 0 {
			vsize = uint64(len(raw))
		}
		prot := PROT_NONE
		if sec.Characteristics&scnMemRead != 0 {
			prot |= PROT_READ
		}
		if sec.Characteristics&scnMemWrite != 0 {
			prot |= PROT_WRITE
		}
		if sec.Characteristics&scnMemExecute != 0 {
			prot |= PROT_EXEC
		}
		s.Prot(addr, vsize, prot)
	}
	return s, nil
}

func loadELF(name, path string, data []byte) (*Sim, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ELF")
	}
	defer f.Close()
	bits := uint(32)
	if f.Class == elf.ELFCLASS64 {
		bits = 64
	}
	lo, hi, ok := loadRange(f)
	if !ok {
		return nil, errors.New("ELF has no loadable segments")
	}
	var slide models.Addr
	if f.Type == elf.ET_DYN && lo == 0 {
		slide = pieBase32
		if bits == 64 {
			slide = pieBase64
		}
	}
	s := NewSim(bits)
	s.AddModule(name, slide.Offset(lo), make([]byte, hi-lo), PROT_READ)
	s.mods[0].Path = path
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		raw := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(raw, 0); err != nil {
			return nil, errors.Wrap(err, "failed to read segment")
		}
		addr := slide.Offset(prog.Vaddr)
		if err := s.Poke(addr, raw); err != nil {
			return nil, errors.Wrap(err, "segment outside image")
		}
		s.Prot(addr, prog.Memsz, elfProt(prog.Flags))
	}
	return s, nil
}

// loadRange returns the page aligned virtual extent of the PT_LOAD segments.
func loadRange(f *elf.File) (lo, hi uint64, ok bool) {
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		start := prog.Vaddr &^ (PageSize - 1)
		end := prog.Vaddr + prog.Memsz
		if !ok || start < lo {
			lo = start
		}
		if !ok || end > hi {
			hi = end
		}
		ok = true
	}
	return
}

func elfProt(flags elf.ProgFlag) int {
	prot := PROT_NONE
	if flags&elf.PF_R != 0 {
		prot |= PROT_READ
	}
	if flags&elf.PF_W != 0 {
		prot |= PROT_WRITE
	}
	if flags&elf.PF_X != 0 {
		prot |= PROT_EXEC
	}
	return prot
}
