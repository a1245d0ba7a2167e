package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Module is one loaded executable image.
type Module struct {
	Name string
	Path string
	Base Addr
	Size uint64
}

func (m *Module) End() Addr {
	return m.Base.Offset(m.Size)
}

func (m *Module) Contains(addr Addr) bool {
	return m.Base <= addr && addr < m.End()
}

func (m *Module) String() string {
	desc := fmt.Sprintf("0x%x-0x%x %s", uint64(m.Base), uint64(m.End()), m.Name)
	if m.Path != "" && filepath.Base(m.Path) != m.Path {
		desc += fmt.Sprintf(" [%s]", m.Path)
	}
	return desc
}

type ModuleAddrSort []Module

func (m ModuleAddrSort) Len() int           { return len(m) }
func (m ModuleAddrSort) Less(i, j int) bool { return m[i].Base < m[j].Base }
func (m ModuleAddrSort) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }

// FindModule returns the module whose range contains addr, or nil.
func FindModule(mods []Module, addr Addr) *Module {
	for i := range mods {
		if mods[i].Contains(addr) {
			m := mods[i]
			return &m
		}
	}
	return nil
}

// FindModuleByName matches case-insensitively on the image name. An empty
// name selects the first module, which every backend reports as the main
// executable.
func FindModuleByName(mods []Module, name string) *Module {
	if len(mods) == 0 {
		return nil
	}
	if name == "" {
		m := mods[0]
		return &m
	}
	for i := range mods {
		if strings.EqualFold(mods[i].Name, name) {
			m := mods[i]
			return &m
		}
	}
	return nil
}
