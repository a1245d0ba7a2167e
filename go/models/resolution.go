package models

import "fmt"

// Resolution maps an address to the module containing it. Module is nil when
// no loaded module contains the address.
type Resolution struct {
	Addr   Addr
	Module *Module
	Offset uint64
}

func Resolve(mods []Module, addr Addr) Resolution {
	r := Resolution{Addr: addr}
	if m := FindModule(mods, addr); m != nil {
		r.Module = m
		r.Offset = addr.Sub(m.Base)
	}
	return r
}

func (r Resolution) Known() bool {
	return r.Module != nil
}

func (r Resolution) Format(bits uint) string {
	if r.Module == nil {
		return r.Addr.Format(bits)
	}
	return fmt.Sprintf("%s (%s+0x%X)", r.Addr.Format(bits), r.Module.Name, r.Offset)
}
