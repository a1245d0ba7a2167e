package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
)

var chName = ansi.ColorCode("default+b:default")

// RegBlock renders registers four to a row, each row prefixed with a tab:
//
//	EAX=0x00000001 ECX=0x00000002 EDX=0x00000003 EBX=0x00000004
func RegBlock(regs []RegVal, bits uint, color bool) string {
	width := 0
	for _, r := range regs {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}
	hexFmt := fmt.Sprintf("0x%%0%dX", bits/4)
	var out []string
	var row []string
	flush := func() {
		if len(row) > 0 {
			out = append(out, "\t"+strings.Join(row, " "))
			row = row[:0]
		}
	}
	for _, r := range regs {
		name := r.Name
		if pad := width - len(name); pad > 0 {
			name += strings.Repeat(" ", pad)
		}
		if color {
			name = chName + name + ansi.Reset
		}
		row = append(row, name+"="+fmt.Sprintf(hexFmt, r.Val))
		if len(row) == 4 {
			flush()
		}
	}
	flush()
	return strings.Join(out, "\n")
}
