package scan

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/mgutz/ansi"
	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"

	"github.com/lunixbochs/hookcorn/go/cmd"
	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
	pattern "github.com/lunixbochs/hookcorn/go/scan"
)

var hiAddr = ansi.ColorFunc("cyan+b")

// parseSig accepts "558bec", "55 8b ec" or "\x55\x8b\xec" alongside an x/? mask.
func parseSig(sig, mask string) (pattern.Signature, error) {
	clean := strings.NewReplacer(`\x`, "", " ", "").Replace(sig)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return pattern.Signature{}, errors.Wrap(err, "signature must be hex")
	}
	return pattern.Compile(string(raw), mask)
}

// disasm renders up to count instructions at addr in Intel syntax.
func disasm(code []byte, addr models.Addr, bits uint, count int) []string {
	var out []string
	for off := 0; off < len(code) && len(out) < count; {
		inst, err := x86asm.Decode(code[off:], int(bits))
		if err != nil {
			out = append(out, fmt.Sprintf("%s: (bad)", addr.Offset(uint64(off)).Format(bits)))
			break
		}
		pc := uint64(addr) + uint64(off)
		text := x86asm.IntelSyntax(inst, pc, nil)
		out = append(out, fmt.Sprintf("%s: %-20s %s", addr.Offset(uint64(off)).Format(bits), hex.EncodeToString(code[off:off+inst.Len]), strings.ToLower(text)))
		off += inst.Len
	}
	return out
}

func Main(args []string) {
	c := cmd.NewHookcornCmd("<signature> <mask> | -ida <pattern>")
	fs := c.Flags
	module := fs.String("module", "", "module to scan (default: main executable)")
	all := fs.Bool("all", false, "report every match instead of the first")
	dump := fs.Int("dump", 0, "hexdump and disassemble this many bytes at each match")
	ida := fs.String("ida", "", "signature in \"E8 ?? ?? 83\" form")
	rel := fs.Int("rel", 0, "follow a rel32 instruction of this length at each match")
	pos := c.Parse(args)

	var sig pattern.Signature
	var err error
	switch {
	case *ida != "":
		sig, err = pattern.ParseIDA(*ida)
	case len(pos) == 2:
		sig, err = parseSig(pos[0], pos[1])
	default:
		fs.Usage()
		os.Exit(1)
	}
	if err != nil {
		c.Fatal(err)
	}
	p, err := c.Open()
	if err != nil {
		c.Fatal(err)
	}
	mods, err := p.Modules()
	if err != nil {
		c.Fatal(err)
	}
	mod := models.FindModuleByName(mods, *module)
	if mod == nil {
		c.Fatal(errors.Errorf("module %q not loaded", *module))
	}
	c.Config.Debugf("scanning %s for %s\n", mod, sig)

	var hits []models.Addr
	if *all {
		hits = pattern.FindAll(p, *mod, sig)
	} else if addr, ok := pattern.FindPattern(p, *mod, sig); ok {
		hits = []models.Addr{addr}
	}
	if len(hits) == 0 {
		fmt.Fprintf(os.Stderr, "%s: not found in %s\n", sig, mod.Name)
		os.Exit(1)
	}
	bits := c.Config.Bits
	for _, addr := range hits {
		line := models.Resolve(mods, addr).Format(bits)
		if c.Config.Color {
			line = hiAddr(line)
		}
		if *rel > 0 {
			if dst, err := pattern.ResolveRelative(p, addr, *rel); err == nil {
				line += " -> " + models.Resolve(mods, dst).Format(bits)
			}
		}
		fmt.Fprintln(c.Out, line)
		if *dump > 0 {
			code, err := process.MemRead(p, addr, *dump)
			if err != nil {
				c.PrintError(err)
				continue
			}
			for _, l := range models.HexDump(addr, code, bits) {
				fmt.Fprintf(c.Out, "  %s\n", l)
			}
			for _, l := range disasm(code, addr, bits, 16) {
				fmt.Fprintf(c.Out, "  %s\n", l)
			}
		}
	}
	if len(hits) > 1 {
		fmt.Fprintf(os.Stderr, "warning: signature is ambiguous (%d matches)\n", len(hits))
	}
}

func init() { cmd.Register("scan", "find a byte signature in a process or image", Main) }
