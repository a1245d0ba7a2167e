package resolve

import (
	"fmt"
	"os"

	"github.com/lunixbochs/hookcorn/go/cmd"
	"github.com/lunixbochs/hookcorn/go/hook"
	"github.com/lunixbochs/hookcorn/go/models"
)

func Main(args []string) {
	c := cmd.NewHookcornCmd("<addr | module!export>...")
	pos := c.Parse(args)
	if len(pos) == 0 {
		c.Flags.Usage()
		os.Exit(1)
	}
	p, err := c.Open()
	if err != nil {
		c.Fatal(err)
	}
	mods, err := p.Modules()
	if err != nil {
		c.Fatal(err)
	}
	resolver := &hook.ExportResolver{Proc: p}
	for _, arg := range pos {
		addr, err := lookup(resolver, arg)
		if err != nil {
			c.PrintError(err)
			continue
		}
		fmt.Fprintln(c.Out, models.Resolve(mods, addr).Format(c.Config.Bits))
	}
}

func lookup(r *hook.ExportResolver, arg string) (models.Addr, error) {
	if addr, err := cmd.ParseAddr(arg); err == nil {
		return addr, nil
	}
	ref, err := cmd.ParseRef(arg)
	if err != nil {
		return 0, err
	}
	return r.Resolve(ref)
}

func init() { cmd.Register("resolve", "resolve addresses and exports to module offsets", Main) }
