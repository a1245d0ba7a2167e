package modules

import (
	"fmt"
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"

	"github.com/lunixbochs/hookcorn/go/cmd"
	"github.com/lunixbochs/hookcorn/go/models"
)

func Main(args []string) {
	c := cmd.NewHookcornCmd("")
	byAddr := c.Flags.Bool("addr", false, "sort by base address instead of name")
	c.Parse(args)
	p, err := c.Open()
	if err != nil {
		c.Fatal(err)
	}
	mods, err := p.Modules()
	if err != nil {
		c.Fatal(err)
	}
	if *byAddr {
		sort.Sort(models.ModuleAddrSort(mods))
	} else {
		sort.SliceStable(mods, func(i, j int) bool {
			return sortorder.NaturalLess(mods[i].Name, mods[j].Name)
		})
	}
	bits := c.Config.Bits
	for _, m := range mods {
		fmt.Fprintf(c.Out, "%s-%s %s\n", m.Base.Format(bits), m.End().Format(bits), m.Name)
		c.Config.Debugf("    %s\n", m.Path)
	}
}

func init() { cmd.Register("modules", "list loaded modules", Main) }
