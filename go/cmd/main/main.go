package main

import (
	"github.com/lunixbochs/hookcorn/go/cmd"

	_ "github.com/lunixbochs/hookcorn/go/cmd/modules"
	_ "github.com/lunixbochs/hookcorn/go/cmd/report"
	_ "github.com/lunixbochs/hookcorn/go/cmd/resolve"
	_ "github.com/lunixbochs/hookcorn/go/cmd/scan"
)

func main() { cmd.Main() }
