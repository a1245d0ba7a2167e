package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/hook"
	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// HookcornCmd carries the flags and setup shared by every subcommand.
type HookcornCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet
	Out    io.Writer

	// ArgUsage describes positional arguments in the usage line.
	ArgUsage string
	// NoTarget skips the -pid / -file flags.
	NoTarget bool

	pid        *int
	file       *string
	configPath *string
	verbose    *bool
	color      *bool
}

func NewHookcornCmd(argUsage string) *HookcornCmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	c := &HookcornCmd{Flags: fs, ArgUsage: argUsage}
	c.configPath = fs.String("config", "", "read settings from this yaml file")
	c.verbose = fs.Bool("v", false, "verbose output")
	c.color = fs.Bool("color", isatty.IsTerminal(os.Stdout.Fd()), "highlight output")
	return c
}

// Parse reads argv[1:] and builds Config from the user config file, -config,
// then flags, in increasing priority. It returns the positional arguments.
func (c *HookcornCmd) Parse(argv []string) []string {
	fs := c.Flags
	if !c.NoTarget {
		c.pid = fs.Int("pid", 0, "attach to a running process")
		c.file = fs.String("file", "", "map a PE or ELF file instead of attaching")
	}
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] %s\n\nOptions:\n", argv[0], c.ArgUsage)
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(os.Stderr, flags)
	}
	fs.Parse(argv[1:])

	cfg := &models.Config{Color: *c.color}
	if fc, err := models.LoadUser(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	} else {
		fc.Apply(cfg)
	}
	if *c.configPath != "" {
		fc, err := models.LoadFile(*c.configPath)
		if err != nil {
			c.Fatal(err)
		}
		fc.Apply(cfg)
	}
	// explicit flags win over config files
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Verbose = *c.verbose
		case "color":
			cfg.Color = *c.color
		}
	})
	cfg.Output = os.Stderr
	c.Config = cfg.Init()
	c.Out = colorable.NewColorableStdout()
	return fs.Args()
}

// Open returns the process named by -pid or -file.
func (c *HookcornCmd) Open() (process.Process, error) {
	switch {
	case c.file != nil && *c.file != "":
		s, err := process.LoadImage(*c.file)
		if err != nil {
			return nil, err
		}
		c.Config.Bits = s.Bits()
		return s, nil
	case c.pid != nil && *c.pid != 0:
		p, err := process.Open(*c.pid)
		if err != nil {
			return nil, err
		}
		c.Config.Bits = p.Bits()
		return p, nil
	}
	return nil, errors.New("one of -pid or -file is required")
}

func ParseAddr(s string) (models.Addr, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "bad address %q", s)
	}
	return models.Addr(n), nil
}

// ParseRef reads "module!name" or "module!#ordinal".
func ParseRef(s string) (hook.Ref, error) {
	parts := strings.SplitN(s, "!", 2)
	if len(parts) != 2 || parts[1] == "" {
		return hook.Ref{}, errors.Errorf("bad symbol %q, want module!name", s)
	}
	ref := hook.Ref{Module: parts[0]}
	if strings.HasPrefix(parts[1], "#") {
		n, err := strconv.ParseUint(parts[1][1:], 0, 32)
		if err != nil {
			return hook.Ref{}, errors.Wrapf(err, "bad ordinal in %q", s)
		}
		ref.Ordinal = uint32(n)
	} else {
		ref.Name = parts[1]
	}
	return ref, nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints err, and a stacktrace if one was recorded.
func (c *HookcornCmd) PrintError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	st, ok := err.(stackTracer)
	if !ok || c.Config == nil || !c.Config.Verbose {
		return
	}
	var frames [][]string
	for _, f := range st.StackTrace() {
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)
		frames = append(frames, []string{fileline, method})
		if method == "main" {
			break
		}
	}
	width := 0
	for _, f := range frames {
		if len(f[0]) > width {
			width = len(f[0])
		}
	}
	for _, f := range frames {
		fmt.Fprintf(os.Stderr, "%-*s | %s()\n", width, f[0], f[1])
	}
}

func (c *HookcornCmd) Fatal(err error) {
	c.PrintError(err)
	os.Exit(1)
}
