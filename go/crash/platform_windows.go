//go:build windows

package crash

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var procAllocConsole = windows.NewLazySystemDLL("kernel32.dll").NewProc("AllocConsole")

// consolePlatform allocates a console on first use, since the host is
// usually a GUI process without one.
type consolePlatform struct {
	termPlatform
	once sync.Once
	err  error
}

func NewPlatform() Platform {
	return &consolePlatform{}
}

func (c *consolePlatform) open() {
	// fails harmlessly when a console already exists
	procAllocConsole.Call()
	out, err := os.OpenFile("CONOUT$", os.O_RDWR, 0)
	if err != nil {
		c.err = errors.Wrap(err, "open CONOUT$")
		return
	}
	in, err := os.OpenFile("CONIN$", os.O_RDWR, 0)
	if err != nil {
		out.Close()
		c.err = errors.Wrap(err, "open CONIN$")
		return
	}
	c.in, c.out = in, out
}

func (c *consolePlatform) Console() (io.Writer, error) {
	c.once.Do(c.open)
	if c.err != nil {
		return nil, c.err
	}
	return c.termPlatform.Console()
}

func (c *consolePlatform) Terminal() bool {
	return c.out != nil && c.termPlatform.Terminal()
}

func (c *consolePlatform) WaitKey() {
	c.once.Do(c.open)
	if c.in != nil {
		c.termPlatform.WaitKey()
	}
}
