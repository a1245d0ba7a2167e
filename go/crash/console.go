package crash

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// termPlatform drives an already open console pair.
type termPlatform struct {
	in  *os.File
	out *os.File
}

func (t *termPlatform) Console() (io.Writer, error) {
	return colorable.NewColorable(t.out), nil
}

func (t *termPlatform) Terminal() bool {
	fd := t.out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WaitKey reads a single key, switching the input to raw mode when it is a
// terminal so no enter is needed.
func (t *termPlatform) WaitKey() {
	fd := int(t.in.Fd())
	if term.IsTerminal(fd) {
		if old, err := term.MakeRaw(fd); err == nil {
			defer term.Restore(fd, old)
		}
	}
	var b [1]byte
	t.in.Read(b[:])
}

func (t *termPlatform) Exit(code int) {
	os.Exit(code)
}

func (t *termPlatform) Park() {
	select {}
}
