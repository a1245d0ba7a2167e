package crash

import (
	"bytes"
	"io"
	"os"

	"github.com/lunixbochs/vtclean"
)

// cleanWriter strips terminal escape sequences line by line before passing
// text on, so log files stay readable.
type cleanWriter struct {
	w   io.Writer
	buf []byte
}

func (c *cleanWriter) Write(p []byte) (int, error) {
	c.buf = append(c.buf, p...)
	for {
		i := bytes.IndexByte(c.buf, '\n')
		if i < 0 {
			break
		}
		line := vtclean.Clean(string(c.buf[:i]), false)
		c.buf = c.buf[i+1:]
		if _, err := io.WriteString(c.w, line+"\n"); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

// Flush writes any partial last line.
func (c *cleanWriter) Flush() error {
	if len(c.buf) == 0 {
		return nil
	}
	line := vtclean.Clean(string(c.buf), false)
	c.buf = nil
	_, err := io.WriteString(c.w, line)
	return err
}

// openLog appends to path, returning a writer that strips color codes and a
// func that flushes and closes it.
func openLog(path string) (io.Writer, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	cw := &cleanWriter{w: f}
	return cw, func() {
		cw.Flush()
		io.WriteString(f, "\n")
		f.Close()
	}, nil
}
