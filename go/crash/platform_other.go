//go:build !windows

package crash

import "os"

// NewPlatform reports on stderr and reads the exit key from stdin.
func NewPlatform() Platform {
	return &termPlatform{in: os.Stdin, out: os.Stderr}
}
