package models

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	DefaultStackWords = 200
	DefaultSupportURL = "https://github.com/lunixbochs/hookcorn/issues"
)

type Config struct {
	// pointer width of the target, 32 or 64
	Bits uint
	// words read from the faulting stack pointer by the crash handler
	StackWords int
	SupportURL string

	// IDA-style signature of a rel32 call to the host's own fault routine,
	// searched in the main module when arming. Empty disables that hook.
	HostHandler string

	Color   bool
	LogFile string
	Verbose bool

	Output io.Writer
}

// Init fills unset fields with defaults and returns c for chaining.
func (c *Config) Init() *Config {
	if c.Bits == 0 {
		c.Bits = strconv.IntSize
	}
	if c.StackWords <= 0 {
		c.StackWords = DefaultStackWords
	}
	if c.SupportURL == "" {
		c.SupportURL = DefaultSupportURL
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	return c
}

func (c *Config) Printf(format string, args ...interface{}) {
	if c.Output == nil {
		return
	}
	fmt.Fprintf(c.Output, format, args...)
}

// Debugf only prints in verbose mode.
func (c *Config) Debugf(format string, args ...interface{}) {
	if c.Verbose {
		c.Printf(format, args...)
	}
}
