package models

import "log"

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" or "Must" forms when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)
