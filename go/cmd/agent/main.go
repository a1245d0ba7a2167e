//go:build windows

// Command agent builds the injectable library:
//
//	go build -buildmode=c-shared -o hookcorn.dll ./go/cmd/agent
//
// The host (or a loader) calls HookcornAttach once after loading it.
package main

import "C"

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/lunixbochs/hookcorn/go/agent"
	"github.com/lunixbochs/hookcorn/go/models"
)

var (
	mu      sync.Mutex
	current *agent.Agent
)

//export HookcornAttach
func HookcornAttach() C.int {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return 0
	}
	a, err := agent.Attach(&models.Config{Output: os.Stderr})
	if err != nil {
		return 1
	}
	a.Watch(context.Background(), time.Second)
	current = a
	return 0
}

//export HookcornDetach
func HookcornDetach() C.int {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return 0
	}
	err := current.Close()
	current = nil
	if err != nil {
		return 1
	}
	return 0
}

func main() {}
