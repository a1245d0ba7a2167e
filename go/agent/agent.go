package agent

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lunixbochs/hookcorn/go/crash"
	"github.com/lunixbochs/hookcorn/go/hook"
	"github.com/lunixbochs/hookcorn/go/models"
	"github.com/lunixbochs/hookcorn/go/process"
)

// Agent owns everything injected into one process: the hook engine and the
// crash interceptor. Close undoes every hook.
type Agent struct {
	Config      *models.Config
	Proc        process.Target
	Engine      *hook.Engine
	Interceptor *crash.Interceptor
	Arming      *crash.Arming

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(p process.Target, platform crash.Platform, cfg *models.Config) *Agent {
	if cfg == nil {
		cfg = &models.Config{}
	}
	cfg.Init()
	return &Agent{
		Config:      cfg,
		Proc:        p,
		Engine:      hook.New(p, cfg),
		Interceptor: crash.NewInterceptor(p, platform, cfg),
	}
}

// Attach builds an agent for the current process using the user config and
// arms the crash interceptor. Arming failures are logged, not returned, so
// hooks still work where the interceptor cannot be armed.
func Attach(cfg *models.Config) (*Agent, error) {
	if cfg == nil {
		cfg = &models.Config{}
	}
	if fc, err := models.LoadUser(); err != nil {
		cfg.Printf("[agent] %v\n", err)
	} else {
		fc.Apply(cfg)
	}
	self, err := process.Self()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open current process")
	}
	a := New(self, crash.NewPlatform(), cfg)
	if err := a.Arm(); err != nil {
		cfg.Printf("[agent] crash interceptor not armed: %v\n", err)
	}
	return a, nil
}

func (a *Agent) Arm() error {
	arming, err := crash.Arm(a.Interceptor, a.Engine)
	if arming != nil {
		a.Arming = arming
	}
	return err
}

// Watch re-applies overwritten hooks every interval until Close or ctx ends.
func (a *Agent) Watch(ctx context.Context, interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := a.Engine.Repair(); err != nil {
					a.Config.Printf("[agent] repair: %v\n", err)
				} else if n > 0 {
					a.Config.Debugf("[agent] repaired %d hooks\n", n)
				}
			}
		}
	}(a.done)
}

// Close stops watching and removes every hook.
func (a *Agent) Close() error {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		<-a.done
		a.cancel = nil
	}
	a.mu.Unlock()
	return a.Engine.Close()
}
