package process

import "github.com/lunixbochs/hookcorn/go/models"

// SuspendOthers suspends every thread except the caller's. Threads that
// cannot be suspended are skipped; the count of each is returned. Threads
// that started inside one of the exempt modules keep running and are not
// counted; this needs a process implementing ThreadStarter.
func SuspendOthers(p Process, exempt ...models.Module) (suspended, skipped int) {
	tids, err := p.Threads()
	if err != nil {
		return 0, 0
	}
	starter, _ := p.(ThreadStarter)
	if len(exempt) == 0 {
		starter = nil
	}
	self := p.CurrentThread()
	for _, tid := range tids {
		if tid == self {
			continue
		}
		if starter != nil {
			if start, err := starter.ThreadStart(tid); err == nil && models.FindModule(exempt, start) != nil {
				continue
			}
		}
		if err := p.SuspendThread(tid); err != nil {
			skipped++
			continue
		}
		suspended++
	}
	return
}
