package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/cursorflow/internal/supervisor"
)

// Shutdown signals every currently running lane to terminate, waits up
// to grace for each to exit, then escalates to a kill signal for
// whatever is still alive — the coordinator's term-then-kill policy
// (§5) applied across every running lane at once rather than one at a
// time, since an external interrupt wants the whole run down promptly.
func (s *Scheduler) Shutdown(grace time.Duration) {
	s.mu.Lock()
	handles := make([]*supervisor.Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()
	if len(handles) == 0 {
		return
	}

	for _, h := range handles {
		_ = s.spawner.Signal(h, supervisor.SignalTerm)
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *supervisor.Handle) {
			defer wg.Done()
			s.spawner.Wait(waitCtx, h)
		}(h)
	}
	wg.Wait()

	for _, h := range handles {
		_ = s.spawner.Signal(h, supervisor.SignalKill)
	}
}
