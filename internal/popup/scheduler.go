// internal/popup/scheduler.go
package popup

import (
	"sync"
	"time"
)

// purpose names one logical reason for a timer. The scheduler guarantees
// at most one in-flight timer per purpose.
type purpose string

const (
	purposeSettle    purpose = "settle"
	purposeHideGrace purpose = "hide-grace"
	purposeNotice    purpose = "notice"
)

// scheduler owns the coordinator's timers. Scheduling a purpose cancels
// any previous timer for that purpose, so a stale timer can never fire
// alongside its replacement. Callbacks still re-validate their
// preconditions at fire time; the scheduler only narrows the race window,
// it does not eliminate it.
type scheduler struct {
	mu     sync.Mutex
	seqs   map[purpose]int
	timers map[purpose]*time.Timer
}

func newScheduler() *scheduler {
	return &scheduler{
		seqs:   make(map[purpose]int),
		timers: make(map[purpose]*time.Timer),
	}
}

// Schedule arranges fn to run after d, replacing any pending timer for the
// same purpose.
func (s *scheduler) Schedule(p purpose, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[p]; ok {
		t.Stop()
	}
	s.seqs[p]++
	seq := s.seqs[p]

	s.timers[p] = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.seqs[p] != seq {
			// Replaced or cancelled after firing was already queued.
			s.mu.Unlock()
			return
		}
		delete(s.timers, p)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops any pending timer for the purpose.
func (s *scheduler) Cancel(p purpose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[p]; ok {
		t.Stop()
		delete(s.timers, p)
	}
	s.seqs[p]++
}

// CancelAll stops every pending timer.
func (s *scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p, t := range s.timers {
		t.Stop()
		delete(s.timers, p)
		s.seqs[p]++
	}
}
