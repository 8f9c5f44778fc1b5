package swapengine

import (
	"context"
	"sync/atomic"
)

// swapScheduler turns a batch of registry entries into a single swap
// behaviour and hands it to the host Scheduler (spec.md §4.5). It also
// owns the swaps-in-flight throttle (spec.md §4.5, "Throttling").
type swapScheduler struct {
	sched       Scheduler
	codec       *Codec
	logger      *Logger
	inFlight    atomic.Int64
	maxInFlight int64
}

func newSwapScheduler(sched Scheduler, codec *Codec, logger *Logger, maxInFlight int64) *swapScheduler {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &swapScheduler{sched: sched, codec: codec, logger: logger, maxInFlight: maxInFlight}
}

// InFlight reports the current number of outstanding swap behaviours.
func (s *swapScheduler) InFlight() int64 { return s.inFlight.Load() }

func (s *swapScheduler) tryReserve() bool {
	for {
		cur := s.inFlight.Load()
		if cur >= s.maxInFlight {
			return false
		}
		if s.inFlight.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (s *swapScheduler) release() { s.inFlight.Add(-1) }

type swapSurvivor struct {
	e      entry
	handle CownHandle
}

// ScheduleBatch attempts to swap out candidates as a single behaviour
// (spec.md §4.5, steps 1-4). It returns immediately: dead reports cowns
// whose strong-upgrade failed (the caller must unregister them); ok is
// false if the in-flight cap was already saturated, in which case no
// candidate was touched and the caller should retry the pass later.
func (s *swapScheduler) ScheduleBatch(candidates []entry) (scheduled []uint64, dead []uint64, ok bool) {
	if len(candidates) == 0 {
		return nil, nil, true
	}
	if !s.tryReserve() {
		return nil, nil, false
	}

	var survivors []swapSurvivor
	for _, e := range candidates {
		h, upOk := e.handle()
		if !upOk {
			dead = append(dead, e.id)
			continue
		}
		if !h.BeginSwap() {
			// Already transitioning (another pass raced us); leave it
			// resident, try again next tick.
			h.Release()
			continue
		}
		survivors = append(survivors, swapSurvivor{e: e, handle: h})
	}

	if len(survivors) == 0 {
		s.release()
		return nil, dead, true
	}

	handles := make([]CownHandle, len(survivors))
	scheduled = make([]uint64, len(survivors))
	for i, sv := range survivors {
		handles[i] = sv.handle
		scheduled[i] = sv.e.id
	}

	body := func(ctx context.Context) error {
		defer s.release()
		var firstErr error
		for _, sv := range survivors {
			if _, err := sv.e.swapOut(s.codec); err != nil {
				if s.logger != nil {
					s.logger.swapFailed(sv.e.id, err)
				}
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if s.logger != nil {
				s.logger.swapped(sv.e.id)
			}
		}
		for _, sv := range survivors {
			sv.handle.Release()
		}
		return firstErr
	}

	s.sched.Schedule(BehaviourFunc(body), handles, TransferOwned)
	return scheduled, dead, true
}
