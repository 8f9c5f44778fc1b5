package swapengine

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMultiplier is a suggested value for Create's multiplier
// argument (the target-usage aggressiveness). verona-rt's default build used 60
// (shed down to 60% of the limit on every pressure event); kept as the
// default here rather than re-derived, since the spec leaves the exact
// value to the implementer (spec.md §6, "multiplier ∈ [0,100]").
const DefaultMultiplier = 60

// DefaultWarmup is the delay before the monitor's first tick, letting the
// process reach a representative steady-state RSS (spec.md §4.6).
const DefaultWarmup = 5 * time.Second

// DefaultTickPeriod is the monitor's sleep between ticks outside manual
// mode.
const DefaultTickPeriod = 100 * time.Millisecond

// DefaultMaxInFlight is the swaps-in-flight cap (spec.md §4.5,
// "Throttling").
const DefaultMaxInFlight = 1

type monitorConfig struct {
	limitBytes  int64
	multiplier  int
	policy      Policy
	warmup      time.Duration
	tickPeriod  time.Duration
	maxInFlight int64
	manualTick  bool
	rngSeed     int64
}

// Monitor is the engine's dedicated sampling/eviction loop (spec.md
// §4.6): it samples memory, maintains a running average, and drives
// batched evictions through a swapScheduler under backpressure. Create
// one via Engine; tests needing deterministic control construct it with
// WithManualTick and drive it via Tick instead of Run.
type Monitor struct {
	cfg    monitorConfig
	reg    *Registry
	swaps  *swapScheduler
	sched  Scheduler
	logger *Logger
	rng    *rand.Rand

	keepAverage  atomic.Bool
	lastAvgNanos atomic.Int64

	avgMu      sync.Mutex
	avgTotal   int64 // sum of sampled usage in MB
	avgSamples int64

	pressureMu  sync.Mutex
	pressureCV  *sync.Cond
	pressureHit bool

	tickCh  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started atomic.Bool
}

func newMonitor(cfg monitorConfig, reg *Registry, swaps *swapScheduler, sched Scheduler, logger *Logger) *Monitor {
	m := &Monitor{
		cfg:    cfg,
		reg:    reg,
		swaps:  swaps,
		sched:  sched,
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.rngSeed)),
		tickCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	m.pressureCV = sync.NewCond(&m.pressureMu)
	return m
}

// Run is the monitor's main loop (spec.md §4.6). It blocks until Stop is
// called; run it on its own goroutine — the "dedicated OS thread" of
// spec.md §5 maps to a dedicated goroutine here, since the engine never
// needs it pinned to a real thread.
func (m *Monitor) Run() {
	if m.started.Swap(true) {
		return
	}
	defer close(m.doneCh)

	if !m.cfg.manualTick {
		select {
		case <-time.After(m.cfg.warmup):
		case <-m.stopCh:
			return
		}
	}

	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if m.cfg.manualTick {
			select {
			case <-m.tickCh:
			case <-m.stopCh:
				return
			}
		} else {
			select {
			case <-time.After(m.cfg.tickPeriod):
			case <-m.stopCh:
				return
			}
		}

		m.tick()
	}
}

// SignalTick wakes a manual-tick Run goroutine for one iteration. It is
// non-blocking: a pending, unconsumed signal is not queued twice.
func (m *Monitor) SignalTick() {
	select {
	case m.tickCh <- struct{}{}:
	default:
	}
}

// Tick runs one iteration synchronously; only meaningful in manual-tick
// mode (spec.md §9, supplementing the source's create_debug path, which
// lets tests single-step the monitor instead of racing a timer).
func (m *Monitor) Tick() {
	m.tick()
}

func (m *Monitor) tick() {
	m.reg.sweepDead()

	usageBytes := m.sampleUsage()
	m.accumulateAverage(usageBytes)

	if m.cfg.limitBytes <= 0 {
		// limit = 0: no eviction; the monitor still runs (spec.md §8,
		// boundary behaviors).
		m.markPressureMet()
		if m.logger != nil {
			m.logger.pressure(usageBytes, 0, false)
		}
		return
	}

	threshold := m.cfg.limitBytes * 90 / 100
	if usageBytes < threshold {
		m.markPressureMet()
		if m.logger != nil {
			m.logger.pressure(usageBytes, m.cfg.limitBytes, false)
		}
		return
	}

	m.pressureMu.Lock()
	m.pressureHit = true
	m.pressureCV.Broadcast()
	m.pressureMu.Unlock()
	if m.logger != nil {
		m.logger.pressure(usageBytes, m.cfg.limitBytes, true)
	}

	target := m.cfg.limitBytes * int64(m.cfg.multiplier) / 100
	toShed := usageBytes - target
	if toShed <= 0 {
		return
	}

	batchCap := m.reg.Len()
	ids := SelectVictimBatch(m.reg, m.cfg.policy, m.rng, toShed, batchCap)
	if len(ids) == 0 {
		return
	}

	candidates := m.entriesByID(ids)
	scheduled, dead, ok := m.swaps.ScheduleBatch(candidates)
	for _, id := range dead {
		m.reg.Remove(id)
		if m.logger != nil {
			m.logger.deadCown(id)
		}
	}
	if !ok {
		// In-flight cap saturated; try again next tick (spec.md §4.5,
		// "Throttling").
		return
	}
	for _, id := range scheduled {
		m.reg.markResident(id, false)
	}
}

// entriesByID resolves selected ids back to entry snapshots via one
// registry snapshot. Ids that have since vanished (concurrent Remove)
// are silently skipped.
func (m *Monitor) entriesByID(ids []uint64) []entry {
	entries, _ := m.reg.snapshot()
	byID := make(map[uint64]entry, len(entries))
	for _, e := range entries {
		byID[e.id] = e
	}
	out := make([]entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *Monitor) sampleUsage() int64 {
	rss, err := sampleRSS()
	if err != nil {
		if m.logger != nil {
			m.logger.swapFailed(0, err) // sampling failure is not fatal; reuse the generic error log path
		}
		rss = 0
	}
	return rss + m.reg.SizeBytes()
}

// StartAveraging begins accumulating the running-average-usage sample,
// updated at most once per real second (spec.md §4.6, step 2). It is a
// no-op until called — restoring the original's start_keep_average /
// keep_average gate (SPEC_FULL.md §4, "running-average toggle") — so
// that Stop's returned average reflects measured steady-state usage
// rather than whatever accumulated during warm-up before a caller (e.g.
// a benchmark harness) was ready to start measuring.
func (m *Monitor) StartAveraging() {
	m.keepAverage.Store(true)
}

// accumulateAverage folds usageBytes into the running average, but only
// if StartAveraging has been called and at least one second has elapsed
// since the last accumulated sample (spec.md §4.6, step 2: "Once per
// second, update an accumulator"). tick() may run far more often than
// once a second (DefaultTickPeriod is 100ms), so without this gate the
// average would be skewed toward whatever tick period the caller chose
// rather than reflecting wall-clock time.
func (m *Monitor) accumulateAverage(usageBytes int64) {
	if !m.keepAverage.Load() {
		return
	}
	now := time.Now().UnixNano()
	last := m.lastAvgNanos.Load()
	if now-last < int64(time.Second) {
		return
	}
	if !m.lastAvgNanos.CompareAndSwap(last, now) {
		return
	}
	m.avgMu.Lock()
	defer m.avgMu.Unlock()
	m.avgTotal += usageBytes / (1024 * 1024)
	m.avgSamples++
}

// AverageUsageMB returns the running mean of sampled usage, in
// megabytes, rounded down. Returns 0 if no sample has ever been taken.
func (m *Monitor) AverageUsageMB() int64 {
	m.avgMu.Lock()
	defer m.avgMu.Unlock()
	if m.avgSamples == 0 {
		return 0
	}
	return m.avgTotal / m.avgSamples
}

func (m *Monitor) markPressureMet() {
	m.pressureMu.Lock()
	m.pressureHit = true
	m.pressureCV.Broadcast()
	m.pressureMu.Unlock()
}

// WaitForPressure blocks until the monitor has run at least one tick,
// whether that tick had to shed memory or found usage under the
// threshold (spec.md §4.7, "wait"). Used by benchmarks to start
// measurement once memory usage is warm.
func (m *Monitor) WaitForPressure() {
	m.pressureMu.Lock()
	defer m.pressureMu.Unlock()
	for !m.pressureHit {
		m.pressureCV.Wait()
	}
}

// Stop signals the monitor to exit after its current tick, unregisters
// every remaining cown, and removes the engine as an external event
// source so the host scheduler may quiesce (spec.md §4.6, "Shutdown").
// It blocks until the monitor goroutine has exited (spec.md §9, Open
// Questions: "authoritative behavior... is join on stop"). Only valid for
// a monitor whose Run was started; manual-tick monitors use StopManual.
func (m *Monitor) Stop() int64 {
	close(m.stopCh)
	<-m.doneCh
	return m.shutdown()
}

// StopManual performs the same shutdown bookkeeping as Stop without
// waiting on a Run goroutine, for monitors driven entirely by Tick
// (spec.md §9, supplementing create_debug: no background thread exists
// to join).
func (m *Monitor) StopManual() int64 {
	return m.shutdown()
}

func (m *Monitor) shutdown() int64 {
	m.reg.unregisterAll()
	if m.sched != nil {
		m.sched.RemoveExternalEventSource()
	}
	avg := m.AverageUsageMB()
	if m.logger != nil {
		m.logger.stopped(avg)
	}
	return avg
}
