package swapengine

import (
	"sync/atomic"
	"time"

	_ "go.uber.org/automaxprocs" // corrects GOMAXPROCS under a cgroup CPU quota before the monitor or any scheduler worker starts
)

// EngineOption configures Create, following eventloop/options.go's
// functional-options pattern (LoopOption there, EngineOption here).
type EngineOption interface {
	apply(*engineOptions)
}

type engineOptionFunc func(*engineOptions)

func (f engineOptionFunc) apply(o *engineOptions) { f(o) }

type engineOptions struct {
	swapDir     string
	logger      *Logger
	warmup      time.Duration
	tickPeriod  time.Duration
	maxInFlight int64
	manualTick  bool
	rngSeed     int64
}

func resolveEngineOptions(opts []EngineOption) engineOptions {
	o := engineOptions{
		warmup:      DefaultWarmup,
		tickPeriod:  DefaultTickPeriod,
		maxInFlight: DefaultMaxInFlight,
		rngSeed:     1,
	}
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.logger == nil {
		o.logger = NewDiscardLogger()
	}
	return o
}

// WithSwapDir overrides the directory swap files are written under
// (default: DefaultSwapDir()).
func WithSwapDir(dir string) EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.swapDir = dir })
}

// WithEngineLogger supplies a Logger for the engine's diagnostic output.
// Without this option the engine logs nowhere.
func WithEngineLogger(l *Logger) EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.logger = l })
}

// WithWarmup overrides the delay before the monitor's first tick
// (default DefaultWarmup).
func WithWarmup(d time.Duration) EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.warmup = d })
}

// WithTickPeriod overrides the monitor's sleep between ticks (default
// DefaultTickPeriod).
func WithTickPeriod(d time.Duration) EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.tickPeriod = d })
}

// WithMaxInFlight overrides the swaps-in-flight cap (default
// DefaultMaxInFlight).
func WithMaxInFlight(n int64) EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.maxInFlight = n })
}

// WithManualTick puts the monitor in single-step mode: no background
// goroutine runs, and the caller drives iterations explicitly via
// Engine.Monitor().Tick. Grounded on the source's create_debug variant,
// which exists specifically so tests can avoid racing a timer (spec.md
// §9 supplements; see DESIGN.md).
func WithManualTick() EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.manualTick = true })
}

// WithRNGSeed fixes the seed used by PolicyRandom, for reproducible
// tests. Default seed is 1.
func WithRNGSeed(seed int64) EngineOption {
	return engineOptionFunc(func(o *engineOptions) { o.rngSeed = seed })
}

// Engine is the public façade (spec.md §4.7): Create, Register, Wait,
// Stop. Unlike the source's process-wide singleton with an "abort if
// already running" failure mode, Create returns an owning handle whose
// lifecycle (start -> running -> stopped) is explicit and whose Stop does
// its work only on the first call (spec.md §9, "Singleton runtime thread").
type Engine struct {
	reg     *Registry
	codec   *Codec
	swaps   *swapScheduler
	monitor *Monitor
	sched   Scheduler
	logger  *Logger

	manualTick bool
	stopped    atomic.Bool
}

// Create builds and starts a new Engine (spec.md §4.7, "create").
// limitMB is the resident-set ceiling; 0 disables eviction (the monitor
// still runs, as a no-op collector — spec.md §6). multiplier is the
// shed-aggressiveness percentage in [0,100]. sched is the host runtime;
// it may be nil only in tests that never let pressure build (in which
// case ScheduleBatch is never reached).
func Create(sched Scheduler, limitMB int64, multiplier int, policy Policy, opts ...EngineOption) (*Engine, error) {
	o := resolveEngineOptions(opts)

	codec, err := NewCodec(o.swapDir)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	swaps := newSwapScheduler(sched, codec, o.logger, o.maxInFlight)

	cfg := monitorConfig{
		limitBytes:  limitMB * 1024 * 1024,
		multiplier:  multiplier,
		policy:      policy,
		warmup:      o.warmup,
		tickPeriod:  o.tickPeriod,
		maxInFlight: o.maxInFlight,
		manualTick:  o.manualTick,
		rngSeed:     o.rngSeed,
	}
	mon := newMonitor(cfg, reg, swaps, sched, o.logger)

	e := &Engine{
		reg:        reg,
		codec:      codec,
		swaps:      swaps,
		monitor:    mon,
		sched:      sched,
		logger:     o.logger,
		manualTick: o.manualTick,
	}

	if sched != nil {
		sched.AddExternalEventSource()
	}
	o.logger.started(policy, cfg.limitBytes)
	if total := totalSystemMemory(); total > 0 && cfg.limitBytes > total {
		o.logger.limitExceedsSystemMemory(cfg.limitBytes, total)
	}

	if !o.manualTick {
		go mon.Run()
	}
	return e, nil
}

// Monitor exposes the underlying Monitor, primarily so manual-tick tests
// can call Tick directly.
func (e *Engine) Monitor() *Monitor { return e.monitor }

// Codec exposes the underlying Codec, for tests asserting on swap-file
// presence.
func (e *Engine) Codec() *Codec { return e.codec }

// Registry exposes the underlying Registry, for tests asserting on
// resident counts and size accounting.
func (e *Engine) Registry() *Registry { return e.reg }

// RegisterCown registers c with e (spec.md §4.7, "register"). Because
// Swappable is a compile-time constraint on T, the runtime rejection
// spec.md §4.1 describes for non-swappable payloads can never fire here;
// RegisterCown always returns true, kept boolean-valued only to mirror
// the façade signature spec.md §4.7 specifies. Double registration is
// idempotent (spec.md §7).
//
// RegisterCown is a free function, not an Engine method, for the same
// reason Register is a free function on Registry: Go methods cannot
// introduce additional type parameters.
func RegisterCown[T Swappable](e *Engine, c *Cown[T], payload T, deserialize Deserializer[T]) bool {
	Register(e.reg, c, payload, deserialize)
	return true
}

// StartAveraging begins accumulating the running average usage Stop
// returns (spec.md §9 supplements: the original's start_keep_average).
// Until called, Stop returns 0 regardless of sampled usage — callers
// that care about the average (typically a benchmark harness, once it
// has finished its own setup) opt in explicitly rather than having
// warm-up noise baked into every average unconditionally.
func (e *Engine) StartAveraging() {
	e.monitor.StartAveraging()
}

// Wait blocks until the monitor has run at least one tick, whether that
// tick needed to shed memory or found usage already acceptable (spec.md
// §4.7, "wait"). It returns nothing. Used by benchmarks to start
// measurement once memory is warm.
func (e *Engine) Wait() {
	e.monitor.WaitForPressure()
}

// Stop stops the monitor and returns the running average usage in
// megabytes (spec.md §4.7, "stop"). Only the first call stops the
// monitor; any later call does nothing and returns 0.
func (e *Engine) Stop() int64 {
	if e.stopped.Swap(true) {
		return 0
	}
	if e.manualTick {
		return e.monitor.StopManual()
	}
	return e.monitor.Stop()
}
