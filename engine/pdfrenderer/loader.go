package pdfrenderer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LoadState is where a Loader is in bringing up its engine
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

const (
	// DefaultLoadAttempts is how many times LoadWithRetry tries before giving up
	DefaultLoadAttempts = 3
	// DefaultRetryDelay is the fixed pause between load attempts
	DefaultRetryDelay = time.Second
)

// loadCall is a load in flight. done is closed once engine or err is set.
type loadCall struct {
	done   chan struct{}
	engine Engine
	err    error
}

// Loader lazily loads an Engine once and shares it between all callers.
// Once Loaded the engine is never reloaded. A Failed load is retried by the
// next caller.
type Loader struct {
	importer   Importer
	workerRoot string
	workers    int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	state    LoadState
	engine   Engine
	inflight *loadCall
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithWorkerRoot sets the directory the worker binary is resolved against
func WithWorkerRoot(root string) LoaderOption {
	return func(l *Loader) { l.workerRoot = root }
}

// WithWorkers sets the size of the engine's worker pool
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithRetryDelay sets the pause between load attempts
func WithRetryDelay(d time.Duration) LoaderOption {
	return func(l *Loader) { l.retryDelay = d }
}

// withSleep replaces the retry pause, tests use it to observe delays
func withSleep(sleep func(ctx context.Context, d time.Duration) error) LoaderOption {
	return func(l *Loader) { l.sleep = sleep }
}

// NewLoader creates a Loader for the given importer
func NewLoader(importer Importer, opts ...LoaderOption) *Loader {
	l := &Loader{
		importer:   importer,
		workers:    1,
		retryDelay: DefaultRetryDelay,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current load state
func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load returns the engine, loading it if needed. Concurrent callers share the
// same in-flight load.
func (l *Loader) Load(ctx context.Context) (Engine, error) {
	l.mu.Lock()
	if l.engine != nil {
		engine := l.engine
		l.mu.Unlock()
		return engine, nil
	}
	call := l.inflight
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		l.inflight = call
		l.state = Loading
		// The load outlives any single caller, so it ignores their cancellation
		go l.run(context.WithoutCancel(ctx), call)
	}
	l.mu.Unlock()

	select {
	case <-call.done:
		return call.engine, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) run(ctx context.Context, call *loadCall) {
	engine, err := l.load(ctx)

	l.mu.Lock()
	if err != nil {
		l.state = Failed
		Logger.Warn("PDF engine load failed", "error", err)
	} else {
		l.engine = engine
		l.state = Loaded
		Logger.Info("PDF engine loaded")
	}
	l.inflight = nil
	call.engine, call.err = engine, err
	l.mu.Unlock()
	close(call.done)
}

func (l *Loader) load(ctx context.Context) (engine Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			engine = nil
			err = fmt.Errorf("%w: panic: %v", ErrEngineLoadFailed, r)
		}
	}()

	Logger.Debug("Loading PDF engine module")
	module, err := l.importer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLoadFailed, err)
	}
	if module == nil || module.WorkerOptions() == nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLoadFailed, ErrEngineInvalid)
	}

	options := module.WorkerOptions()
	options.WorkerSrc = WorkerSrc
	options.WorkerRoot = l.workerRoot
	options.MinIdle = 1
	options.MaxIdle = l.workers
	options.MaxTotal = l.workers

	engine, err = module.Start(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLoadFailed, err)
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLoadFailed, ErrEngineInvalid)
	}
	return engine, nil
}

// LoadWithRetry calls Load up to maxAttempts times with a fixed pause between
// attempts. maxAttempts below one means DefaultLoadAttempts.
func (l *Loader) LoadWithRetry(ctx context.Context, maxAttempts int) (Engine, error) {
	if maxAttempts < 1 {
		maxAttempts = DefaultLoadAttempts
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		engine, err := l.Load(ctx)
		if err == nil {
			return engine, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		Logger.Warn("PDF engine load attempt failed", "attempt", attempt, "max_attempts", maxAttempts, "error", err)
		if attempt < maxAttempts {
			if err := l.sleep(ctx, l.retryDelay); err != nil {
				lastErr = err
				break
			}
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrEngineLoadExhausted, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
