package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/pkg/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInboxSize       = 256
	defaultHandlerParallel = 8
	tracerName             = "github.com/flemzord/catbot/internal/router"
)

// Config holds the configuration for a Router.
type Config struct {
	WorkerCount int
	InboxSize   int

	Emitter  *channel.Emitter
	Handlers []Handler
	Reactors []Reactor

	// CommandPrefix opens the activation gate. Defaults to "!meow".
	CommandPrefix string

	// Sampler rolls the randomized behaviors. The zero value never fires;
	// use NewSampler for the defaults.
	Sampler Sampler

	// DedupWindow and DedupCapacity bound the recently-seen event set.
	DedupWindow   time.Duration
	DedupCapacity int

	// HandlerParallelism caps concurrent handler and reactor goroutines
	// per event.
	HandlerParallelism int

	Logger *slog.Logger
	Tracer trace.Tracer
}

// withDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.InboxSize <= 0 {
		c.InboxSize = defaultInboxSize
	}
	if c.CommandPrefix == "" {
		c.CommandPrefix = DefaultCommandPrefix
	}
	if c.HandlerParallelism <= 0 {
		c.HandlerParallelism = defaultHandlerParallel
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer(tracerName)
	}
	return c
}

// Router is the central dispatch layer. Submit enqueues events for a fixed
// worker pool; Process runs the dispatch steps for one event synchronously.
type Router struct {
	config   Config
	inbox    chan message.InboundEvent
	inboxMu  sync.RWMutex
	pool     *WorkerPool
	dedup    *dedupWindow
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *slog.Logger
	stopped  atomic.Bool
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg Config) (*Router, error) {
	cfg = cfg.withDefaults()

	if cfg.Emitter == nil {
		return nil, ErrNoEmitter
	}

	return &Router{
		config: cfg,
		inbox:  make(chan message.InboundEvent, cfg.InboxSize),
		pool:   NewWorkerPool(cfg.WorkerCount),
		dedup:  newDedupWindow(cfg.DedupWindow, cfg.DedupCapacity),
		logger: cfg.Logger,
	}, nil
}

// Start launches the worker pool and begins processing events.
func (r *Router) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.inboxMu.Lock()
	if r.stopped.Load() {
		r.inboxMu.Unlock()
		cancel()
		r.logger.Warn("router: start ignored, router already stopped")
		return
	}
	r.cancel = cancel
	r.inboxMu.Unlock()

	r.pool.Start(ctx, r.inbox, func(ctx context.Context, ev message.InboundEvent) {
		r.Process(ctx, ev)
	})
	r.logger.Info("router: started",
		"workers", r.config.WorkerCount,
		"inbox_size", r.config.InboxSize,
		"handlers", len(r.config.Handlers),
		"reactors", len(r.config.Reactors),
	)
}

// Submit enqueues an inbound event for processing. It never blocks: if the
// inbox is full, the event is dropped with a warning.
func (r *Router) Submit(ev message.InboundEvent) error {
	r.inboxMu.RLock()
	defer r.inboxMu.RUnlock()

	if r.stopped.Load() {
		return ErrRouterStopped
	}

	select {
	case r.inbox <- ev:
		return nil
	default:
		r.logger.Warn("router: inbox full, event dropped",
			"room", ev.RoomID,
			"event", ev.EventID,
		)
		return ErrInboxFull
	}
}

// Stop gracefully shuts down the router: closes the inbox and waits for
// queued events to drain.
func (r *Router) Stop(_ context.Context) {
	r.stopOnce.Do(func() {
		r.logger.Info("router: stopping")

		r.inboxMu.Lock()
		r.stopped.Store(true)
		close(r.inbox)
		cancel := r.cancel
		r.inboxMu.Unlock()

		r.pool.Wait()
		if cancel != nil {
			cancel()
		}
		r.logger.Info("router: stopped")
	})
}
