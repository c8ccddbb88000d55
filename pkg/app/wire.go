package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/cron"
	"github.com/flemzord/catbot/internal/router"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoTransport is returned when no loaded module implements
// channel.Transport.
var ErrNoTransport = errors.New("app: no channel module loaded")

// routerModule wraps a *router.Router to satisfy core.Module, core.Starter,
// and core.Stopper, so the router participates in the App lifecycle.
type routerModule struct {
	router *router.Router
	ctx    context.Context
}

func (m *routerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "router"}
}

func (m *routerModule) Start() error {
	m.router.Start(m.ctx)
	return nil
}

func (m *routerModule) Stop(ctx context.Context) error {
	m.router.Stop(ctx)
	return nil
}

// cronModule does the same for the job scheduler.
type cronModule struct {
	scheduler *cron.Scheduler
}

func (m *cronModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *cronModule) Start() error { return m.scheduler.Start() }

func (m *cronModule) Stop(ctx context.Context) error { return m.scheduler.Stop(ctx) }

// wiring is what wireRouter discovered and built.
type wiring struct {
	transport channel.Transport
	router    *router.Router
	store     stats.Store
}

// wireRouter resolves the stats store, discovers the transport and the
// integrations among loaded modules, creates the Emitter and Router, points
// the transport's inbox at the router, and adds the router and the
// scheduler to the app lifecycle. The router sits just ahead of the
// transport: it starts before events arrive and stops only after the
// transport has stopped submitting. Must be called after LoadModules and
// before Start.
func wireRouter(
	app *core.App,
	appCtx *core.AppContext,
	ids []string,
	cfg *config.Config,
	reg prometheus.Registerer,
	logger *slog.Logger,
) (*wiring, error) {
	store, err := resolveStats(appCtx, reg, logger)
	if err != nil {
		return nil, err
	}

	var (
		transport   channel.Transport
		transportID string
		handlers    []router.Handler
		reactors  []router.Reactor
	)
	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		if t, ok := mod.(channel.Transport); ok {
			transport, transportID = t, id
			logger.Info("router: registered transport", "module", id)
		}
		if h, ok := mod.(router.Handler); ok {
			handlers = append(handlers, h)
		}
		if r, ok := mod.(router.Reactor); ok {
			reactors = append(reactors, r)
		}
	}
	if transport == nil {
		return nil, ErrNoTransport
	}
	handlers = router.Active(handlers)
	reactors = router.Active(reactors)

	r, err := router.NewRouter(router.Config{
		WorkerCount:        cfg.Router.Workers,
		InboxSize:          cfg.Router.InboxSize,
		Emitter:            channel.NewEmitter(transport, store, logger.With("component", "emitter")),
		Handlers:           handlers,
		Reactors:           reactors,
		CommandPrefix:      cfg.Router.CommandPrefix,
		Sampler:            sampler(cfg.Router),
		DedupWindow:        cfg.Router.DedupWindow,
		DedupCapacity:      cfg.Router.DedupCapacity,
		HandlerParallelism: cfg.Router.HandlerParallelism,
		Logger:             logger.With("component", "router"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating router: %w", err)
	}

	transport.SetInbox(r.Submit)
	app.InsertModuleBefore(core.ModuleID(transportID), "router", &routerModule{router: r, ctx: context.Background()})

	if expr := cfg.Cron.StatsReport; expr != "" {
		scheduler := cron.NewScheduler(logger.With("component", "cron"))
		if err := scheduler.RegisterJob(&cron.StatsReportJob{
			Store:        store,
			Logger:       logger.With("component", "stats_report"),
			ScheduleExpr: expr,
		}); err != nil {
			return nil, err
		}
		app.AppendModule("cron", &cronModule{scheduler: scheduler})
	}

	logger.Info("router: wired", "handlers", len(handlers), "reactors", len(reactors))
	return &wiring{transport: transport, router: r, store: store}, nil
}

// resolveStats picks the persistent store a stats module registered, or an
// in-memory one, wraps it with Prometheus counters, and re-registers the
// wrapped store so later consumers (the gateway) see the same instance.
func resolveStats(appCtx *core.AppContext, reg prometheus.Registerer, logger *slog.Logger) (stats.Store, error) {
	var store stats.Store
	if svc, ok := appCtx.Service(stats.ServiceName); ok {
		store, _ = svc.(stats.Store)
	}
	if store == nil {
		logger.Warn("no stats module configured, counters are kept in memory")
		store = stats.NewMemoryStore()
	}

	instrumented, err := stats.NewInstrumented(store, reg)
	if err != nil {
		return nil, fmt.Errorf("registering stats metrics: %w", err)
	}
	appCtx.RegisterService(stats.ServiceName, instrumented)
	return instrumented, nil
}

// sampler applies configured probabilities over the router defaults.
func sampler(cfg config.RouterConfig) router.Sampler {
	s := router.NewSampler()
	if cfg.RandomP != nil {
		s.P1 = *cfg.RandomP
	}
	if cfg.LivenessP != nil {
		s.P2 = *cfg.LivenessP
	}
	return s
}
