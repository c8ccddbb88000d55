// Package gateway provides catbot's HTTP side door: liveness, Prometheus
// metrics, and a small authenticated API over the stats store. It binds to
// loopback by default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/security"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module. It is a leaf module; nothing
// imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	startedAt time.Time
	now       func() time.Time

	// Resolved lazily at Start() via the service registry.
	store stats.Store
	bot   botInfo
}

type botInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	if g.now == nil {
		g.now = time.Now
	}

	reg := prometheus.NewRegistry()
	if svc, ok := ctx.Service(RegistryServiceName); ok {
		if shared, ok := svc.(*prometheus.Registry); ok {
			reg = shared
		}
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("gateway: register metrics: %w", err)
	}
	g.metrics = metrics
	g.gatherer = reg

	if svc, ok := ctx.Service(security.ServiceName); ok {
		if r, ok := svc.(*security.Redactor); ok {
			r.AddLiteral(g.config.Auth.BearerToken)
			r.AddLiteral(g.config.Auth.BasicPass)
		}
	}
	if !g.config.Auth.IsConfigured() {
		g.logger.Info("gateway auth not configured, stats api disabled")
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves the stats store from the
// service registry and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = g.now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

func (g *Gateway) resolveServices() {
	if svc, ok := g.appCtx.Service(stats.ServiceName); ok {
		if store, ok := svc.(stats.Store); ok {
			g.store = store
		}
	}
	if svc, ok := g.appCtx.Service(config.BotServiceName); ok {
		if bot, ok := svc.(*config.BotConfig); ok {
			g.bot = botInfo{Name: bot.Name, Version: bot.Version}
		}
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
