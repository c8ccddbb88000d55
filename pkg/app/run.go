// Package app provides the entry point shared by the catbot commands:
// config loading, module wiring, and the signal-driven main loop.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/gateway"
	"github.com/flemzord/catbot/internal/security"
	"github.com/flemzord/catbot/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	appName         = "catbot"
	configFileName  = "catbot.yaml"
	shutdownTimeout = 10 * time.Second
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel, when set, overrides log.level from the config file.
	LogLevel string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Bot is a loaded and wired catbot that has not been started.
type Bot struct {
	App    *core.App
	Logger *slog.Logger

	wiring          *wiring
	shutdownTracing tracing.ShutdownFunc
}

// Build creates the logger and AppContext for cfg, loads every configured
// module, and wires the dispatch engine. cfg must already be validated.
func Build(ctx context.Context, cfg *config.Config, params RunParams) (*Bot, error) {
	levelName := cfg.Log.Level
	if params.LogLevel != "" {
		levelName = params.LogLevel
	}
	level, err := security.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}

	redactor := security.NewRedactor()
	logger := security.NewLogger(out, level, cfg.Log.Format, redactor)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)

	bot := cfg.Bot
	if bot.Version == "" {
		bot.Version = params.Version
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	appCtx.RegisterService(security.ServiceName, redactor)
	appCtx.RegisterService(config.BotServiceName, &bot)
	appCtx.RegisterService(gateway.RegistryServiceName, registry)

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing, appName, bot.Version)
	if err != nil {
		return nil, err
	}

	application := core.NewApp(appCtx)
	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	w, err := wireRouter(application, appCtx, ids, cfg, registry, logger)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	logger.Info("catbot configured",
		"name", bot.Name,
		"version", bot.Version,
		"modules", len(ids),
		"data_dir", dataDir,
	)
	return &Bot{App: application, Logger: logger, wiring: w, shutdownTracing: shutdownTracing}, nil
}

// Start starts every module, then the router.
func (b *Bot) Start() error {
	return b.App.Start()
}

// Stop stops modules in reverse order and flushes pending spans.
func (b *Bot) Stop(ctx context.Context) {
	b.App.Stop()
	if err := b.shutdownTracing(ctx); err != nil {
		b.Logger.Warn("tracing shutdown failed", "error", err)
	}
}

// LoadConfig resolves, loads and validates the configuration file.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Run loads configuration, starts all modules, and blocks until SIGINT or
// SIGTERM.
func Run(params RunParams) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return RunContext(ctx, params)
}

// RunContext is Run with the shutdown trigger supplied by the caller: the
// bot runs until ctx is done. The OS service wrapper uses it directly.
func RunContext(ctx context.Context, params RunParams) error {
	cfg, cfgPath, err := LoadConfig(params.ConfigPath)
	if err != nil {
		return err
	}

	bot, err := Build(ctx, cfg, params)
	if err != nil {
		return err
	}
	bot.Logger.Info("starting catbot", "config", cfgPath, "commit", params.Commit, "built", params.Date)

	if err := bot.Start(); err != nil {
		_ = bot.shutdownTracing(context.WithoutCancel(ctx))
		return err
	}

	<-ctx.Done()
	bot.Logger.Info("shutdown requested", "cause", context.Cause(ctx))

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	bot.Stop(stopCtx)
	bot.Logger.Info("shutdown complete")
	return nil
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/catbot/catbot.yaml → ~/.config/catbot/catbot.yaml → ./catbot.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, appName, configFileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", appName, configFileName))
	}

	candidates = append(candidates, configFileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultConfigPath is where `catbot init` writes a new config.
func DefaultConfigPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, appName, configFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appName, configFileName)
	}
	return configFileName
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/catbot if set, otherwise ~/.local/share/catbot.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}
