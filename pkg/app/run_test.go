package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/catbot/internal/channel/channeltest"
	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/security/securitytest"
	"github.com/flemzord/catbot/internal/stats"
	_ "github.com/flemzord/catbot/modules/integration/reacts"
	_ "github.com/flemzord/catbot/modules/integration/universal"
	"github.com/flemzord/catbot/modules/stats/sqlite"
	"github.com/flemzord/catbot/pkg/message"
)

func init() {
	core.RegisterModule(channeltest.NewMockTransport("@cat:hs"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catbot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

const e2eConfig = `
version: "1"
router:
  random_p: 0
cron:
  stats_report: "@hourly"
modules:
  channel.mock: {}
  stats.sqlite: {}
  integration.universal:
    scope: admin
  integration.reacts: {}
`

func TestBuild_EndToEnd(t *testing.T) {
	t.Parallel()

	cfg, _, err := LoadConfig(writeConfig(t, e2eConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	dataDir := t.TempDir()
	logs := &securitytest.LogBuffer{}

	ctx := context.Background()
	bot, err := Build(ctx, cfg, RunParams{Version: "9.9.9", DataDir: dataDir, LogOutput: logs, LogLevel: "debug"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := bot.App.Module("router"); !ok {
		t.Error("router not appended to the app lifecycle")
	}
	if _, ok := bot.App.Module("cron"); !ok {
		t.Error("cron scheduler not appended with stats_report set")
	}
	if err := bot.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	transport, ok := bot.wiring.transport.(*channeltest.MockTransport)
	if !ok {
		t.Fatalf("transport = %T", bot.wiring.transport)
	}
	err = transport.SimulateEvent(message.InboundEvent{
		RoomID:   "!r:hs",
		EventID:  "$1",
		SenderID: "@alice:hs",
		MsgType:  message.MsgTypeText,
		Body:     "!meow version",
	})
	if err != nil {
		t.Fatalf("SimulateEvent: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(transport.Notices()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	notices := transport.Notices()
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	if want := "meow! <b>catBot</b> version is <b>9.9.9</b>"; notices[0].HTML != want {
		t.Errorf("reply = %q, want %q", notices[0].HTML, want)
	}

	// The store is wrapped once and shared with later consumers.
	svc, _ := bot.wiring.store.(*stats.Instrumented)
	if svc == nil {
		t.Errorf("store = %T, want *stats.Instrumented", bot.wiring.store)
	}

	bot.Stop(ctx)

	store, err := sqlite.OpenStore(ctx, filepath.Join(dataDir, "stats.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer func() { _ = store.Close() }()
	entries, err := store.Snapshot(ctx, "!r:hs")
	if err != nil {
		t.Fatal(err)
	}
	if got := stats.Sum(entries, stats.CounterProcessed); got != 1 {
		t.Errorf("persisted %s = %d, want 1", stats.CounterProcessed, got)
	}
	if got := stats.Sum(entries, stats.CounterMsgAction); got != 1 {
		t.Errorf("persisted %s = %d, want 1", stats.CounterMsgAction, got)
	}

	out := logs.String()
	for _, want := range []string{"router: wired", "handlers=1", "reactors=1", "cron: scheduler started"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q", want)
		}
	}
}

func TestBuild_InMemoryStatsFallback(t *testing.T) {
	t.Parallel()

	cfg, _, err := LoadConfig(writeConfig(t, `
version: "1"
modules:
  channel.mock: {}
  integration.universal: {}
`))
	if err != nil {
		t.Fatal(err)
	}
	logs := &securitytest.LogBuffer{}
	bot, err := Build(context.Background(), cfg, RunParams{DataDir: t.TempDir(), LogOutput: logs})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := bot.App.Module("cron"); ok {
		t.Error("cron should not be wired without a schedule")
	}
	if !strings.Contains(logs.String(), "counters are kept in memory") {
		t.Error("expected in-memory fallback warning")
	}
}

func TestBuild_RouterStopsAfterTransport(t *testing.T) {
	t.Parallel()

	cfg, _, err := LoadConfig(writeConfig(t, `
version: "1"
router:
  dedup_capacity: 16
  handler_parallelism: 2
modules:
  channel.mock: {}
  stats.sqlite: {}
  integration.universal: {}
`))
	if err != nil {
		t.Fatal(err)
	}
	bot, err := Build(context.Background(), cfg, RunParams{DataDir: t.TempDir(), LogOutput: &securitytest.LogBuffer{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	routerAt, transportAt := -1, -1
	for i, mod := range bot.App.Modules() {
		if _, ok := mod.(*routerModule); ok {
			routerAt = i
		}
		if mod == core.Module(bot.wiring.transport) {
			transportAt = i
		}
	}
	// App.Stop runs in reverse, so the transport stops submitting before
	// the router drains and the stats store closes.
	if routerAt < 1 || routerAt != transportAt-1 {
		t.Errorf("router at %d, transport at %d; want the router just ahead of the transport, after stats", routerAt, transportAt)
	}
}

func TestBuild_NoTransport(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Version: "1"}
	cfg.Defaults()
	bot, err := Build(context.Background(), cfg, RunParams{DataDir: t.TempDir(), LogOutput: &securitytest.LogBuffer{}})
	if !errors.Is(err, ErrNoTransport) {
		t.Errorf("Build() = %v, %v; want ErrNoTransport", bot, err)
	}
}

func TestBuild_BadLogLevel(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Version: "1"}
	if _, err := Build(context.Background(), cfg, RunParams{LogLevel: "chatty"}); err == nil {
		t.Error("expected log level error")
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	zero, half := 0.0, 0.5
	s := sampler(config.RouterConfig{RandomP: &zero, LivenessP: &half})
	if s.P1 != 0 || s.P2 != 0.5 {
		t.Errorf("sampler = %+v", s)
	}
	d := sampler(config.RouterConfig{})
	if d.P1 == 0 || d.P2 == 0 {
		t.Errorf("defaults not applied: %+v", d)
	}
}

func TestResolveConfigPath_XDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "catbot")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(cfgDir, "catbot.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: \"1\""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := ResolveConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfgPath {
		t.Errorf("got %q, want %q", got, cfgPath)
	}
	if DefaultConfigPath() != cfgPath {
		t.Errorf("DefaultConfigPath() = %q, want %q", DefaultConfigPath(), cfgPath)
	}
}

func TestResolveConfigPath_NotFound(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/nonexistent/path")
	t.Chdir(t.TempDir())

	if _, err := ResolveConfigPath(); err == nil {
		t.Error("expected error when no config file found")
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got, want := DefaultDataDir(), "/custom/data/catbot"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	home, _ := os.UserHomeDir()
	if got, want := DefaultDataDir(), filepath.Join(home, ".local", "share", "catbot"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	if err := Run(RunParams{ConfigPath: "/nonexistent/config.yaml"}); err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestRun_InvalidConfigContent(t *testing.T) {
	path := writeConfig(t, "not: valid: yaml: [")
	if err := Run(RunParams{ConfigPath: path}); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRun_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "modules:\n  foo: {}")
	if err := Run(RunParams{ConfigPath: path}); err == nil {
		t.Error("expected validation error")
	}
}

func TestRunContext_StopsOnCancel(t *testing.T) {
	t.Parallel()

	params := RunParams{
		ConfigPath: writeConfig(t, e2eConfig),
		DataDir:    t.TempDir(),
		LogOutput:  &securitytest.LogBuffer{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunContext(ctx, params) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunContext() = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}
}
