// Package universal implements the built-in commands every room gets
// (about, help, version) and the operator commands of the admin scope
// (stats, uptime).
package universal

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/command"
	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/router"
	"github.com/flemzord/catbot/internal/stats"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Universal{})
}

var (
	_ router.Handler    = (*Universal)(nil)
	_ core.Configurable = (*Universal)(nil)
	_ core.Provisioner  = (*Universal)(nil)
	_ core.Validator    = (*Universal)(nil)
	_ core.Starter      = (*Universal)(nil)
)

const (
	moduleTag  = "universal"
	moduleName = "General Functions"
	moduleDesc = "General Built in functions"
)

// Config holds the universal commands configuration.
type Config struct {
	// Scope is base (about, help, version) or admin (adds stats, uptime).
	Scope command.Scope `yaml:"scope"`
}

// Universal answers the built-in commands.
type Universal struct {
	config   Config
	bot      config.BotConfig
	registry []command.Action
	logger   *slog.Logger
	started  time.Time
	now      func() time.Time
}

// ModuleInfo implements core.Module.
func (u *Universal) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "integration.universal",
		New: func() core.Module { return &Universal{} },
	}
}

// Configure implements core.Configurable.
func (u *Universal) Configure(node *yaml.Node) error {
	if err := node.Decode(&u.config); err != nil {
		return fmt.Errorf("universal: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (u *Universal) Provision(ctx *core.AppContext) error {
	u.logger = ctx.Logger
	if u.config.Scope == "" {
		u.config.Scope = command.ScopeBase
	}
	if svc, ok := ctx.Service(config.BotServiceName); ok {
		if bot, ok := svc.(*config.BotConfig); ok {
			u.bot = *bot
		}
	}
	if u.now == nil {
		u.now = time.Now
	}
	u.registry = command.BuildRegistry(u.config.Scope)
	return nil
}

// Validate implements core.Validator.
func (u *Universal) Validate() error {
	switch u.config.Scope {
	case command.ScopeBase, command.ScopeAdmin:
		return nil
	default:
		return fmt.Errorf("universal: scope must be %q or %q, got %q", command.ScopeBase, command.ScopeAdmin, u.config.Scope)
	}
}

// Start implements core.Starter. It marks the uptime origin.
func (u *Universal) Start() error {
	u.started = u.now()
	return nil
}

// Name implements router.Handler.
func (u *Universal) Name() string { return moduleTag }

// Handle implements router.Handler.
func (u *Universal) Handle(ctx context.Context, inv router.Invocation) error {
	res := command.Match(u.registry, inv.Event.Body)
	if !res.Active {
		return nil
	}

	var body string
	switch res.Action {
	case command.ActionHelp:
		body = command.HelpText(moduleName, moduleDesc, u.registry)
	case command.ActionAbout:
		body = u.about()
	case command.ActionVersion:
		body = "<b>" + html.EscapeString(u.bot.Name) + "</b> version is <b>" + html.EscapeString(u.bot.Version) + "</b>"
	case command.ActionStats:
		var err error
		if body, err = u.stats(ctx, inv); err != nil {
			return err
		}
	case command.ActionUptime:
		body = u.uptime()
	default:
		return nil
	}

	room := inv.Event.RoomID
	if err := inv.Emitter.SendText(ctx, channel.Text{RoomID: room, Body: body, Module: moduleTag}); err != nil {
		return fmt.Errorf("universal: %s: %w", res.Action, err)
	}
	inv.Emitter.AddStats(ctx, stats.CounterMsgAction, room, moduleTag, res.Action)
	return nil
}

func (u *Universal) about() string {
	e := html.EscapeString
	return "Let me tell you about <b>" + e(u.bot.Name) + "</b>! <br>" + e(u.bot.Description) +
		" by <b>" + e(u.bot.Author) + "</b><br> Version is <b>" + e(u.bot.Version) +
		"</b><br>Licensed under " + e(u.bot.License)
}

func (u *Universal) stats(ctx context.Context, inv router.Invocation) (string, error) {
	entries, err := inv.Emitter.Stats().Snapshot(ctx, inv.Event.RoomID)
	if err != nil {
		return "", fmt.Errorf("universal: stats snapshot: %w", err)
	}
	var b strings.Builder
	b.WriteString("<b>Room statistics</b>")
	for _, row := range []struct{ label, counter string }{
		{"Messages processed", stats.CounterProcessed},
		{"Messages sent", stats.CounterActivity},
		{"Random events", stats.CounterRandom},
		{"Commands answered", stats.CounterMsgAction},
	} {
		fmt.Fprintf(&b, "<br>%s: <b>%s</b>", row.label, humanize.Comma(stats.Sum(entries, row.counter)))
	}
	return b.String(), nil
}

func (u *Universal) uptime() string {
	now := u.now()
	started := u.started
	if started.IsZero() {
		started = now
	}
	since := strings.TrimSpace(humanize.RelTime(started, now, "", ""))
	return "I've been awake for <b>" + since + "</b> (since " + started.UTC().Format(time.RFC1123) + ")"
}
