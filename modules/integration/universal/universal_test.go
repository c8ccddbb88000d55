package universal

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/channel/channeltest"
	"github.com/flemzord/catbot/internal/command"
	"github.com/flemzord/catbot/internal/config"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/router"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/flemzord/catbot/pkg/message"
)

type fixture struct {
	u         *Universal
	transport *channeltest.MockTransport
	store     *stats.MemoryStore
	emitter   *channel.Emitter
}

func newFixture(t *testing.T, scope command.Scope) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := core.NewAppContext(logger, t.TempDir())
	appCtx.RegisterService(config.BotServiceName, &config.BotConfig{
		Name: "catBot", Description: "A <cat> bot", Author: "Whiskers", Version: "2.1.0", License: "MIT",
	})

	u := &Universal{config: Config{Scope: scope}}
	if err := u.Provision(appCtx); err != nil {
		t.Fatalf("Provision() error: %v", err)
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	transport := channeltest.NewMockTransport("@cat:hs")
	store := stats.NewMemoryStore()
	return &fixture{u: u, transport: transport, store: store, emitter: channel.NewEmitter(transport, store, logger)}
}

func (f *fixture) handle(t *testing.T, body string) []channeltest.Notice {
	t.Helper()
	inv := router.Invocation{
		Event:   message.InboundEvent{RoomID: "!r:hs", EventID: "$e", SenderID: "@alice:hs", MsgType: message.MsgTypeText, Body: body},
		Emitter: f.emitter,
		SelfID:  "@cat:hs",
	}
	if err := f.u.Handle(context.Background(), inv); err != nil {
		t.Fatalf("Handle(%q) error: %v", body, err)
	}
	return f.transport.Notices()
}

func TestHandle_About(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeBase)
	notices := f.handle(t, "!meow about")
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	want := "meow! Let me tell you about <b>catBot</b>! <br>A &lt;cat&gt; bot by <b>Whiskers</b><br> Version is <b>2.1.0</b><br>Licensed under MIT"
	if notices[0].HTML != want {
		t.Errorf("HTML = %q\nwant   %q", notices[0].HTML, want)
	}
	if notices[0].ReplyTo != "" {
		t.Error("about should be a standalone notice")
	}
	if got := f.store.Get(stats.Key{Counter: stats.CounterMsgAction, Room: "!r:hs", Module: moduleTag, Sub: command.ActionAbout}); got != 1 {
		t.Errorf("msgAction = %d, want 1", got)
	}
}

func TestHandle_Version(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeBase)
	notices := f.handle(t, "what VERSION are you")
	if len(notices) != 1 || notices[0].HTML != "meow! <b>catBot</b> version is <b>2.1.0</b>" {
		t.Errorf("notices = %+v", notices)
	}
}

func TestHandle_Help(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeBase)
	notices := f.handle(t, "!meow help")
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	html := notices[0].HTML
	if !strings.Contains(html, "<b>General Functions</b> - General Built in functions") {
		t.Errorf("help missing header: %q", html)
	}
	if strings.Contains(html, "uptime") {
		t.Errorf("base help should not list admin commands: %q", html)
	}
}

func TestHandle_NoMatchIsNoop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeAdmin)
	for _, body := range []string{"!meow", "hello there", "!meow HELP", "Uptime"} {
		if notices := f.handle(t, body); len(notices) != 0 {
			t.Errorf("Handle(%q) sent %d notices, want 0", body, len(notices))
		}
	}
}

func TestHandle_AdminCommandsRequireAdminScope(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeBase)
	if notices := f.handle(t, "!meow stats"); len(notices) != 0 {
		t.Errorf("base scope answered stats: %+v", notices)
	}
}

func TestHandle_Stats(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeAdmin)
	ctx := context.Background()
	_ = f.store.Add(ctx, stats.Key{Counter: stats.CounterProcessed, Room: "!r:hs"}, 1234)
	_ = f.store.Add(ctx, stats.Key{Counter: stats.CounterProcessed, Room: "!other:hs"}, 99)

	notices := f.handle(t, "!meow stats")
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	if !strings.Contains(notices[0].HTML, "Messages processed: <b>1,234</b>") {
		t.Errorf("HTML = %q, want room-scoped processed count", notices[0].HTML)
	}
}

func TestHandle_Uptime(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeAdmin)
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.u.now = func() time.Time { return start }
	if err := f.u.Start(); err != nil {
		t.Fatal(err)
	}
	f.u.now = func() time.Time { return start.Add(3 * time.Hour) }

	notices := f.handle(t, "!meow uptime")
	if len(notices) != 1 || !strings.Contains(notices[0].HTML, "awake for <b>3 hours</b>") {
		t.Errorf("notices = %+v", notices)
	}
}

func TestHandle_SendFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, command.ScopeBase)
	f.transport.SendErr = io.ErrClosedPipe
	inv := router.Invocation{
		Event:   message.InboundEvent{RoomID: "!r:hs", MsgType: message.MsgTypeText, Body: "about"},
		Emitter: f.emitter,
	}
	if err := f.u.Handle(context.Background(), inv); err == nil {
		t.Error("Handle() should return the send error")
	}
	if got := f.store.Get(stats.Key{Counter: stats.CounterMsgAction, Room: "!r:hs", Module: moduleTag, Sub: command.ActionAbout}); got != 0 {
		t.Errorf("msgAction = %d after failed send, want 0", got)
	}
}

func TestValidate_Scope(t *testing.T) {
	t.Parallel()
	u := &Universal{config: Config{Scope: "root"}}
	if err := u.Validate(); err == nil {
		t.Error("Validate() should reject unknown scope")
	}
}
