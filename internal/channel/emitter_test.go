package channel_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/channel/channeltest"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/flemzord/catbot/internal/stats/statstest"
	"maunium.net/go/mautrix/event"
)

func newEmitter(t *testing.T) (*channel.Emitter, *channeltest.MockTransport, *statstest.MockStore) {
	t.Helper()
	tr := channeltest.NewMockTransport("@cat:hs")
	st := statstest.NewMockStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return channel.NewEmitter(tr, st, logger), tr, st
}

func TestPrefix_Apply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		prefix channel.Prefix
		want   string
	}{
		{"unset", channel.Prefix{}, "meow! hi"},
		{"absent", channel.PrefixAbsent, "🐱 hi"},
		{"override", channel.PrefixOverride("Meow!"), "Meow! hi"},
		{"empty override", channel.PrefixOverride(""), " hi"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.prefix.Apply("hi"); got != tc.want {
				t.Errorf("Apply() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"<b>bold</b> text", "bold text"},
		{"a<br>b", "ab"},
		{"no tags", "no tags"},
		{"1 < 2 > 0", "1  0"},
		{"unclosed <b", "unclosed <b"},
	}
	for _, tc := range tests {
		if got := channel.StripTags(tc.in); got != tc.want {
			t.Errorf("StripTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEmitter_SendTextNotice(t *testing.T) {
	t.Parallel()
	e, tr, st := newEmitter(t)

	err := e.SendText(context.Background(), channel.Text{RoomID: "!r", Body: "<b>hi</b>", Module: "universal"})
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}

	notices := tr.Notices()
	if len(notices) != 1 {
		t.Fatalf("len(notices) = %d, want 1", len(notices))
	}
	if notices[0].HTML != "meow! <b>hi</b>" || notices[0].ReplyTo != "" {
		t.Errorf("notice = %+v", notices[0])
	}
	key := stats.Key{Counter: stats.CounterActivity, Room: "!r", Module: "universal", Sub: channel.SendKindMsg}
	if got := st.Get(key); got != 1 {
		t.Errorf("totalActivity[sendMsg] = %d, want 1", got)
	}
}

func TestEmitter_SendTextReply(t *testing.T) {
	t.Parallel()
	e, tr, st := newEmitter(t)

	err := e.SendText(context.Background(), channel.Text{
		RoomID:  "!r",
		Body:    "It's <i>me</i>",
		ReplyTo: "$ev",
		Prefix:  channel.PrefixOverride("Meow!"),
		Module:  "random",
	})
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}

	n := tr.Notices()[0]
	if n.ReplyTo != "$ev" {
		t.Errorf("ReplyTo = %q, want $ev", n.ReplyTo)
	}
	if n.HTML != "Meow! It's <i>me</i>" || n.Plain != "Meow! It's me" {
		t.Errorf("reply = %+v", n)
	}
	key := stats.Key{Counter: stats.CounterActivity, Room: "!r", Module: "random", Sub: channel.SendKindReply}
	if got := st.Get(key); got != 1 {
		t.Errorf("totalActivity[sendReply] = %d, want 1", got)
	}
}

func TestEmitter_SendTextFailureCountsNothing(t *testing.T) {
	t.Parallel()
	e, tr, st := newEmitter(t)
	tr.SendErr = errors.New("homeserver down")

	err := e.SendText(context.Background(), channel.Text{RoomID: "!r", Body: "x"})
	if err == nil || !errors.Is(err, tr.SendErr) {
		t.Fatalf("SendText() error = %v, want wrapped SendErr", err)
	}
	if n := len(st.Adds()); n != 0 {
		t.Errorf("stats adds = %d, want 0", n)
	}
}

func TestEmitter_SendTextRequiresRoom(t *testing.T) {
	t.Parallel()
	e, _, _ := newEmitter(t)
	if err := e.SendText(context.Background(), channel.Text{Body: "x"}); !errors.Is(err, channel.ErrNoRoom) {
		t.Errorf("SendText() error = %v, want ErrNoRoom", err)
	}
}

func TestEmitter_SendReaction(t *testing.T) {
	t.Parallel()
	e, tr, st := newEmitter(t)

	e.SendReaction(context.Background(), "!r", "$ev", "🐱", "reacts")

	raw := tr.RawEvents()
	if len(raw) != 1 || raw[0].EventType != event.EventReaction {
		t.Fatalf("raw events = %+v", raw)
	}
	content, ok := raw[0].Payload.(*event.ReactionEventContent)
	if !ok {
		t.Fatalf("payload type = %T", raw[0].Payload)
	}
	if content.RelatesTo.EventID != "$ev" || content.RelatesTo.Key != "🐱" {
		t.Errorf("relates_to = %+v", content.RelatesTo)
	}
	key := stats.Key{Counter: stats.CounterActivity, Room: "!r", Module: "reacts", Sub: channel.SendKindEmote}
	if got := st.Get(key); got != 1 {
		t.Errorf("totalActivity[sendEmote] = %d, want 1", got)
	}
}

func TestEmitter_SendReactionFailureSwallowed(t *testing.T) {
	t.Parallel()
	e, tr, st := newEmitter(t)
	tr.SendErr = errors.New("forbidden")

	e.SendReaction(context.Background(), "!r", "$ev", "🐱", "reacts")

	if n := len(st.Adds()); n != 0 {
		t.Errorf("stats adds = %d, want 0", n)
	}
}

func TestEmitter_RoomMembers(t *testing.T) {
	t.Parallel()
	e, tr, _ := newEmitter(t)
	tr.SetMembers("!dm", "@cat:hs", "@alice:hs")

	m, err := e.RoomMembers(context.Background(), "!dm")
	if err != nil {
		t.Fatalf("RoomMembers() error: %v", err)
	}
	if m.Count != 2 || len(m.IDs) != 2 {
		t.Errorf("Members = %+v, want 2", m)
	}

	tr.MembersErr = errors.New("not joined")
	if _, err := e.RoomMembers(context.Background(), "!dm"); err == nil {
		t.Error("expected error")
	}
}

func TestEmitter_AddStatsLogsStoreFailure(t *testing.T) {
	t.Parallel()
	e, _, st := newEmitter(t)
	st.AddFunc = func(context.Context, stats.Key, int64) error { return errors.New("disk full") }

	// Must not panic or propagate.
	e.AddStats(context.Background(), "custom", "!r", "weather", "lookup")
	if len(st.Adds()) != 0 {
		t.Error("failed add should not be recorded")
	}
}
