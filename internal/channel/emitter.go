package channel

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/flemzord/catbot/internal/stats"
	"github.com/flemzord/catbot/pkg/message"
	"maunium.net/go/mautrix/event"
)

// Send kinds recorded as the sub key of the totalActivity counter.
const (
	SendKindMsg   = "sendMsg"
	SendKindReply = "sendReply"
	SendKindEmote = "sendEmote"
)

const (
	defaultPrefix = "meow!"
	absentPrefix  = "🐱"
)

type prefixMode int

const (
	prefixUnset prefixMode = iota
	prefixAbsent
	prefixOverride
)

// Prefix selects the lead-in prepended to outbound text. The zero value is
// the plain "meow!" prefix.
type Prefix struct {
	mode prefixMode
	text string
}

// PrefixAbsent replaces the default lead-in with a cat emoji.
var PrefixAbsent = Prefix{mode: prefixAbsent}

// PrefixOverride replaces the default lead-in with s.
func PrefixOverride(s string) Prefix {
	return Prefix{mode: prefixOverride, text: s}
}

// Apply prepends the lead-in to text.
func (p Prefix) Apply(text string) string {
	switch p.mode {
	case prefixOverride:
		return p.text + " " + text
	case prefixAbsent:
		return absentPrefix + " " + text
	default:
		return defaultPrefix + " " + text
	}
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripTags removes anything between angle brackets. It is a plain-text
// fallback generator, not an HTML sanitizer.
func StripTags(html string) string {
	return tagPattern.ReplaceAllString(html, "")
}

// Text is one outbound text message.
type Text struct {
	RoomID string
	// Body is HTML.
	Body string
	// ReplyTo, when set, threads the message as a reply to that event.
	ReplyTo string
	Prefix  Prefix
	// Module tags the send for activity accounting.
	Module string
}

// Members is the joined membership of a room.
type Members struct {
	IDs   []string
	Count int
}

// Emitter formats and sends replies and reactions through a Transport and
// records a totalActivity counter for every successful send. It is safe
// for concurrent use.
type Emitter struct {
	transport Transport
	stats     stats.Store
	logger    *slog.Logger
}

// NewEmitter creates an Emitter. A nil store records into a fresh
// in-memory store.
func NewEmitter(t Transport, s stats.Store, logger *slog.Logger) *Emitter {
	if s == nil {
		s = stats.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{transport: t, stats: s, logger: logger}
}

// SelfID returns the bot's own user ID.
func (e *Emitter) SelfID() string {
	return e.transport.SelfID()
}

// SelfProfile returns the bot's own profile.
func (e *Emitter) SelfProfile(ctx context.Context) (Profile, error) {
	return e.transport.SelfProfile(ctx, e.transport.SelfID())
}

// SendText sends t as an HTML notice, or as a threaded reply when
// t.ReplyTo is set. Replies carry a plain fallback with tags stripped.
// Errors are returned for the caller to log; nothing is counted on failure.
func (e *Emitter) SendText(ctx context.Context, t Text) error {
	if t.RoomID == "" {
		return ErrNoRoom
	}
	html := t.Prefix.Apply(t.Body)

	kind := SendKindMsg
	var err error
	if t.ReplyTo == "" {
		_, err = e.transport.SendNotice(ctx, t.RoomID, html)
	} else {
		kind = SendKindReply
		_, err = e.transport.SendReplyNotice(ctx, t.RoomID, t.ReplyTo, StripTags(html), html)
	}
	if err != nil {
		return fmt.Errorf("channel: %s to %s: %w", kind, t.RoomID, err)
	}

	e.AddStats(ctx, stats.CounterActivity, t.RoomID, t.Module, kind)
	return nil
}

// SendReaction annotates eventID with emoji. Failures are logged and
// swallowed so a missing reaction never interrupts dispatch.
func (e *Emitter) SendReaction(ctx context.Context, roomID, eventID, emoji, module string) {
	_, err := e.transport.SendRawEvent(ctx, roomID, event.EventReaction, message.NewReaction(eventID, emoji))
	if err != nil {
		e.logger.Error("reaction send failed",
			"room", roomID,
			"event", eventID,
			"emoji", emoji,
			"module", module,
			"error", err,
		)
		return
	}
	e.AddStats(ctx, stats.CounterActivity, roomID, module, SendKindEmote)
}

// RoomMembers returns the joined members of roomID.
func (e *Emitter) RoomMembers(ctx context.Context, roomID string) (Members, error) {
	ids, err := e.transport.JoinedMembers(ctx, roomID)
	if err != nil {
		return Members{}, fmt.Errorf("channel: joined members of %s: %w", roomID, err)
	}
	return Members{IDs: ids, Count: len(ids)}, nil
}

// AddStats increments a counter by one. Store failures are logged.
func (e *Emitter) AddStats(ctx context.Context, counter, roomID, module, sub string) {
	key := stats.Key{Counter: counter, Room: roomID, Module: module, Sub: sub}
	if err := e.stats.Add(ctx, key, 1); err != nil {
		e.logger.Warn("stats increment failed",
			"counter", counter,
			"room", roomID,
			"module", module,
			"error", err,
		)
	}
}

// Stats returns the counter store the emitter records into.
func (e *Emitter) Stats() stats.Store {
	return e.stats
}
