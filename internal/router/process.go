package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/flemzord/catbot/pkg/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Module tag for sends and counters owned by the sampler.
const randomModule = "random"

// Liveness reply content.
const (
	livenessPrefix = "Meow!"
	livenessText   = "It's me CatBot! 🐱🤖"
)

// DropReason explains why an event was not admitted.
type DropReason string

// Admission drop reasons.
const (
	DropNone      DropReason = ""
	DropSelf      DropReason = "self"
	DropNotText   DropReason = "not_text"
	DropDuplicate DropReason = "duplicate"
)

// Outcome summarizes what Process did with one event.
type Outcome struct {
	Admitted bool
	Dropped  DropReason
	// GateOpen reports whether command handlers were invoked.
	GateOpen bool
	Random   bool
	Liveness bool
}

// Process runs the dispatch steps for one event:
//
//  1. drop the bot's own events
//  2. drop non-text and empty events
//  3. drop events already seen in the dedup window
//  4. count the event as processed
//  5. run every reactor
//  6. if the activation gate is open, run every handler
//  7. roll the sampler
//
// Admission drops are silent and record nothing. Handler and reactor
// errors and panics are logged and never returned.
func (r *Router) Process(ctx context.Context, ev message.InboundEvent) Outcome {
	emitter := r.config.Emitter
	selfID := emitter.SelfID()

	switch {
	case ev.SenderID == selfID:
		return Outcome{Dropped: DropSelf}
	case !ev.IsText():
		r.logger.Debug("router: non-text event ignored", "room", ev.RoomID, "event", ev.EventID, "msgtype", ev.MsgType)
		return Outcome{Dropped: DropNotText}
	case !r.dedup.firstSeen(ev.EventID):
		r.logger.Debug("router: duplicate event ignored", "room", ev.RoomID, "event", ev.EventID)
		return Outcome{Dropped: DropDuplicate}
	}

	ctx, span := r.config.Tracer.Start(ctx, "router.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("matrix.room_id", ev.RoomID),
		attribute.String("matrix.event_id", ev.EventID),
		attribute.Int("matrix.room_members", ev.RoomMemberCount),
	)

	out := Outcome{Admitted: true}
	emitter.AddStats(ctx, stats.CounterProcessed, ev.RoomID, "", "")

	inv := Invocation{Event: ev, Emitter: emitter, SelfID: selfID}
	logger := r.logger.With("room", ev.RoomID, "event", ev.EventID)

	var g errgroup.Group
	g.SetLimit(r.config.HandlerParallelism)

	for _, rc := range r.config.Reactors {
		g.Go(func() error {
			return guard(logger, "reactor", rc.Name(), func() error { return rc.React(ctx, inv) })
		})
	}

	gate := Gate{Prefix: r.config.CommandPrefix, SelfID: selfID}
	if gate.Open(ev) {
		out.GateOpen = true
		for _, h := range r.config.Handlers {
			g.Go(func() error {
				return guard(logger, "handler", h.Name(), func() error { return h.Handle(ctx, inv) })
			})
		}
	}

	out.Random, out.Liveness = r.config.Sampler.Roll()
	if out.Random {
		emitter.AddStats(ctx, stats.CounterRandom, ev.RoomID, randomModule, "")
	}
	if out.Liveness {
		r.sendLiveness(ctx, logger, ev)
	}

	// guard never returns an error; Wait only joins the goroutines.
	_ = g.Wait()

	span.SetAttributes(
		attribute.Bool("catbot.gate_open", out.GateOpen),
		attribute.Bool("catbot.random", out.Random),
	)
	span.SetStatus(codes.Ok, "")
	return out
}

func (r *Router) sendLiveness(ctx context.Context, logger *slog.Logger, ev message.InboundEvent) {
	err := r.config.Emitter.SendText(ctx, channel.Text{
		RoomID:  ev.RoomID,
		Body:    livenessText,
		ReplyTo: ev.EventID,
		Prefix:  channel.PrefixOverride(livenessPrefix),
		Module:  randomModule,
	})
	if err != nil {
		logger.Error("router: liveness reply failed", "error", err)
		return
	}
	r.config.Emitter.AddStats(ctx, stats.CounterMsgAction, ev.RoomID, randomModule, "liveness")
}

// guard runs fn, converting a panic into a logged error. It always returns
// nil so that one failing integration never cancels its siblings.
func guard(logger *slog.Logger, kind, name string, fn func() error) error {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("router: "+kind+" panicked",
				kind, name,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
		}
	}()
	if ferr := fn(); ferr != nil {
		logger.Error("router: "+kind+" failed", kind, name, "error", ferr)
	}
	return nil
}
