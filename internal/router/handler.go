package router

import (
	"context"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/pkg/message"
)

// Invocation is everything a handler sees for one admitted event.
type Invocation struct {
	Event   message.InboundEvent
	Emitter *channel.Emitter
	SelfID  string
}

// Handler is a command integration. Handlers run only when the activation
// gate is open; each re-runs the trigger matcher against its own registry
// and does nothing on no match.
type Handler interface {
	Name() string
	Handle(ctx context.Context, inv Invocation) error
}

// Reactor is a reactive behavior that runs on every admitted event,
// regardless of the activation gate.
type Reactor interface {
	Name() string
	React(ctx context.Context, inv Invocation) error
}

// Optional is implemented by integrations that may be disabled by
// configuration or environment. It is consulted once at wiring time.
type Optional interface {
	Enabled() bool
}

// Active filters handlers down to those that are not disabled.
func Active[T any](items []T) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if opt, ok := any(it).(Optional); ok && !opt.Enabled() {
			continue
		}
		out = append(out, it)
	}
	return out
}
