// Package channel defines the bridge between the Matrix transport and the
// dispatch engine: the narrow Transport interface a connection exposes, and
// the Emitter that formats replies and reactions, sends them, and records
// activity counters.
package channel

import (
	"context"

	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/pkg/message"
	"maunium.net/go/mautrix/event"
)

// Profile is the public profile of a user.
type Profile struct {
	DisplayName string `json:"displayname"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// InboxFunc receives every parsed inbound message event.
type InboxFunc func(ev message.InboundEvent) error

// Transport is a live connection to a chat homeserver.
//
// A transport receives events from its sync stream, parses them once into
// message.InboundEvent, and pushes them to the router via the inbox
// callback. Outbound sends return the created event ID.
type Transport interface {
	core.Module

	// SelfID returns the bot's own user ID. It is valid after Start.
	SelfID() string

	// SelfProfile fetches the profile of userID.
	SelfProfile(ctx context.Context, userID string) (Profile, error)

	// JoinedMembers returns the user IDs currently joined to roomID.
	JoinedMembers(ctx context.Context, roomID string) ([]string, error)

	// SendNotice sends a standalone HTML notice.
	SendNotice(ctx context.Context, roomID, html string) (string, error)

	// SendReplyNotice sends an HTML notice threaded as a reply to replyTo,
	// with plain as the text fallback.
	SendReplyNotice(ctx context.Context, roomID, replyTo, plain, html string) (string, error)

	// SendRawEvent sends an arbitrary room event; content is usually one of
	// the mautrix event content structs.
	SendRawEvent(ctx context.Context, roomID string, eventType event.Type, content any) (string, error)

	// SetInbox gives the transport a function to push inbound events to
	// the router. It is called during wiring, before Start.
	SetInbox(fn InboxFunc)
}
