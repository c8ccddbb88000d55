// Package message defines the data contract between the Matrix transport
// and the dispatch router: the normalized InboundEvent the router consumes,
// built once from a mautrix event, and the outbound payloads (notices,
// reactions) the emitter produces.
package message

import "maunium.net/go/mautrix/event"

// MsgTypeText is the only message type the router dispatches on.
const MsgTypeText = string(event.MsgText)

// MentionNone is the sentinel stored in InboundEvent.MentionedIDs when the
// event carries no m.mentions block.
const MentionNone = "none"
