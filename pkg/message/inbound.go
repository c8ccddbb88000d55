package message

import (
	"errors"
	"fmt"
	"slices"
	"time"
	"maunium.net/go/mautrix/event"
)

// Parse errors. They mark events that are dropped at the transport seam;
// none of them is an operator-visible failure.
var (
	ErrNotMessage = errors.New("message: not an m.room.message event")
	ErrRedacted   = errors.New("message: event has no content (redacted)")
	ErrEdit       = errors.New("message: event is an edit")
)

// InboundEvent is a normalized room message, constructed once per inbound
// transport callback and discarded after dispatch.
type InboundEvent struct {
	RoomID          string    `json:"room_id"`
	EventID         string    `json:"event_id"`
	SenderID        string    `json:"sender"`
	MsgType         string    `json:"msgtype"`
	Body            string    `json:"body"`
	FormattedBody   string    `json:"formatted_body,omitempty"`
	MentionedIDs    []string  `json:"mentioned_ids"`
	RoomMemberCount int       `json:"room_member_count"`
	Timestamp       time.Time `json:"timestamp"`
}

// IsText reports whether the event is a plain-text message with a body.
func (e InboundEvent) IsText() bool {
	return e.MsgType == MsgTypeText && e.Body != ""
}

// Mentions reports whether id appears in the event's mention set.
func (e InboundEvent) Mentions(id string) bool {
	return id != "" && slices.Contains(e.MentionedIDs, id)
}

// ParseEvent converts a timeline event into an InboundEvent. Structural
// problems (wrong event type, redacted content, edits, undecodable content)
// are reported as errors. A non-text message is not an error here: the
// router's admission filter drops those.
//
// The formatted body is kept whatever its declared format, so the
// matrix.to self-link check also sees bodies from clients that omit
// "format".
func ParseEvent(evt *event.Event) (InboundEvent, error) {
	if evt == nil || evt.Type != event.EventMessage {
		var typ string
		if evt != nil {
			typ = evt.Type.Type
		}
		return InboundEvent{}, fmt.Errorf("%w: %s", ErrNotMessage, typ)
	}
	if evt.Unsigned.RedactedBecause != nil {
		return InboundEvent{}, ErrRedacted
	}
	if evt.Content.Parsed == nil {
		if len(evt.Content.VeryRaw) == 0 {
			return InboundEvent{}, ErrRedacted
		}
		if err := evt.Content.ParseRaw(evt.Type); err != nil {
			return InboundEvent{}, fmt.Errorf("message: decode content of %s: %w", evt.ID, err)
		}
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return InboundEvent{}, fmt.Errorf("%w: unexpected content %T", ErrNotMessage, evt.Content.Parsed)
	}
	if content.MsgType == "" && content.Body == "" {
		return InboundEvent{}, ErrRedacted
	}
	if content.RelatesTo != nil && content.RelatesTo.Type == event.RelReplace {
		return InboundEvent{}, ErrEdit
	}

	mentioned := []string{MentionNone}
	if content.Mentions != nil && len(content.Mentions.UserIDs) > 0 {
		mentioned = make([]string, 0, len(content.Mentions.UserIDs))
		for _, uid := range content.Mentions.UserIDs {
			mentioned = append(mentioned, string(uid))
		}
	}

	return InboundEvent{
		RoomID:        string(evt.RoomID),
		EventID:       string(evt.ID),
		SenderID:      string(evt.Sender),
		MsgType:       string(content.MsgType),
		Body:          content.Body,
		FormattedBody: content.FormattedBody,
		MentionedIDs:  mentioned,
		Timestamp:     time.UnixMilli(evt.Timestamp),
	}, nil
}
