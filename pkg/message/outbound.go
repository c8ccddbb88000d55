package message

import (
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// NewHTMLNotice builds an m.notice whose plain body is plain and whose rich
// rendering is html.
func NewHTMLNotice(plain, html string) *event.MessageEventContent {
	return &event.MessageEventContent{
		MsgType:       event.MsgNotice,
		Body:          plain,
		Format:        event.FormatHTML,
		FormattedBody: html,
	}
}

// NewReplyNotice builds an HTML notice threaded as a reply to replyTo.
func NewReplyNotice(replyTo, plain, html string) *event.MessageEventContent {
	content := NewHTMLNotice(plain, html)
	content.RelatesTo = &event.RelatesTo{
		InReplyTo: &event.InReplyTo{EventID: id.EventID(replyTo)},
	}
	return content
}

// NewReaction builds an annotation of eventID with key (usually an emoji).
func NewReaction(eventID, key string) *event.ReactionEventContent {
	return &event.ReactionEventContent{
		RelatesTo: event.RelatesTo{
			Type:    event.RelAnnotation,
			EventID: id.EventID(eventID),
			Key:     key,
		},
	}
}
