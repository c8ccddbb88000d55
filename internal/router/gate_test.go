package router

import (
	"testing"

	"github.com/flemzord/catbot/pkg/message"
)

func TestGate_Open(t *testing.T) {
	t.Parallel()
	g := Gate{Prefix: DefaultCommandPrefix, SelfID: "@cat:hs"}
	none := []string{message.MentionNone}

	tests := []struct {
		name string
		ev   message.InboundEvent
		want bool
	}{
		{"prefix", message.InboundEvent{Body: "!meow about", MentionedIDs: none, RoomMemberCount: 5}, true},
		{"prefix not leading", message.InboundEvent{Body: "say !meow", MentionedIDs: none, RoomMemberCount: 5}, false},
		{"mention", message.InboundEvent{Body: "hey", MentionedIDs: []string{"@cat:hs"}, RoomMemberCount: 5}, true},
		{"other mention", message.InboundEvent{Body: "hey", MentionedIDs: []string{"@dog:hs"}, RoomMemberCount: 5}, false},
		{"direct room", message.InboundEvent{Body: "help", MentionedIDs: none, RoomMemberCount: 2}, true},
		{"three members", message.InboundEvent{Body: "help", MentionedIDs: none, RoomMemberCount: 3}, false},
		{"unknown member count", message.InboundEvent{Body: "help", MentionedIDs: none}, false},
		{
			"matrix.to link",
			message.InboundEvent{
				Body:            "cat: help",
				FormattedBody:   `<a href="https://matrix.to/#/@cat:hs">cat</a>: help`,
				MentionedIDs:    none,
				RoomMemberCount: 5,
			},
			true,
		},
		{"plain hello", message.InboundEvent{Body: "hello", MentionedIDs: none, RoomMemberCount: 5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := g.Open(tc.ev); got != tc.want {
				t.Errorf("Open() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGate_EmptySelfIDNeverMatchesLink(t *testing.T) {
	t.Parallel()
	g := Gate{Prefix: "!meow"}
	ev := message.InboundEvent{Body: "x", FormattedBody: "https://matrix.to/#/", RoomMemberCount: 5}
	if g.Open(ev) {
		t.Error("empty self id must not open the gate")
	}
}
