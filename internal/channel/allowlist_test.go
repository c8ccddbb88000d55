package channel

import (
	"testing"

	"github.com/flemzord/catbot/pkg/message"
)

func roomEvent(room, sender string) message.InboundEvent {
	return message.InboundEvent{RoomID: room, SenderID: sender}
}

func TestAllowList_NilAllowsAll(t *testing.T) {
	t.Parallel()
	var a *AllowList
	if !a.IsAllowed(roomEvent("!a:hs", "@alice:hs")) {
		t.Error("nil AllowList should allow everyone")
	}
	if !a.AllowsRoom("!a:hs") {
		t.Error("nil AllowList should allow every room")
	}
}

func TestAllowList_EmptyAllowsAll(t *testing.T) {
	t.Parallel()
	a := NewAllowList(nil, nil)
	if !a.IsAllowed(roomEvent("!a:hs", "@alice:hs")) {
		t.Error("empty AllowList should allow everyone")
	}
}

func TestAllowList_Rules(t *testing.T) {
	t.Parallel()
	a := NewAllowList([]string{" !a:hs ", "!b:hs"}, []string{"@otherbot:hs", ""})

	tests := []struct {
		name    string
		room    string
		sender  string
		allowed bool
	}{
		{"allowed room", "!a:hs", "@alice:hs", true},
		{"second room", "!b:hs", "@alice:hs", true},
		{"unknown room", "!c:hs", "@alice:hs", false},
		{"ignored sender", "!a:hs", "@otherbot:hs", false},
		{"ids are case-sensitive", "!A:hs", "@alice:hs", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := a.IsAllowed(roomEvent(tc.room, tc.sender)); got != tc.allowed {
				t.Errorf("IsAllowed(%q, %q) = %v, want %v", tc.room, tc.sender, got, tc.allowed)
			}
		})
	}
}

func TestAllowList_IgnoreOnlyAllowsEveryRoom(t *testing.T) {
	t.Parallel()
	a := NewAllowList(nil, []string{"@otherbot:hs"})
	if !a.IsAllowed(roomEvent("!anything:hs", "@alice:hs")) {
		t.Error("ignore-only list should allow other senders in any room")
	}
	if a.IsAllowed(roomEvent("!anything:hs", "@otherbot:hs")) {
		t.Error("ignored sender should be denied")
	}
}
