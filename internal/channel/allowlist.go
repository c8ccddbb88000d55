package channel

import (
	"strings"

	"github.com/flemzord/catbot/pkg/message"
)

// AllowList restricts which rooms and senders reach the router. An empty
// room set admits every room the bot is in; ignored users are always
// dropped (typically other bots).
type AllowList struct {
	rooms   map[string]struct{}
	ignored map[string]struct{}
}

// NewAllowList creates an AllowList with O(1) lookups. Entries are trimmed
// at construction time. Matrix IDs are case-sensitive and kept as is.
func NewAllowList(rooms, ignoredUsers []string) *AllowList {
	a := &AllowList{
		rooms:   make(map[string]struct{}, len(rooms)),
		ignored: make(map[string]struct{}, len(ignoredUsers)),
	}
	for _, r := range rooms {
		if r = strings.TrimSpace(r); r != "" {
			a.rooms[r] = struct{}{}
		}
	}
	for _, u := range ignoredUsers {
		if u = strings.TrimSpace(u); u != "" {
			a.ignored[u] = struct{}{}
		}
	}
	return a
}

// AllowsRoom reports whether roomID may be joined and served.
// A nil AllowList allows every room.
func (a *AllowList) AllowsRoom(roomID string) bool {
	if a == nil || len(a.rooms) == 0 {
		return true
	}
	_, ok := a.rooms[roomID]
	return ok
}

// IsAllowed reports whether ev should be delivered.
//
// Rules:
//   - Sender on the ignore list → deny.
//   - Room set non-empty and room not in it → deny.
//   - Otherwise → allow.
func (a *AllowList) IsAllowed(ev message.InboundEvent) bool {
	if a == nil {
		return true
	}
	if _, ok := a.ignored[ev.SenderID]; ok {
		return false
	}
	return a.AllowsRoom(ev.RoomID)
}
