package router

import (
	"strings"

	"github.com/flemzord/catbot/pkg/message"
)

// DefaultCommandPrefix is the literal that addresses the bot explicitly.
const DefaultCommandPrefix = "!meow"

// directRoomSize is the member count of a one-to-one room.
const directRoomSize = 2

// Gate decides whether an event is addressed to the bot. Any one of the
// heuristics suffices.
type Gate struct {
	Prefix string
	SelfID string
}

// Open reports whether ev should reach the command handlers:
//   - body starts with the command prefix, or
//   - the mention set includes the bot, or
//   - the room is a one-to-one room, or
//   - the formatted body links to the bot via matrix.to.
func (g Gate) Open(ev message.InboundEvent) bool {
	if g.Prefix != "" && strings.HasPrefix(ev.Body, g.Prefix) {
		return true
	}
	if ev.Mentions(g.SelfID) {
		return true
	}
	if ev.RoomMemberCount == directRoomSize {
		return true
	}
	return g.SelfID != "" && strings.Contains(ev.FormattedBody, "matrix.to/#/"+g.SelfID)
}
