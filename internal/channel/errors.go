package channel

import "errors"

// Sentinel errors for channel operations.
var (
	// ErrNoInbox indicates a transport's inbox callback has not been set.
	ErrNoInbox = errors.New("channel: inbox not set")

	// ErrNoRoom indicates a send without a target room.
	ErrNoRoom = errors.New("channel: room id is required")

	// ErrDenied indicates the event was blocked by the allow-list.
	ErrDenied = errors.New("channel: room or sender not allowed")
)
