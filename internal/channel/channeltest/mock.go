// Package channeltest provides a recording Transport for tests.
package channeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/pkg/message"
	"maunium.net/go/mautrix/event"
)

// Notice is a recorded SendNotice or SendReplyNotice call.
type Notice struct {
	RoomID  string
	ReplyTo string
	Plain   string
	HTML    string
}

// RawEvent is a recorded SendRawEvent call.
type RawEvent struct {
	RoomID    string
	EventType event.Type
	Payload   any
}

// MockTransport is a test double that implements channel.Transport. It
// records sends and lets tests push inbound events via SimulateEvent.
type MockTransport struct {
	mu      sync.Mutex
	selfID  string
	inbox   channel.InboxFunc
	notices []Notice
	raw     []RawEvent
	members map[string][]string
	seq     int

	// SendErr, if set, is returned by every send method.
	SendErr error
	// MembersErr, if set, is returned by JoinedMembers.
	MembersErr error
	// DisplayName is returned by SelfProfile.
	DisplayName string
}

// Compile-time interface guard.
var _ channel.Transport = (*MockTransport)(nil)

// NewMockTransport creates a MockTransport whose own user ID is selfID.
func NewMockTransport(selfID string) *MockTransport {
	return &MockTransport{selfID: selfID, members: make(map[string][]string)}
}

// ModuleInfo implements core.Module.
func (m *MockTransport) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.mock",
		New: func() core.Module { return NewMockTransport(m.selfID) },
	}
}

// SelfID implements channel.Transport.
func (m *MockTransport) SelfID() string { return m.selfID }

// SelfProfile implements channel.Transport.
func (m *MockTransport) SelfProfile(_ context.Context, _ string) (channel.Profile, error) {
	return channel.Profile{DisplayName: m.DisplayName}, nil
}

// SetMembers sets the joined members reported for roomID.
func (m *MockTransport) SetMembers(roomID string, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[roomID] = ids
}

// JoinedMembers implements channel.Transport.
func (m *MockTransport) JoinedMembers(_ context.Context, roomID string) ([]string, error) {
	if m.MembersErr != nil {
		return nil, m.MembersErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.members[roomID]...), nil
}

// SendNotice implements channel.Transport.
func (m *MockTransport) SendNotice(_ context.Context, roomID, html string) (string, error) {
	return m.recordNotice(Notice{RoomID: roomID, HTML: html})
}

// SendReplyNotice implements channel.Transport.
func (m *MockTransport) SendReplyNotice(_ context.Context, roomID, replyTo, plain, html string) (string, error) {
	return m.recordNotice(Notice{RoomID: roomID, ReplyTo: replyTo, Plain: plain, HTML: html})
}

// SendRawEvent implements channel.Transport.
func (m *MockTransport) SendRawEvent(_ context.Context, roomID string, eventType event.Type, payload any) (string, error) {
	if m.SendErr != nil {
		return "", m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append(m.raw, RawEvent{RoomID: roomID, EventType: eventType, Payload: payload})
	return m.nextID(), nil
}

// SetInbox implements channel.Transport.
func (m *MockTransport) SetInbox(fn channel.InboxFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateEvent pushes ev into the inbox. It returns channel.ErrNoInbox if
// SetInbox has not been called.
func (m *MockTransport) SimulateEvent(ev message.InboundEvent) error {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()
	if inbox == nil {
		return channel.ErrNoInbox
	}
	return inbox(ev)
}

// Notices returns a copy of all recorded notices, replies included.
func (m *MockTransport) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notice(nil), m.notices...)
}

// RawEvents returns a copy of all recorded raw events.
func (m *MockTransport) RawEvents() []RawEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RawEvent(nil), m.raw...)
}

// Reset clears recorded sends.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = nil
	m.raw = nil
}

func (m *MockTransport) recordNotice(n Notice) (string, error) {
	if m.SendErr != nil {
		return "", m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
	return m.nextID(), nil
}

// nextID must be called with mu held.
func (m *MockTransport) nextID() string {
	m.seq++
	return fmt.Sprintf("$mock%d", m.seq)
}
