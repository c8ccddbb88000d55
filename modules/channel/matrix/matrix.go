package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/security"
	"github.com/flemzord/catbot/pkg/message"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// maxRetries bounds mautrix's own retries of a failed non-sync request.
const maxRetries = 3

func init() {
	core.RegisterModule(&Matrix{})
}

// Compile-time interface guards.
var (
	_ channel.Transport = (*Matrix)(nil)
	_ core.Configurable = (*Matrix)(nil)
	_ core.Provisioner  = (*Matrix)(nil)
	_ core.Validator    = (*Matrix)(nil)
	_ core.Starter      = (*Matrix)(nil)
	_ core.Stopper      = (*Matrix)(nil)
)

// Matrix implements channel.Transport over the Matrix client-server API,
// using a mautrix client for requests and the sync loop. Outbound events
// are throttled by a token-bucket limiter.
type Matrix struct {
	config    Config
	client    *mautrix.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	allowList *channel.AllowList
	tokens    *tokenStore
	inbox     channel.InboxFunc
	syncer    *syncer
}

// ModuleInfo implements core.Module.
func (m *Matrix) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.matrix",
		New: func() core.Module { return &Matrix{} },
	}
}

// Configure implements core.Configurable.
func (m *Matrix) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("matrix: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Matrix) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	limit := rate.Inf
	if m.config.SendRate > 0 {
		limit = rate.Limit(m.config.SendRate)
	}
	m.limiter = rate.NewLimiter(limit, m.config.SendBurst)

	client, err := mautrix.NewClient(m.config.Homeserver, id.UserID(m.config.UserID), m.config.AccessToken)
	if err != nil {
		return fmt.Errorf("matrix: create client: %w", err)
	}
	client.DefaultHTTPRetries = maxRetries
	m.client = client
	m.allowList = channel.NewAllowList(m.config.Rooms, m.config.IgnoreUsers)

	if m.config.SyncTokenFile == "" && ctx.DataDir != "" {
		m.config.SyncTokenFile = filepath.Join(ctx.DataDir, "matrix", defaultTokenFile)
	}
	m.tokens = newTokenStore(m.config.SyncTokenFile, m.logger)

	if svc, ok := ctx.Service(security.ServiceName); ok {
		if r, ok := svc.(*security.Redactor); ok {
			r.AddLiteral(m.config.AccessToken)
		}
	}
	return nil
}

// Validate implements core.Validator.
func (m *Matrix) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter. It authenticates the token, then starts
// the sync loop.
func (m *Matrix) Start() error {
	if m.inbox == nil {
		return fmt.Errorf("%w: call SetInbox before Start", channel.ErrNoInbox)
	}

	filter, err := m.config.syncFilter()
	if err != nil {
		return err
	}

	who, err := m.client.Whoami(context.Background())
	if err != nil {
		return fmt.Errorf("matrix: whoami failed (check access_token): %w", err)
	}
	if m.config.UserID != "" && id.UserID(m.config.UserID) != who.UserID {
		return fmt.Errorf("matrix: access_token belongs to %s, not configured user_id %s", who.UserID, m.config.UserID)
	}
	m.client.UserID = who.UserID
	m.client.DeviceID = who.DeviceID
	m.logger.Info("matrix account authenticated",
		"user_id", who.UserID,
		"device_id", who.DeviceID,
		"homeserver", m.config.Homeserver,
	)

	m.syncer = newSyncer(m.client, m.tokens, m.inbox, m.allowList, m.logger, m.config.autoJoin(), filter)
	m.syncer.Start()
	m.logger.Info("matrix sync started",
		"auto_join", m.config.autoJoin(),
		"rooms", len(m.config.Rooms),
	)
	return nil
}

// Stop implements core.Stopper.
func (m *Matrix) Stop(_ context.Context) error {
	m.logger.Info("matrix channel stopping")
	if m.syncer != nil {
		m.syncer.Stop()
	}
	return nil
}

// SetInbox implements channel.Transport.
func (m *Matrix) SetInbox(fn channel.InboxFunc) {
	m.inbox = fn
}

// SelfID implements channel.Transport. Before Start it is the configured
// user_id.
func (m *Matrix) SelfID() string {
	if m.client == nil {
		return m.config.UserID
	}
	return m.client.UserID.String()
}

// SelfProfile implements channel.Transport.
func (m *Matrix) SelfProfile(ctx context.Context, userID string) (channel.Profile, error) {
	resp, err := m.client.GetProfile(ctx, id.UserID(userID))
	if err != nil {
		return channel.Profile{}, fmt.Errorf("matrix: profile of %s: %w", userID, err)
	}
	return channel.Profile{DisplayName: resp.DisplayName, AvatarURL: resp.AvatarURL.String()}, nil
}

// JoinedMembers implements channel.Transport.
func (m *Matrix) JoinedMembers(ctx context.Context, roomID string) ([]string, error) {
	resp, err := m.client.JoinedMembers(ctx, id.RoomID(roomID))
	if err != nil {
		return nil, fmt.Errorf("matrix: joined members of %s: %w", roomID, err)
	}
	ids := make([]string, 0, len(resp.Joined))
	for uid := range resp.Joined {
		ids = append(ids, uid.String())
	}
	return ids, nil
}

// SendNotice implements channel.Transport.
func (m *Matrix) SendNotice(ctx context.Context, roomID, html string) (string, error) {
	return m.send(ctx, roomID, event.EventMessage, message.NewHTMLNotice(channel.StripTags(html), html))
}

// SendReplyNotice implements channel.Transport.
func (m *Matrix) SendReplyNotice(ctx context.Context, roomID, replyTo, plain, html string) (string, error) {
	if replyTo == "" {
		return "", errors.New("matrix: reply target event id is required")
	}
	return m.send(ctx, roomID, event.EventMessage, message.NewReplyNotice(replyTo, plain, html))
}

// SendRawEvent implements channel.Transport.
func (m *Matrix) SendRawEvent(ctx context.Context, roomID string, eventType event.Type, content any) (string, error) {
	return m.send(ctx, roomID, eventType, content)
}

// send waits for the limiter, then sends one room event with a fresh
// transaction ID.
func (m *Matrix) send(ctx context.Context, roomID string, eventType event.Type, content any) (string, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("matrix: send throttled: %w", err)
	}
	resp, err := m.client.SendMessageEvent(ctx, id.RoomID(roomID), eventType, content,
		mautrix.ReqSendEvent{TransactionID: uuid.NewString()})
	if err != nil {
		return "", fmt.Errorf("matrix: send %s to %s: %w", eventType.Type, roomID, err)
	}
	return resp.EventID.String(), nil
}
