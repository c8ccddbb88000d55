package matrix

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/catbot/internal/channel"
	"github.com/flemzord/catbot/internal/router"
	"github.com/flemzord/catbot/pkg/message"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const (
	maxConsecutiveSyncErrors = 5
	errorPauseDuration       = 30 * time.Second
	retryDelay               = 2 * time.Second
	memberLookupTimeout      = 10 * time.Second
)

var _ mautrix.Syncer = (*syncer)(nil)

// syncer drives mautrix's sync loop. It embeds the DefaultSyncer for event
// dispatch and adds: history skipping on the first sync, message
// normalization into the inbox, auto-join of invites, and a circuit
// breaker around failed syncs.
type syncer struct {
	*mautrix.DefaultSyncer

	client    *mautrix.Client
	inbox     channel.InboxFunc
	allowList *channel.AllowList
	logger    *slog.Logger
	autoJoin  bool

	// After maxErrors consecutive failures the loop sleeps for pause
	// instead of retry.
	maxErrors int
	pause     time.Duration
	retry     time.Duration
	failures  atomic.Int32

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// newSyncer installs a syncer and store on client. client.UserID must be
// the authenticated user.
func newSyncer(client *mautrix.Client, store mautrix.SyncStore, inbox channel.InboxFunc, allowList *channel.AllowList, logger *slog.Logger, autoJoin bool, filter *mautrix.Filter) *syncer {
	s := &syncer{
		DefaultSyncer: mautrix.NewDefaultSyncer(),
		client:        client,
		inbox:         inbox,
		allowList:     allowList,
		logger:        logger,
		autoJoin:      autoJoin,
		maxErrors:     maxConsecutiveSyncErrors,
		pause:         errorPauseDuration,
		retry:         retryDelay,
		done:          make(chan struct{}),
	}
	s.FilterJSON = filter
	s.OnSync(s.skipHistory)
	s.OnEventType(event.EventMessage, s.handleMessage)
	s.OnEventType(event.StateMember, s.handleMembership)

	client.Syncer = s
	client.Store = store
	return s
}

// Start launches the sync loop in a goroutine.
func (s *syncer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer close(s.done)
		if err := s.client.SyncWithContext(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("matrix sync stopped", "error", err)
		}
	}()
}

// Stop cancels the in-flight long-poll and waits for the loop to finish.
// It is safe to call Stop multiple times.
func (s *syncer) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

// ProcessResponse implements mautrix.Syncer.
func (s *syncer) ProcessResponse(ctx context.Context, resp *mautrix.RespSync, since string) error {
	s.failures.Store(0)
	return s.DefaultSyncer.ProcessResponse(ctx, resp, since)
}

// OnFailedSync implements mautrix.Syncer. It never stops the loop; a
// revoked token or a run of failures only lengthens the wait.
func (s *syncer) OnFailedSync(_ *mautrix.RespSync, err error) (time.Duration, error) {
	n := s.failures.Add(1)
	s.logger.Error("sync failed",
		"error", err,
		"consecutive_errors", n,
	)
	if errors.Is(err, mautrix.MUnknownToken) || int(n) >= s.maxErrors {
		s.logger.Warn("sync paused after consecutive errors", "pause", s.pause)
		s.failures.Store(0)
		return s.pause, nil
	}
	return s.retry, nil
}

// skipHistory drops the timelines of the first sync so a fresh start never
// answers old messages. Invites are still processed.
func (s *syncer) skipHistory(_ context.Context, resp *mautrix.RespSync, since string) bool {
	if since != "" {
		for roomID, room := range resp.Rooms.Join {
			if room.Timeline.Limited {
				s.logger.Debug("timeline gap, older events skipped", "room", roomID)
			}
		}
		return true
	}
	for _, room := range resp.Rooms.Join {
		room.Timeline.Events = nil
	}
	s.logger.Info("initial sync complete, skipping history",
		"rooms", len(resp.Rooms.Join),
	)
	return true
}

// handleMessage converts, filters, enriches, and delivers one event.
func (s *syncer) handleMessage(ctx context.Context, evt *event.Event) {
	ev, err := message.ParseEvent(evt)
	if err != nil {
		s.logger.Debug("skipping event", "room", evt.RoomID, "event", evt.ID, "reason", err)
		return
	}

	if !s.allowList.IsAllowed(ev) {
		s.logger.Debug("event denied by allow list",
			"room", ev.RoomID,
			"event", ev.EventID,
			"sender", ev.SenderID,
		)
		return
	}

	// Our own events never dispatch; skip the membership lookup for them.
	if ev.SenderID != s.client.UserID.String() && ev.IsText() {
		ev.RoomMemberCount = s.memberCount(ctx, evt.RoomID)
	}

	if err := s.inbox(ev); err != nil {
		level := slog.LevelError
		if errors.Is(err, router.ErrRouterStopped) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "failed to deliver event to inbox",
			"room", ev.RoomID,
			"event", ev.EventID,
			"error", err,
		)
	}
}

// handleMembership joins rooms the bot is invited to when auto-join is
// enabled and the room passes the allow list.
func (s *syncer) handleMembership(ctx context.Context, evt *event.Event) {
	if !s.autoJoin || evt.GetStateKey() != s.client.UserID.String() {
		return
	}
	if evt.Content.AsMember().Membership != event.MembershipInvite {
		return
	}

	inviter := evt.Sender.String()
	roomID := evt.RoomID.String()
	if !s.allowList.AllowsRoom(roomID) {
		s.logger.Info("invite declined by allow list", "room", roomID, "inviter", inviter)
		return
	}
	if _, err := s.client.JoinRoomByID(ctx, evt.RoomID); err != nil {
		s.logger.Error("auto-join failed", "room", roomID, "inviter", inviter, "error", err)
		return
	}
	s.logger.Info("joined room on invite", "room", roomID, "inviter", inviter)
}

// memberCount returns the joined member count of roomID, or 0 if the
// lookup fails.
func (s *syncer) memberCount(ctx context.Context, roomID id.RoomID) int {
	ctx, cancel := context.WithTimeout(ctx, memberLookupTimeout)
	defer cancel()

	resp, err := s.client.JoinedMembers(ctx, roomID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("joined members lookup failed", "room", roomID, "error", err)
		}
		return 0
	}
	return len(resp.Joined)
}
