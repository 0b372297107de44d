package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wavechat/messaging-gateway/internal/audit"
	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/firehose"
	"github.com/wavechat/messaging-gateway/internal/hub"
	"github.com/wavechat/messaging-gateway/internal/metrics"
	"github.com/wavechat/messaging-gateway/internal/presence"
	"github.com/wavechat/messaging-gateway/internal/store"
	"github.com/wavechat/messaging-gateway/pkg/log"
	"github.com/wavechat/messaging-gateway/pkg/pubsub"
)

type sessionService struct {
	hub          *hub.Hub
	store        store.MessageStore
	presence     *presence.Registry
	producer     firehose.Producer
	publisher    pubsub.Publisher // nil when no presence mirror is configured
	collector    *metrics.Collector
	instanceID   string
	backlogLimit int
}

// Options carries the optional collaborators of the session service.
type Options struct {
	Producer     firehose.Producer
	Publisher    pubsub.Publisher
	Collector    *metrics.Collector
	InstanceID   string
	BacklogLimit int
}

func NewSessionService(h *hub.Hub, st store.MessageStore, reg *presence.Registry, opts Options) SessionService {
	if opts.Producer == nil {
		opts.Producer = firehose.NewNoopProducer()
	}
	if opts.BacklogLimit <= 0 {
		opts.BacklogLimit = 50
	}
	return &sessionService{
		hub:          h,
		store:        st,
		presence:     reg,
		producer:     opts.Producer,
		publisher:    opts.Publisher,
		collector:    opts.Collector,
		instanceID:   opts.InstanceID,
		backlogLimit: opts.BacklogLimit,
	}
}

// fail reports an event failure to the originating connection only and
// returns the error for the caller's log line. The connection stays open.
func (s *sessionService) fail(c *hub.Client, err error, message string) error {
	if s.collector != nil {
		s.collector.EventFailed()
	}
	c.SendError(domain.ErrorCode(err), message)
	return err
}

// HandleConnect registers an authenticated connection: activates the
// session, joins the user's personal scope, marks presence online, and
// broadcasts the status change globally.
func (s *sessionService) HandleConnect(ctx context.Context, c *hub.Client) error {
	if err := c.Session.Activate(); err != nil {
		return err
	}

	userID := c.Session.UserID()
	s.hub.Join(c, hub.UserScope(userID))

	entry := s.presence.SetOnline(userID, presence.ConnectionMeta{
		ConnectionID: c.ID,
		Email:        c.Session.Email(),
	})

	s.hub.BroadcastAll(domain.NewEnvelope(domain.EvtUserStatus, domain.UserStatusPayload{
		UserID: userID,
		Status: domain.StatusOnline,
	}))
	s.publishPresence(ctx, pubsub.EventUserOnline, entry)

	audit.Log(ctx, audit.ActionConnect, userID, "user connected")
	return nil
}

// HandleChannelJoin subscribes the connection to a channel scope and
// replies with the channel backlog to the sender only.
func (s *sessionService) HandleChannelJoin(ctx context.Context, c *hub.Client, channelID string) error {
	if !c.Session.IsActive() {
		return s.fail(c, domain.ErrUnauthorized, "Connection is not active")
	}
	if channelID == "" {
		return s.fail(c, domain.ErrValidation, "Channel ID is required")
	}

	s.hub.Join(c, hub.ChannelScope(channelID))
	c.Session.JoinChannel(channelID)
	audit.LogWithDetail(ctx, audit.ActionJoinChannel, c.Session.UserID(), channelID, "joined channel")

	backlog, err := s.store.List(ctx, channelID, s.backlogLimit)
	if err != nil {
		return s.fail(c, err, "Failed to load channel messages")
	}

	return c.SendEvent(domain.EvtChannelMessages, backlog)
}

// HandleChannelLeave removes the channel membership. Leaving a channel the
// connection never joined is a no-op.
func (s *sessionService) HandleChannelLeave(ctx context.Context, c *hub.Client, channelID string) error {
	if channelID == "" {
		return s.fail(c, domain.ErrValidation, "Channel ID is required")
	}

	if c.Session.LeaveChannel(channelID) {
		s.hub.Leave(c, hub.ChannelScope(channelID))
		audit.LogWithDetail(ctx, audit.ActionLeaveChannel, c.Session.UserID(), channelID, "left channel")
	}
	return nil
}

// HandleMessageSend persists a channel message and fans it out to every
// member of the channel, sender included. Membership is not enforced on
// write; only fan-out targets are scoped.
func (s *sessionService) HandleMessageSend(ctx context.Context, c *hub.Client, p domain.MessageSendPayload) error {
	if !c.Session.IsActive() {
		return s.fail(c, domain.ErrUnauthorized, "Connection is not active")
	}
	if p.ChannelID == "" || (p.Text == "" && p.File == nil) {
		return s.fail(c, domain.ErrValidation, "Channel ID and either text or file are required")
	}

	msgType := domain.MessageTypeText
	var attachments []domain.Attachment
	if p.File != nil {
		msgType = domain.MessageTypeFile
		attachments = []domain.Attachment{*p.File}
	}

	msg := &domain.Message{
		ConversationID: p.ChannelID,
		AuthorID:       c.Session.UserID(),
		Content:        p.Text,
		MessageType:    msgType,
		ReplyToID:      p.ReplyTo,
		Attachments:    attachments,
		Metadata: domain.Metadata{
			domain.MetaUserEmail: c.Session.Email(),
		},
	}

	created, err := s.store.Create(ctx, msg)
	if err != nil {
		return s.fail(c, err, "Failed to send message")
	}
	if s.collector != nil {
		s.collector.MessagePersisted()
	}
	s.produce(ctx, created)

	audit.LogWithDetail(ctx, audit.ActionSendMessage, created.AuthorID, p.ChannelID, "sent channel message")
	return s.hub.Broadcast(hub.ChannelScope(p.ChannelID), domain.NewEnvelope(domain.EvtMessageNew, created), "")
}

// HandleMessageEdit applies an author-only content update and fans the
// updated message out to the message's channel.
func (s *sessionService) HandleMessageEdit(ctx context.Context, c *hub.Client, p domain.MessageEditPayload) error {
	if p.MessageID == "" || p.Text == "" {
		return s.fail(c, domain.ErrValidation, "Message ID and text are required")
	}

	edited := true
	updated, err := s.store.Update(ctx, p.MessageID, store.MessagePatch{
		Content: &p.Text,
		Edited:  &edited,
	}, c.Session.UserID())
	if err != nil {
		return s.fail(c, err, "Failed to edit message")
	}

	audit.LogWithDetail(ctx, audit.ActionEditMessage, c.Session.UserID(), p.MessageID, "edited message")
	return s.fanOutToMessageScope(updated, domain.NewEnvelope(domain.EvtMessageUpdated, updated), c)
}

// HandleMessageDelete removes an author-owned message and notifies the
// message's channel.
func (s *sessionService) HandleMessageDelete(ctx context.Context, c *hub.Client, messageID string) error {
	if messageID == "" {
		return s.fail(c, domain.ErrValidation, "Message ID is required")
	}

	msg, err := s.store.Get(ctx, messageID)
	if err != nil {
		return s.fail(c, err, "Message not found")
	}

	if _, err := s.store.Delete(ctx, messageID, c.Session.UserID()); err != nil {
		return s.fail(c, err, "Failed to delete message")
	}

	audit.LogWithDetail(ctx, audit.ActionDeleteMessage, c.Session.UserID(), messageID, "deleted message")
	return s.fanOutToMessageScope(msg, domain.NewEnvelope(domain.EvtMessageDeleted, messageID), c)
}

// HandleMessageReact toggles the sender's reaction and fans out the full
// updated reaction list to the message's channel.
func (s *sessionService) HandleMessageReact(ctx context.Context, c *hub.Client, p domain.MessageReactPayload) error {
	if p.MessageID == "" || p.Emoji == "" {
		return s.fail(c, domain.ErrValidation, "Message ID and emoji are required")
	}

	msg, err := s.store.Get(ctx, p.MessageID)
	if err != nil {
		return s.fail(c, err, "Message not found")
	}

	if _, err := s.store.ToggleReaction(ctx, p.MessageID, c.Session.UserID(), p.Emoji); err != nil {
		return s.fail(c, err, "Failed to update reaction")
	}

	reactions, err := s.store.ListReactions(ctx, p.MessageID)
	if err != nil {
		return s.fail(c, err, "Failed to load reactions")
	}

	payload := domain.ReactionsUpdatedPayload{
		MessageID: p.MessageID,
		Reactions: domain.GroupReactions(reactions),
	}
	return s.fanOutToMessageScope(msg, domain.NewEnvelope(domain.EvtReactionsUpdated, payload), c)
}

// HandleTypingStart notifies every other member of the channel. Ephemeral:
// nothing is persisted.
func (s *sessionService) HandleTypingStart(ctx context.Context, c *hub.Client, channelID string) error {
	if !c.Session.IsActive() {
		return s.fail(c, domain.ErrUnauthorized, "Connection is not active")
	}
	if channelID == "" {
		return s.fail(c, domain.ErrValidation, "Channel ID is required")
	}

	return s.hub.Broadcast(hub.ChannelScope(channelID), domain.NewEnvelope(domain.EvtUserTyping, domain.TypingPayload{
		UserID:    c.Session.UserID(),
		UserEmail: c.Session.Email(),
		ChannelID: channelID,
	}), c.ID)
}

// HandleTypingStop mirrors HandleTypingStart.
func (s *sessionService) HandleTypingStop(ctx context.Context, c *hub.Client, channelID string) error {
	if !c.Session.IsActive() {
		return s.fail(c, domain.ErrUnauthorized, "Connection is not active")
	}
	if channelID == "" {
		return s.fail(c, domain.ErrValidation, "Channel ID is required")
	}

	return s.hub.Broadcast(hub.ChannelScope(channelID), domain.NewEnvelope(domain.EvtUserStoppedTyping, domain.TypingPayload{
		UserID:    c.Session.UserID(),
		ChannelID: channelID,
	}), c.ID)
}

// HandleDMSend persists a direct message, delivers it to the recipient's
// personal scope, and echoes a confirmation to the sender.
func (s *sessionService) HandleDMSend(ctx context.Context, c *hub.Client, p domain.DMSendPayload) error {
	if !c.Session.IsActive() {
		return s.fail(c, domain.ErrUnauthorized, "Connection is not active")
	}
	if p.RecipientID == "" || p.Text == "" {
		return s.fail(c, domain.ErrValidation, "Recipient and text are required")
	}

	msg := &domain.Message{
		AuthorID:    c.Session.UserID(),
		Content:     p.Text,
		MessageType: domain.MessageTypeDM,
		Metadata: domain.Metadata{
			domain.MetaRecipientID: p.RecipientID,
			domain.MetaSenderEmail: c.Session.Email(),
			domain.MetaRead:        false,
		},
	}

	created, err := s.store.Create(ctx, msg)
	if err != nil {
		return s.fail(c, err, "Failed to send direct message")
	}
	if s.collector != nil {
		s.collector.MessagePersisted()
	}
	s.produce(ctx, created)

	audit.LogWithDetail(ctx, audit.ActionSendDM, created.AuthorID, p.RecipientID, "sent direct message")

	s.hub.Broadcast(hub.UserScope(p.RecipientID), domain.NewEnvelope(domain.EvtDMNew, created), "")
	return c.SendEvent(domain.EvtDMSent, created)
}

// HandleMessageRead marks a DM addressed to the sender as read and
// notifies the author's personal scope.
func (s *sessionService) HandleMessageRead(ctx context.Context, c *hub.Client, messageID string) error {
	if messageID == "" {
		return s.fail(c, domain.ErrValidation, "Message ID is required")
	}

	msg, err := s.store.Get(ctx, messageID)
	if err != nil {
		return s.fail(c, err, "Message not found")
	}
	if !msg.IsDM() || msg.RecipientID() != c.Session.UserID() {
		return s.fail(c, domain.ErrValidation, "Message is not a direct message addressed to you")
	}

	updated, err := s.store.MarkRead(ctx, messageID, time.Now())
	if err != nil {
		return s.fail(c, err, "Failed to mark message as read")
	}

	readAt, _ := updated.Metadata[domain.MetaReadAt].(string)
	return s.hub.Broadcast(hub.UserScope(msg.AuthorID), domain.NewEnvelope(domain.EvtDMRead, domain.DMReadPayload{
		MessageID: messageID,
		ReadAt:    readAt,
	}), "")
}

// HandleUsersGetOnline replies with a presence snapshot to the sender.
func (s *sessionService) HandleUsersGetOnline(ctx context.Context, c *hub.Client) error {
	return c.SendEvent(domain.EvtUsersOnline, s.presence.ListOnline())
}

// HandleDisconnect finalises the session: presence goes offline with a
// deferred removal, and the status change is broadcast globally. Cleanup is
// best-effort and never blocks the connection teardown.
func (s *sessionService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	if c.Session.State() == domain.StateClosed {
		return nil
	}
	userID := c.Session.UserID()
	c.Session.Close()

	if userID == "" {
		return nil
	}

	entry, ok := s.presence.SetOffline(userID)
	if !ok {
		return nil
	}

	s.hub.BroadcastAll(domain.NewEnvelope(domain.EvtUserStatus, domain.UserStatusPayload{
		UserID: userID,
		Status: domain.StatusOffline,
	}))
	s.publishPresence(ctx, pubsub.EventUserOffline, entry)

	audit.Log(ctx, audit.ActionDisconnect, userID, "user disconnected")
	return nil
}

// fanOutToMessageScope routes a message-derived event: channel messages go
// to the channel scope; DMs go to both participants' personal scopes.
func (s *sessionService) fanOutToMessageScope(msg *domain.Message, env *domain.Envelope, c *hub.Client) error {
	if msg.ConversationID != "" {
		return s.hub.Broadcast(hub.ChannelScope(msg.ConversationID), env, "")
	}
	s.hub.Broadcast(hub.UserScope(msg.AuthorID), env, "")
	if recipient := msg.RecipientID(); recipient != "" {
		s.hub.Broadcast(hub.UserScope(recipient), env, "")
	}
	return nil
}

// produce streams a persisted message to the firehose. Failures are logged
// and never surface to clients.
func (s *sessionService) produce(ctx context.Context, msg *domain.Message) {
	if err := s.producer.ProduceMessage(ctx, msg); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Str("message_id", msg.ID).Err(err).Msg("firehose produce failed")
	}
}

// publishPresence mirrors a presence transition to peer instances.
func (s *sessionService) publishPresence(ctx context.Context, eventType string, entry domain.PresenceEntry) {
	if s.publisher == nil {
		return
	}
	ev, err := pubsub.NewEvent(eventType, s.instanceID, pubsub.PresencePayload{
		UserID:   entry.UserID,
		Status:   string(entry.Status),
		LastSeen: entry.LastSeen.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, pubsub.ChannelPresence, ev); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg(fmt.Sprintf("failed to publish %s event", eventType))
	}
}
