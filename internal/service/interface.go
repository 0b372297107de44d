package service

import (
	"context"

	"github.com/wavechat/messaging-gateway/internal/domain"
	"github.com/wavechat/messaging-gateway/internal/hub"
)

// SessionService reacts to the inbound events of one connection: it
// validates, persists through the message store, and fans results out to
// the affected scopes. Every handler reports failures as an error event to
// the originating connection only; the returned error is for logging.
type SessionService interface {
	HandleConnect(ctx context.Context, client *hub.Client) error
	HandleChannelJoin(ctx context.Context, client *hub.Client, channelID string) error
	HandleChannelLeave(ctx context.Context, client *hub.Client, channelID string) error
	HandleMessageSend(ctx context.Context, client *hub.Client, p domain.MessageSendPayload) error
	HandleMessageEdit(ctx context.Context, client *hub.Client, p domain.MessageEditPayload) error
	HandleMessageDelete(ctx context.Context, client *hub.Client, messageID string) error
	HandleMessageReact(ctx context.Context, client *hub.Client, p domain.MessageReactPayload) error
	HandleTypingStart(ctx context.Context, client *hub.Client, channelID string) error
	HandleTypingStop(ctx context.Context, client *hub.Client, channelID string) error
	HandleDMSend(ctx context.Context, client *hub.Client, p domain.DMSendPayload) error
	HandleMessageRead(ctx context.Context, client *hub.Client, messageID string) error
	HandleUsersGetOnline(ctx context.Context, client *hub.Client) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
}
