package audit

import (
	"context"

	"github.com/wavechat/messaging-gateway/pkg/log"
)

// Audit actions for the messaging gateway.
const (
	ActionConnect       = "gateway.connect"
	ActionAuthFailed    = "gateway.auth_failed"
	ActionJoinChannel   = "gateway.join_channel"
	ActionLeaveChannel  = "gateway.leave_channel"
	ActionSendMessage   = "gateway.send_message"
	ActionEditMessage   = "gateway.edit_message"
	ActionDeleteMessage = "gateway.delete_message"
	ActionSendDM        = "gateway.send_dm"
	ActionDisconnect    = "gateway.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction   = "action"
	FieldTargetID = "target_id"
	FieldDetail   = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
