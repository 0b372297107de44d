package domain

import "encoding/json"

// WebSocket event names from clients.
const (
	EvtChannelJoin    = "channel:join"
	EvtChannelLeave   = "channel:leave"
	EvtMessageSend    = "message:send"
	EvtMessageEdit    = "message:edit"
	EvtMessageDelete  = "message:delete"
	EvtMessageReact   = "message:react"
	EvtTypingStart    = "typing:start"
	EvtTypingStop     = "typing:stop"
	EvtDMSend         = "dm:send"
	EvtMessageRead    = "message:read"
	EvtUsersGetOnline = "users:get-online"
	EvtRequestMetrics = "request_metrics"
)

// WebSocket event names to clients.
const (
	EvtSystemMetrics     = "system_metrics"
	EvtDatabaseMetrics   = "database_metrics"
	EvtUserStatus        = "user:status"
	EvtChannelMessages   = "channel:messages"
	EvtMessageNew        = "message:new"
	EvtMessageUpdated    = "message:updated"
	EvtMessageDeleted    = "message:deleted"
	EvtReactionsUpdated  = "message:reactions-updated"
	EvtUserTyping        = "user:typing"
	EvtUserStoppedTyping = "user:stopped-typing"
	EvtDMNew             = "dm:new"
	EvtDMSent            = "dm:sent"
	EvtDMRead            = "dm:read"
	EvtUsersOnline       = "users:online"
	EvtError             = "error"
)

// InboundEnvelope is the wire frame received from clients. Data stays raw
// until the event type selects a payload shape.
type InboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope is the wire frame sent to clients.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// NewEnvelope builds an outbound frame.
func NewEnvelope(event string, data interface{}) *Envelope {
	return &Envelope{Event: event, Data: data}
}

// Client -> Server payloads. Events taking a single string (channel:join,
// channel:leave, message:delete, message:read, typing:start, typing:stop)
// carry it as a bare JSON string in Data.

type MessageSendPayload struct {
	ChannelID string      `json:"channelId"`
	Text      string      `json:"text,omitempty"`
	ReplyTo   string      `json:"replyTo,omitempty"`
	File      *Attachment `json:"file,omitempty"`
}

type MessageEditPayload struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

type MessageReactPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type DMSendPayload struct {
	RecipientID string `json:"recipientId"`
	Text        string `json:"text"`
}

// Server -> Client payloads.

type UserStatusPayload struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
}

type ReactionsUpdatedPayload struct {
	MessageID string          `json:"messageId"`
	Reactions []ReactionGroup `json:"reactions"`
}

type TypingPayload struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail,omitempty"`
	ChannelID string `json:"channelId"`
}

type DMReadPayload struct {
	MessageID string `json:"messageId"`
	ReadAt    string `json:"readAt"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorEnvelope builds an error event frame.
func NewErrorEnvelope(code, message string) *Envelope {
	return NewEnvelope(EvtError, &ErrorPayload{Code: code, Message: message})
}

// SystemMetrics is the periodic observability snapshot.
type SystemMetrics struct {
	Timestamp       int64  `json:"timestamp"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
	Connections     int    `json:"connections"`
	OnlineUsers     int    `json:"onlineUsers"`
	ActiveChannels  int    `json:"activeChannels"`
	EventsProcessed uint64 `json:"eventsProcessed"`
	ErrorsTotal     uint64 `json:"errorsTotal"`
	Goroutines      int    `json:"goroutines"`
	HeapAllocBytes  uint64 `json:"heapAllocBytes"`
}

// DatabaseTableMetrics is the per-table slice of the database snapshot.
type DatabaseTableMetrics struct {
	TableName  string `json:"table_name"`
	Rows       int64  `json:"rows"`
	QueryCount uint64 `json:"query_count"`
}
