package domain

import "time"

// MessageType identifies how a message was produced.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
	MessageTypeDM   MessageType = "dm"
)

// Metadata keys used on messages.
const (
	MetaRecipientID = "recipientId"
	MetaRead        = "read"
	MetaReadAt      = "readAt"
	MetaSenderEmail = "senderEmail"
	MetaUserEmail   = "userEmail"
)

// Attachment describes a file carried by a message. Upload handling lives
// upstream; the gateway only transports the descriptor.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Metadata is free-form message metadata (DM recipient, read flags, emails).
type Metadata map[string]interface{}

// Message is the persistent unit of conversation. ConversationID is empty
// for DMs; DMs carry their recipient in metadata.
type Message struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string       `gorm:"index;size:64" json:"conversationId,omitempty"`
	AuthorID       string       `gorm:"index;size:64" json:"authorId"`
	Content        string       `json:"content"`
	MessageType    MessageType  `gorm:"size:8" json:"messageType"`
	ReplyToID      string       `gorm:"size:36" json:"replyToId,omitempty"`
	Attachments    []Attachment `gorm:"serializer:json" json:"attachments,omitempty"`
	Metadata       Metadata     `gorm:"serializer:json" json:"metadata,omitempty"`
	Edited         bool         `json:"edited"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// IsDM reports whether the message is a direct message.
func (m *Message) IsDM() bool {
	return m.MessageType == MessageTypeDM
}

// RecipientID returns the DM recipient from metadata, or "".
func (m *Message) RecipientID() string {
	if m.Metadata == nil {
		return ""
	}
	if id, ok := m.Metadata[MetaRecipientID].(string); ok {
		return id
	}
	return ""
}

// Reaction is keyed by (message, user, emoji): a user holds at most one
// reaction of a given emoji per message.
type Reaction struct {
	MessageID string    `gorm:"primaryKey;size:36" json:"messageId"`
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Emoji     string    `gorm:"primaryKey;size:32" json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReactionGroup is the per-emoji aggregate view sent to clients.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// GroupReactions aggregates reaction rows into per-emoji groups, preserving
// first-seen emoji order.
func GroupReactions(reactions []Reaction) []ReactionGroup {
	groups := make([]ReactionGroup, 0, len(reactions))
	index := make(map[string]int, len(reactions))
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			index[r.Emoji] = len(groups)
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
			i = len(groups) - 1
		}
		groups[i].Count++
		groups[i].Users = append(groups[i].Users, r.UserID)
	}
	return groups
}

// PresenceStatus is a user's tracked online state.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceEntry tracks one user's presence. Last writer wins when a user
// holds multiple connections.
type PresenceEntry struct {
	UserID       string         `json:"userId"`
	ConnectionID string         `json:"connectionId"`
	Email        string         `json:"email"`
	Status       PresenceStatus `json:"status"`
	LastSeen     time.Time      `json:"lastSeen"`
}
