package pubsub

// Channel naming conventions for the messaging gateway cluster.
const (
	// ChannelPresence carries user online/offline transitions between
	// gateway instances so every instance can rebroadcast them locally.
	ChannelPresence = "gateway:presence"
)

// Event types published on ChannelPresence.
const (
	EventUserOnline  = "user_online"
	EventUserOffline = "user_offline"
)

// PresencePayload is the payload for presence events.
type PresencePayload struct {
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}
