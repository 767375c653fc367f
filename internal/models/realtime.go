package models

// ChatMessage is the unit relayed over the websocket layer and the room
// pub/sub channel. Never persisted.
type ChatMessage struct {
	RoomID   string `json:"room_id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	Type     string `json:"type"` // "text", "typing", "system_match", "system_leave"
}

// Message types understood by the relay.
const (
	MsgText   = "text"
	MsgTyping = "typing"
	MsgJoin   = "join"
	MsgMatch  = "system_match"
	MsgLeave  = "system_leave"
)

// MatchRequest is the client-facing match call. It exists only as call
// parameters, never stored.
type MatchRequest struct {
	UserID       string
	Mode         string       `json:"mode"`
	GenderFilter GenderFilter `json:"gender_filter"`
}

// MatchResult is what a match call returns: either queued, or the room and
// partner the requester was paired with.
type MatchResult struct {
	Queued      bool   `json:"queued"`
	RoomID      string `json:"room_id,omitempty"`
	PartnerID   string `json:"partner_id,omitempty"`
	PartnerName string `json:"partner_name,omitempty"`
}

// PendingMatch is the short-TTL hand-off stored for the queued side of a
// pair. Its presence is the sole source of truth for "which room am I in".
type PendingMatch struct {
	RoomID      string `json:"room_id"`
	PartnerID   string `json:"partner_id"`
	PartnerName string `json:"partner_name"`
}
