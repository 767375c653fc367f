package chathub

import "matchago/backend/internal/models"

// Client is the interface for one connected party. It abstracts the
// underlying transport so the hub can manage connections uniformly.
type Client interface {
	// GetUserID returns the anonymous id of the connected user.
	GetUserID() string
	// GetRoomID returns the room the client currently occupies, "" if none.
	GetRoomID() string
	// SetRoomID assigns the client to a room after a successful match.
	SetRoomID(string)

	// GetSendChannel is the channel the hub delivers outbound messages on.
	GetSendChannel() chan<- models.ChatMessage

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and channels.
	Close()
}
